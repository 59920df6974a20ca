/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package querydsl

import (
	"reflect"

	"github.com/tomoncle/querydsl/ast"
)

// Expression is any expression handle, whatever its value type.
type Expression interface {
	Node() ast.Expr
	goType() reflect.Type
}

// Expr is an expression whose values have Go type T.
type Expr[T any] interface {
	Expression
	valueOf() T
}

func typeOf[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

func literal(v any) ast.Expr { return &ast.Constant{Value: v} }

// base carries the operations every typed expression supports.
type base[T any] struct {
	node ast.Expr
}

func (b base[T]) Node() ast.Expr       { return b.node }
func (b base[T]) goType() reflect.Type { return typeOf[T]() }
func (b base[T]) valueOf() (v T)       { return }

func (b base[T]) String() string {
	if b.node == nil {
		return "<nil>"
	}
	return b.node.String()
}

func (b base[T]) compare(op ast.BinaryOp, right ast.Expr) *Predicate {
	return newPredicate(&ast.Binary{Op: op, Left: b.node, Right: right})
}

// Eq is "expr = v".
func (b base[T]) Eq(v T) *Predicate { return b.compare(ast.OpEq, literal(v)) }

// EqExpr is "expr = other".
func (b base[T]) EqExpr(other Expr[T]) *Predicate { return b.compare(ast.OpEq, other.Node()) }

// Ne is "expr <> v".
func (b base[T]) Ne(v T) *Predicate { return b.compare(ast.OpNe, literal(v)) }

// NeExpr is "expr <> other".
func (b base[T]) NeExpr(other Expr[T]) *Predicate { return b.compare(ast.OpNe, other.Node()) }

// In is set membership over literals. An empty set matches nothing.
func (b base[T]) In(values ...T) *Predicate {
	return newPredicate(&ast.In{Operand: b.node, Values: literals(values)})
}

// NotIn negates In. An empty set matches everything.
func (b base[T]) NotIn(values ...T) *Predicate {
	return newPredicate(&ast.In{Operand: b.node, Values: literals(values), Negated: true})
}

// InQuery is set membership over the rows of a subquery.
func (b base[T]) InQuery(sub *SubQuery[T]) *Predicate {
	return newPredicate(&ast.In{Operand: b.node, Query: sub.subNode()})
}

// NotInQuery negates InQuery.
func (b base[T]) NotInQuery(sub *SubQuery[T]) *Predicate {
	return newPredicate(&ast.In{Operand: b.node, Query: sub.subNode(), Negated: true})
}

func (b base[T]) IsNull() *Predicate    { return newPredicate(&ast.IsNull{Operand: b.node}) }
func (b base[T]) IsNotNull() *Predicate { return newPredicate(&ast.IsNull{Operand: b.node, Negated: true}) }

func (b base[T]) Asc() OrderSpecifier  { return OrderSpecifier{expr: b.node} }
func (b base[T]) Desc() OrderSpecifier { return OrderSpecifier{expr: b.node, desc: true} }

// Count is count(expr); nulls are not counted.
func (b base[T]) Count() NumberExpr[int64] {
	return numberOf[int64](&ast.Aggregate{Func: ast.AggCount, Operand: b.node})
}

// CountDistinct is count(distinct expr).
func (b base[T]) CountDistinct() NumberExpr[int64] {
	return numberOf[int64](&ast.Aggregate{Func: ast.AggCount, Operand: b.node, Distinct: true})
}

// Set assigns a literal in a bulk update.
func (b base[T]) Set(v T) Assignment { return Assignment{field: b.node, value: literal(v)} }

// SetExpr assigns an expression evaluated per row in a bulk update.
func (b base[T]) SetExpr(e Expr[T]) Assignment { return Assignment{field: b.node, value: e.Node()} }

// SetNull assigns null in a bulk update.
func (b base[T]) SetNull() Assignment { return Assignment{field: b.node, value: literal(nil)} }

func literals[T any](values []T) []ast.Expr {
	out := make([]ast.Expr, len(values))
	for i, v := range values {
		out[i] = literal(v)
	}
	return out
}

// SimpleExpr is an expression with only the generic operations, such as a
// constant or a case expression.
type SimpleExpr[T any] struct {
	base[T]
}

// As names the expression in a projection.
func (e SimpleExpr[T]) As(name string) SimpleExpr[T] {
	return SimpleExpr[T]{base[T]{node: &ast.Alias{Operand: ast.Unalias(e.node), Name: name}}}
}

// Constant is a literal value usable as a projection or operand.
func Constant[T any](v T) SimpleExpr[T] {
	return SimpleExpr[T]{base[T]{node: literal(v)}}
}

// AsExpr names any expression, typically a subquery, in a projection.
func AsExpr[T any](e Expr[T], name string) SimpleExpr[T] {
	return SimpleExpr[T]{base[T]{node: &ast.Alias{Operand: ast.Unalias(e.Node()), Name: name}}}
}
