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

import "github.com/tomoncle/querydsl/ast"

// Numeric is the set of Go types a NumberExpr can carry.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// NumberExpr is a numeric expression.
type NumberExpr[N Numeric] struct {
	base[N]
}

func numberOf[N Numeric](node ast.Expr) NumberExpr[N] {
	return NumberExpr[N]{base[N]{node: node}}
}

// AsNumber gives any numeric expression the NumberExpr operations.
func AsNumber[N Numeric](e Expr[N]) NumberExpr[N] {
	return numberOf[N](e.Node())
}

// CastNumber retypes a numeric expression, e.g. to compare an integer field
// with an average. No conversion is emitted; storage compares numerically.
func CastNumber[To Numeric, From Numeric](e Expr[From]) NumberExpr[To] {
	return numberOf[To](e.Node())
}

// As names the expression in a projection.
func (e NumberExpr[N]) As(name string) NumberExpr[N] {
	return numberOf[N](&ast.Alias{Operand: ast.Unalias(e.node), Name: name})
}

func (e NumberExpr[N]) Gt(v N) *Predicate  { return e.compare(ast.OpGt, literal(v)) }
func (e NumberExpr[N]) Goe(v N) *Predicate { return e.compare(ast.OpGoe, literal(v)) }
func (e NumberExpr[N]) Lt(v N) *Predicate  { return e.compare(ast.OpLt, literal(v)) }
func (e NumberExpr[N]) Loe(v N) *Predicate { return e.compare(ast.OpLoe, literal(v)) }

func (e NumberExpr[N]) GtExpr(o Expr[N]) *Predicate  { return e.compare(ast.OpGt, o.Node()) }
func (e NumberExpr[N]) GoeExpr(o Expr[N]) *Predicate { return e.compare(ast.OpGoe, o.Node()) }
func (e NumberExpr[N]) LtExpr(o Expr[N]) *Predicate  { return e.compare(ast.OpLt, o.Node()) }
func (e NumberExpr[N]) LoeExpr(o Expr[N]) *Predicate { return e.compare(ast.OpLoe, o.Node()) }

// Between is the inclusive range test "low <= expr <= high".
func (e NumberExpr[N]) Between(low, high N) *Predicate {
	return newPredicate(&ast.Between{Operand: e.node, Low: literal(low), High: literal(high)})
}

func (e NumberExpr[N]) arith(op ast.BinaryOp, right ast.Expr) NumberExpr[N] {
	return numberOf[N](&ast.Binary{Op: op, Left: ast.Unalias(e.node), Right: right})
}

func (e NumberExpr[N]) Add(v N) NumberExpr[N]      { return e.arith(ast.OpAdd, literal(v)) }
func (e NumberExpr[N]) Subtract(v N) NumberExpr[N] { return e.arith(ast.OpSub, literal(v)) }
func (e NumberExpr[N]) Multiply(v N) NumberExpr[N] { return e.arith(ast.OpMul, literal(v)) }
func (e NumberExpr[N]) Divide(v N) NumberExpr[N]   { return e.arith(ast.OpDiv, literal(v)) }

func (e NumberExpr[N]) AddExpr(o Expr[N]) NumberExpr[N]      { return e.arith(ast.OpAdd, o.Node()) }
func (e NumberExpr[N]) SubtractExpr(o Expr[N]) NumberExpr[N] { return e.arith(ast.OpSub, o.Node()) }
func (e NumberExpr[N]) MultiplyExpr(o Expr[N]) NumberExpr[N] { return e.arith(ast.OpMul, o.Node()) }
func (e NumberExpr[N]) DivideExpr(o Expr[N]) NumberExpr[N]   { return e.arith(ast.OpDiv, o.Node()) }

func (e NumberExpr[N]) aggregate(fn ast.AggFunc) ast.Expr {
	return &ast.Aggregate{Func: fn, Operand: ast.Unalias(e.node)}
}

func (e NumberExpr[N]) Sum() NumberExpr[N] { return numberOf[N](e.aggregate(ast.AggSum)) }
func (e NumberExpr[N]) Max() NumberExpr[N] { return numberOf[N](e.aggregate(ast.AggMax)) }
func (e NumberExpr[N]) Min() NumberExpr[N] { return numberOf[N](e.aggregate(ast.AggMin)) }

// Avg is always fractional, whatever the operand type.
func (e NumberExpr[N]) Avg() NumberExpr[float64] { return numberOf[float64](e.aggregate(ast.AggAvg)) }

// StringValue converts the number to text.
func (e NumberExpr[N]) StringValue() StringExpr {
	return stringOf(&ast.CastText{Operand: ast.Unalias(e.node)})
}
