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

// SubQuery is a nested query projecting a single expression of type T. It
// is usable as a scalar operand, as the right side of InQuery, or aliased
// into a projection with AsExpr.
type SubQuery[T any] struct {
	st   *queryState
	expr ast.Expr
}

// Sub starts a subquery selecting e. Its sources must use aliases distinct
// from the enclosing query.
func Sub[T any](e Expr[T]) *SubQuery[T] {
	return &SubQuery[T]{st: &queryState{}, expr: ast.Unalias(e.Node())}
}

func (s *SubQuery[T]) with(st *queryState) *SubQuery[T] {
	return &SubQuery[T]{st: st, expr: s.expr}
}

func (s *SubQuery[T]) From(srcs ...Joinable) *SubQuery[T] { return s.with(s.st.withFrom(srcs)) }

func (s *SubQuery[T]) Join(path RelationPath, target Joinable) *SubQuery[T] {
	return s.with(s.st.withJoin(ast.InnerJoin, path, target))
}

func (s *SubQuery[T]) LeftJoin(path RelationPath, target Joinable) *SubQuery[T] {
	return s.with(s.st.withJoin(ast.LeftJoin, path, target))
}

func (s *SubQuery[T]) On(ps ...*Predicate) *SubQuery[T] { return s.with(s.st.withOn(ps)) }

func (s *SubQuery[T]) Where(ps ...*Predicate) *SubQuery[T] { return s.with(s.st.withWhere(ps)) }

func (s *SubQuery[T]) GroupBy(exprs ...Expression) *SubQuery[T] {
	return s.with(s.st.withGroupBy(exprs))
}

func (s *SubQuery[T]) Having(ps ...*Predicate) *SubQuery[T] { return s.with(s.st.withHaving(ps)) }

func (s *SubQuery[T]) subNode() *ast.SubQuery {
	if s == nil || s.st == nil {
		return &ast.SubQuery{Err: invalid("subquery", "nil subquery")}
	}
	return &ast.SubQuery{Query: s.st.build([]ast.Expr{s.expr}), Err: s.st.err}
}

func (s *SubQuery[T]) Node() ast.Expr       { return s.subNode() }
func (s *SubQuery[T]) goType() reflect.Type { return typeOf[T]() }
func (s *SubQuery[T]) valueOf() (v T)       { return }

func (s *SubQuery[T]) String() string { return s.subNode().String() }
