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

// CaseBuilder builds a searched case expression producing values of type T.
type CaseBuilder[T any] struct {
	whens []ast.When
}

// Cases starts a searched case: Cases[string]().When(p).Then("x").Otherwise("y").
func Cases[T any]() CaseBuilder[T] { return CaseBuilder[T]{} }

// When opens a branch guarded by p.
func (b CaseBuilder[T]) When(p *Predicate) CaseWhen[T] {
	return CaseWhen[T]{b: b, cond: p.Node()}
}

// Otherwise closes the case with a default value.
func (b CaseBuilder[T]) Otherwise(v T) SimpleExpr[T] { return b.end(literal(v)) }

// OtherwiseExpr closes the case with a default expression.
func (b CaseBuilder[T]) OtherwiseExpr(e Expr[T]) SimpleExpr[T] { return b.end(e.Node()) }

func (b CaseBuilder[T]) end(def ast.Expr) SimpleExpr[T] {
	return SimpleExpr[T]{base[T]{node: &ast.Case{Whens: b.whens, Else: def}}}
}

// CaseWhen is a branch waiting for its result.
type CaseWhen[T any] struct {
	b    CaseBuilder[T]
	cond ast.Expr
}

func (w CaseWhen[T]) Then(v T) CaseBuilder[T] { return w.then(literal(v)) }

func (w CaseWhen[T]) ThenExpr(e Expr[T]) CaseBuilder[T] { return w.then(e.Node()) }

func (w CaseWhen[T]) then(result ast.Expr) CaseBuilder[T] {
	whens := append(append([]ast.When(nil), w.b.whens...), ast.When{Cond: w.cond, Then: result})
	return CaseBuilder[T]{whens: whens}
}

// SwitchBuilder builds a simple case comparing an operand of type V against
// literal values and producing values of type T.
type SwitchBuilder[T, V any] struct {
	operand ast.Expr
	whens   []ast.When
}

// Switch starts a simple case over operand: Switch[string](m.Age).When(10).Then("ten").
func Switch[T, V any](operand Expr[V]) SwitchBuilder[T, V] {
	return SwitchBuilder[T, V]{operand: ast.Unalias(operand.Node())}
}

func (b SwitchBuilder[T, V]) When(v V) SwitchWhen[T, V] {
	return SwitchWhen[T, V]{b: b, match: literal(v)}
}

func (b SwitchBuilder[T, V]) Otherwise(v T) SimpleExpr[T] { return b.end(literal(v)) }

func (b SwitchBuilder[T, V]) OtherwiseExpr(e Expr[T]) SimpleExpr[T] { return b.end(e.Node()) }

func (b SwitchBuilder[T, V]) end(def ast.Expr) SimpleExpr[T] {
	return SimpleExpr[T]{base[T]{node: &ast.Case{Operand: b.operand, Whens: b.whens, Else: def}}}
}

// SwitchWhen is a simple case branch waiting for its result.
type SwitchWhen[T, V any] struct {
	b     SwitchBuilder[T, V]
	match ast.Expr
}

func (w SwitchWhen[T, V]) Then(v T) SwitchBuilder[T, V] { return w.then(literal(v)) }

func (w SwitchWhen[T, V]) ThenExpr(e Expr[T]) SwitchBuilder[T, V] { return w.then(e.Node()) }

func (w SwitchWhen[T, V]) then(result ast.Expr) SwitchBuilder[T, V] {
	whens := append(append([]ast.When(nil), w.b.whens...), ast.When{Cond: w.match, Then: result})
	return SwitchBuilder[T, V]{operand: w.b.operand, whens: whens}
}
