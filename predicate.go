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

// Predicate is an immutable boolean expression. A nil *Predicate is the
// absent condition: it is dropped by And, Or and every clause that takes
// predicates, so optional filters can be composed without branching.
type Predicate struct {
	node ast.Expr
}

func newPredicate(node ast.Expr) *Predicate { return &Predicate{node: node} }

// Node returns nil for the absent predicate.
func (p *Predicate) Node() ast.Expr {
	if p == nil {
		return nil
	}
	return p.node
}

func (p *Predicate) goType() reflect.Type { return typeOf[bool]() }
func (p *Predicate) valueOf() (v bool)    { return }

func (p *Predicate) String() string {
	if p == nil {
		return ""
	}
	return p.node.String()
}

func (p *Predicate) combine(op ast.LogicalOp, other *Predicate) *Predicate {
	switch {
	case p == nil:
		return other
	case other == nil:
		return p
	}
	return newPredicate(&ast.Logical{Op: op, Left: p.node, Right: other.node})
}

// And is the conjunction; an absent side yields the other side unchanged.
func (p *Predicate) And(other *Predicate) *Predicate { return p.combine(ast.OpAnd, other) }

// Or is the disjunction; an absent side yields the other side unchanged.
func (p *Predicate) Or(other *Predicate) *Predicate { return p.combine(ast.OpOr, other) }

// Not negates the predicate. The absent predicate stays absent.
func (p *Predicate) Not() *Predicate {
	if p == nil {
		return nil
	}
	return newPredicate(&ast.Not{Operand: p.node})
}

// AllOf joins the non-nil predicates with and. It returns nil when all are nil.
func AllOf(ps ...*Predicate) *Predicate {
	var out *Predicate
	for _, p := range ps {
		out = out.And(p)
	}
	return out
}

// AnyOf joins the non-nil predicates with or. It returns nil when all are nil.
func AnyOf(ps ...*Predicate) *Predicate {
	var out *Predicate
	for _, p := range ps {
		out = out.Or(p)
	}
	return out
}

// True is a predicate that always holds, usable as an explicit bulk filter.
func True() *Predicate {
	return newPredicate(&ast.Binary{Op: ast.OpEq, Left: literal(1), Right: literal(1)})
}
