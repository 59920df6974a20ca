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

package ast

// Inspect visits e depth-first. When fn returns false the children of that
// node are skipped. Subqueries are visited as a node but not entered.
func Inspect(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *Binary:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *Logical:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *Not:
		Inspect(n.Operand, fn)
	case *IsNull:
		Inspect(n.Operand, fn)
	case *Between:
		Inspect(n.Operand, fn)
		Inspect(n.Low, fn)
		Inspect(n.High, fn)
	case *In:
		Inspect(n.Operand, fn)
		for _, v := range n.Values {
			Inspect(v, fn)
		}
		if n.Query != nil {
			Inspect(n.Query, fn)
		}
	case *Func:
		for _, a := range n.Args {
			Inspect(a, fn)
		}
	case *CastText:
		Inspect(n.Operand, fn)
	case *Aggregate:
		Inspect(n.Operand, fn)
	case *Case:
		Inspect(n.Operand, fn)
		for _, w := range n.Whens {
			Inspect(w.Cond, fn)
			Inspect(w.Then, fn)
		}
		Inspect(n.Else, fn)
	case *Alias:
		Inspect(n.Operand, fn)
	}
}

// Contains reports whether any node under e satisfies pred.
func Contains(e Expr, pred func(Expr) bool) bool {
	found := false
	Inspect(e, func(n Expr) bool {
		if found {
			return false
		}
		if pred(n) {
			found = true
			return false
		}
		return true
	})
	return found
}

// IsAggregate matches aggregate nodes.
func IsAggregate(e Expr) bool {
	_, ok := e.(*Aggregate)
	return ok
}

// Exprs returns every top-level expression of the statement, in clause order.
func (s *Select) Exprs() []Expr {
	out := append([]Expr(nil), s.Columns...)
	for _, j := range s.Joins {
		if j.Cond != nil {
			out = append(out, j.Cond)
		}
		if j.On != nil {
			out = append(out, j.On)
		}
	}
	if s.Where != nil {
		out = append(out, s.Where)
	}
	out = append(out, s.GroupBy...)
	if s.Having != nil {
		out = append(out, s.Having)
	}
	for _, o := range s.OrderBy {
		out = append(out, o.Expr)
	}
	return out
}
