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
	"github.com/tomoncle/querydsl/ast"
)

// validateSelect checks what cannot be checked while a query is composed:
// every alias used is in scope, subqueries do not shadow outer aliases, and
// fetch joins hang off a selected entity. outer lists the aliases of the
// enclosing queries.
func validateSelect(sel *ast.Select, outer []string) error {
	if sel.From.Alias == "" {
		return invalid("from", "query has no source entity")
	}
	if len(sel.Columns) == 0 {
		return invalid("select", "query has no projection")
	}
	scope := make(map[string]bool, len(outer)+len(sel.Joins)+1)
	for _, a := range outer {
		scope[a] = true
	}
	own := sel.Aliases()
	for _, a := range own {
		if scope[a] {
			return invalid("alias", "alias %q is already in scope", a)
		}
		scope[a] = true
	}
	inner := append(append([]string(nil), outer...), own...)
	for _, e := range sel.Exprs() {
		if err := validateExpr(e, scope, inner); err != nil {
			return err
		}
	}
	if ast.Contains(sel.Where, ast.IsAggregate) {
		return invalid("where", "aggregate not allowed in where: %s", sel.Where)
	}
	selected := make(map[string]bool)
	for _, c := range sel.Columns {
		if ref, ok := ast.Unalias(c).(*ast.EntityRef); ok {
			selected[ref.Alias] = true
		}
	}
	for _, j := range sel.Joins {
		if j.On != nil && ast.Contains(j.On, ast.IsAggregate) {
			return invalid("on", "aggregate not allowed in on: %s", j.On)
		}
		if !j.Fetch {
			continue
		}
		if !selected[j.Owner] {
			return invalid("fetchJoin", "owner %s of fetch join %s.%s is not selected", j.Owner, j.Owner, j.Relation)
		}
		selected[j.Target.Alias] = true
	}
	return nil
}

func validateExpr(e ast.Expr, scope map[string]bool, aliases []string) error {
	var err error
	ast.Inspect(e, func(n ast.Expr) bool {
		if err != nil {
			return false
		}
		switch n := n.(type) {
		case *ast.Field:
			if !scope[n.Alias] {
				err = invalid("scope", "%s is not in scope", n)
			}
		case *ast.EntityRef:
			if !scope[n.Alias] {
				err = invalid("scope", "entity %q is not in scope", n.Alias)
			}
		case *ast.Func:
			if !identPattern.MatchString(n.Name) {
				err = invalid("function", "bad function name %q", n.Name)
			}
		case *ast.Case:
			err = validateCase(n)
		case *ast.SubQuery:
			switch {
			case n.Err != nil:
				err = n.Err
			case n.Query == nil:
				err = invalid("subquery", "empty subquery")
			default:
				err = validateSelect(n.Query, aliases)
			}
			return false
		}
		return err == nil
	})
	return err
}

func validateCase(c *ast.Case) error {
	if len(c.Whens) == 0 {
		return invalid("case", "case needs at least one when")
	}
	for _, w := range c.Whens {
		if w.Cond == nil || w.Then == nil {
			return invalid("case", "incomplete when in %s", c)
		}
	}
	if c.Else == nil {
		return invalid("case", "case needs otherwise")
	}
	return nil
}
