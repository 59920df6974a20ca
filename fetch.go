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
	"context"
	"slices"

	"github.com/tomoncle/querydsl/ast"
)

// Page is one window of a result together with the total number of rows the
// query matches without offset and limit. Items and Total come from two
// separate storage calls and are only consistent when the storage runs them
// in one snapshot, such as a repeatable-read transaction.
type Page[R any] struct {
	Items  []R
	Total  int64
	Offset int64
	// Limit is -1 when the query has no limit.
	Limit int64
}

// HasNext reports whether rows remain after this page.
func (p Page[R]) HasNext() bool {
	return p.Limit >= 0 && p.Offset+int64(len(p.Items)) < p.Total
}

func (q Query[R]) prepare(e *Engine) (*plan, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return newPlan(q.lower(), q.state().entities(), e.reg)
}

// execute runs p. With dedupe set, repeated rows produced by to-many fetch
// joins are collapsed. A to-many fetch join is always read without offset
// and limit, which are applied to the hydrated rows, so every fetched
// collection is complete.
func (q Query[R]) execute(ctx context.Context, e *Engine, op string, p *plan, dedupe bool) ([]R, error) {
	sel := p.sel
	var offset, limit int64 = 0, -1
	if p.toMany && (sel.HasLimit || sel.Offset > 0) {
		offset = sel.Offset
		if sel.HasLimit {
			limit = sel.Limit
		}
		sel = sel.Clone()
		sel.Offset, sel.Limit, sel.HasLimit = 0, 0, false
		p = p.withSelect(sel)
	}
	if (sel.HasLimit && sel.Limit == 0) || limit == 0 {
		return []R{}, nil
	}
	var rows [][]any
	err := e.observe(ctx, op, sel, func() (int64, error) {
		var err error
		rows, err = e.storage.Select(ctx, sel)
		return int64(len(rows)), err
	})
	if err != nil {
		return nil, err
	}
	h := newHydrator(p)
	seen := make(map[string]bool)
	out := make([]R, 0, len(rows))
	for _, raw := range rows {
		vals, err := h.row(raw)
		if err != nil {
			return nil, err
		}
		if dedupe {
			key := rowKey(vals)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		r, err := q.proj.bind(vals)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if offset > 0 || limit >= 0 {
		out = window(out, offset, limit)
	}
	return out, nil
}

func window[R any](rows []R, offset, limit int64) []R {
	if offset >= int64(len(rows)) {
		return []R{}
	}
	rows = rows[offset:]
	if limit >= 0 && limit < int64(len(rows)) {
		rows = rows[:limit]
	}
	return rows
}

// Fetch returns every row, honouring ordering, offset and limit. A to-many
// fetch join repeats the root once per related row unless Distinct is set.
func (q Query[R]) Fetch(ctx context.Context, e *Engine) ([]R, error) {
	p, err := q.prepare(e)
	if err != nil {
		return nil, err
	}
	return q.execute(ctx, e, "fetch", p, p.toMany && p.sel.Distinct)
}

// capped returns p with its limit lowered to n.
func capped(p *plan, n int64) *plan {
	sel := p.sel.Clone()
	if !sel.HasLimit || sel.Limit > n {
		sel.Limit, sel.HasLimit = n, true
	}
	return p.withSelect(sel)
}

// FetchOne returns the single matching row. It fails with ErrNoResult when
// nothing matches and with TooManyResultsError when more than one row does.
func (q Query[R]) FetchOne(ctx context.Context, e *Engine) (R, error) {
	var zero R
	p, err := q.prepare(e)
	if err != nil {
		return zero, err
	}
	if !p.toMany {
		p = capped(p, 2)
	}
	rows, err := q.execute(ctx, e, "fetchOne", p, p.toMany)
	if err != nil {
		return zero, err
	}
	switch len(rows) {
	case 0:
		return zero, ErrNoResult
	case 1:
		return rows[0], nil
	default:
		return zero, &TooManyResultsError{Query: q.String()}
	}
}

// FetchFirst returns the first row in query order. It never fails because
// of additional matches; it returns ErrNoResult when nothing matches.
func (q Query[R]) FetchFirst(ctx context.Context, e *Engine) (R, error) {
	var zero R
	p, err := q.prepare(e)
	if err != nil {
		return zero, err
	}
	rows, err := q.execute(ctx, e, "fetchFirst", capped(p, 1), p.toMany)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, ErrNoResult
	}
	return rows[0], nil
}

// FetchCount returns the number of rows the query matches, ignoring offset,
// limit and ordering. It counts in the unit Fetch returns: joined rows for a
// to-many fetch join, roots once Distinct is set.
func (q Query[R]) FetchCount(ctx context.Context, e *Engine) (int64, error) {
	if err := e.check(); err != nil {
		return 0, err
	}
	if err := q.Validate(); err != nil {
		return 0, err
	}
	sel := countSelect(q.lower(), q.state())
	var n int64
	err := e.observe(ctx, "count", sel, func() (int64, error) {
		var err error
		n, err = e.storage.Count(ctx, sel)
		return n, err
	})
	return n, err
}

// FetchPage runs the content query and the count query as two independent
// storage calls.
func (q Query[R]) FetchPage(ctx context.Context, e *Engine) (Page[R], error) {
	items, err := q.Fetch(ctx, e)
	if err != nil {
		return Page[R]{}, err
	}
	total, err := q.FetchCount(ctx, e)
	if err != nil {
		return Page[R]{}, err
	}
	st := q.state()
	page := Page[R]{Items: items, Total: total, Offset: st.offset, Limit: -1}
	if st.hasLimit {
		page.Limit = st.limit
	}
	return page, nil
}

// countSelect derives the count statement: ordering and paging are dropped,
// and entity columns are reduced to their identifiers. A left fetch join
// nobody else refers to is removed when it cannot change the row count: it
// is to-one, or the query is distinct.
func countSelect(sel *ast.Select, st *queryState) *ast.Select {
	c := sel.Clone()
	c.OrderBy = nil
	c.Offset, c.Limit, c.HasLimit = 0, 0, false
	for i := len(c.Joins) - 1; i >= 0; i-- {
		j := c.Joins[i]
		if j.ToMany && !c.Distinct {
			continue
		}
		if j.Fetch && j.Kind == ast.LeftJoin && !referenced(c, j.Target.Alias, i) {
			c.Joins = slices.Delete(c.Joins, i, i+1)
		}
	}
	ents := st.entities()
	toMany := false
	for _, j := range c.Joins {
		toMany = toMany || (j.Fetch && j.ToMany)
	}
	for i, col := range c.Columns {
		if ref, ok := ast.Unalias(col).(*ast.EntityRef); ok {
			if meta, ok := ents[ref.Alias]; ok {
				c.Columns[i] = &ast.Field{Alias: ref.Alias, Entity: meta.Name, Name: meta.ID.Name, Column: meta.ID.Column}
			}
		}
	}
	if toMany && c.Distinct && len(c.GroupBy) == 0 && st.from != nil {
		root := st.from.meta
		c.Columns = []ast.Expr{&ast.Field{Alias: st.from.alias, Entity: root.Name, Name: root.ID.Name, Column: root.ID.Column}}
	}
	return c
}

// referenced reports whether alias is used anywhere in sel other than by the
// join at index self.
func referenced(sel *ast.Select, alias string, self int) bool {
	uses := func(e ast.Expr) bool {
		return ast.Contains(e, func(n ast.Expr) bool {
			switch n := n.(type) {
			case *ast.Field:
				return n.Alias == alias
			case *ast.EntityRef:
				return n.Alias == alias
			}
			return false
		})
	}
	for i, j := range sel.Joins {
		if i == self {
			continue
		}
		if j.Owner == alias || (j.On != nil && uses(j.On)) {
			return true
		}
	}
	for _, e := range sel.Columns {
		if uses(e) {
			return true
		}
	}
	if sel.Where != nil && uses(sel.Where) {
		return true
	}
	for _, e := range sel.GroupBy {
		if uses(e) {
			return true
		}
	}
	return sel.Having != nil && uses(sel.Having)
}
