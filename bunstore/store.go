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

package bunstore

import (
	"context"
	"database/sql"
	"math"
	"strconv"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/querydsl"
	"github.com/tomoncle/querydsl/ast"
)

// Store runs statements on a bun.DB or bun.Tx.
type Store struct {
	db bun.IDB
}

var _ querydsl.Storage = (*Store)(nil)

// New creates a store over db.
func New(db bun.IDB) *Store {
	return &Store{db: db}
}

// DB returns the connection the store runs on.
func (s *Store) DB() bun.IDB { return s.db }

// SQL renders sel in the connected dialect, for logs and tests.
func (s *Store) SQL(sel *ast.Select) (string, error) {
	if err := check(sel); err != nil {
		return "", err
	}
	q, err := s.selectQuery(sel)
	if err != nil {
		return "", err
	}
	b, err := q.AppendQuery(schema.NewFormatter(s.db.Dialect()), nil)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func column(i int) bun.Ident { return ident("c" + strconv.Itoa(i)) }

func (s *Store) selectQuery(sel *ast.Select) (*bun.SelectQuery, error) {
	q := s.db.NewSelect().
		TableExpr("? AS ?", ident(sel.From.Table), ident(sel.From.Alias))
	for i, c := range sel.Columns {
		q = q.ColumnExpr("? AS ?", expr{s, c}, column(i))
	}
	for _, j := range sel.Joins {
		q = s.join(q, j)
	}
	if sel.Where != nil {
		q = q.Where("?", expr{s, sel.Where})
	}
	for _, g := range sel.GroupBy {
		q = q.GroupExpr("?", expr{s, g})
	}
	if sel.Having != nil {
		q = q.Having("?", expr{s, sel.Having})
	}
	for _, o := range sel.OrderBy {
		q = q.OrderExpr("?", order{s, o})
	}
	if sel.Distinct {
		q = q.Distinct()
	}
	switch {
	case sel.HasLimit:
		q = q.Limit(int(sel.Limit))
	case sel.Offset > 0:
		q = q.Limit(math.MaxInt32)
	}
	if sel.Offset > 0 {
		q = q.Offset(int(sel.Offset))
	}
	return q, nil
}

func (s *Store) join(q *bun.SelectQuery, j *ast.Join) *bun.SelectQuery {
	var cond ast.Expr
	switch {
	case j.Cond != nil && j.On != nil:
		cond = &ast.Logical{Op: ast.OpAnd, Left: j.Cond, Right: j.On}
	case j.Cond != nil:
		cond = j.Cond
	default:
		cond = j.On
	}
	table, alias := ident(j.Target.Table), ident(j.Target.Alias)
	switch {
	case j.Kind == ast.CrossJoin || cond == nil:
		return q.Join("CROSS JOIN ? AS ?", table, alias)
	case j.Kind == ast.LeftJoin:
		return q.Join("LEFT JOIN ? AS ? ON ?", table, alias, expr{s, cond})
	default:
		return q.Join("JOIN ? AS ? ON ?", table, alias, expr{s, cond})
	}
}

// Select returns one value slice per row. Byte slices are copied into
// strings since drivers reuse their buffers.
func (s *Store) Select(ctx context.Context, sel *ast.Select) ([][]any, error) {
	if err := check(sel); err != nil {
		return nil, err
	}
	q, err := s.selectQuery(sel)
	if err != nil {
		return nil, err
	}
	rows, err := q.Rows(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([][]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

// Count counts the rows sel returns. Distinct, grouped and aggregate selects
// are counted through a derived table.
func (s *Store) Count(ctx context.Context, sel *ast.Select) (int64, error) {
	if err := check(sel); err != nil {
		return 0, err
	}
	var n int64
	if needsDerived(sel) {
		inner, err := s.selectQuery(sel)
		if err != nil {
			return 0, err
		}
		err = s.db.NewSelect().
			ColumnExpr("count(*)").
			TableExpr("(?) AS ?", inner, ident("q")).
			Scan(ctx, &n)
		return n, err
	}
	bare := sel.Clone()
	bare.Columns = nil
	bare.OrderBy = nil
	q, err := s.selectQuery(bare)
	if err != nil {
		return 0, err
	}
	err = q.ColumnExpr("count(*)").Scan(ctx, &n)
	return n, err
}

func needsDerived(sel *ast.Select) bool {
	if sel.Distinct || len(sel.GroupBy) > 0 || sel.Having != nil || sel.HasLimit || sel.Offset > 0 {
		return true
	}
	for _, c := range sel.Columns {
		if ast.Contains(c, ast.IsAggregate) {
			return true
		}
	}
	return false
}

// Update runs a bulk update and returns the affected row count.
func (s *Store) Update(ctx context.Context, upd *ast.Update) (int64, error) {
	q := s.db.NewUpdate().
		TableExpr("? AS ?", ident(upd.Target.Table), ident(upd.Target.Alias))
	for _, a := range upd.Sets {
		if err := checkExpr(a.Value); err != nil {
			return 0, err
		}
		q = q.Set("? = ?", ident(a.Field.Column), expr{s, a.Value})
	}
	if upd.Where != nil {
		if err := checkExpr(upd.Where); err != nil {
			return 0, err
		}
		q = q.Where("?", expr{s, upd.Where})
	} else {
		q = q.Where("1 = 1")
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete runs a bulk delete and returns the affected row count.
func (s *Store) Delete(ctx context.Context, del *ast.Delete) (int64, error) {
	q := s.db.NewDelete().
		TableExpr("? AS ?", ident(del.Target.Table), ident(del.Target.Alias))
	if del.Where != nil {
		if err := checkExpr(del.Where); err != nil {
			return 0, err
		}
		q = q.Where("?", expr{s, del.Where})
	} else {
		q = q.Where("1 = 1")
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
