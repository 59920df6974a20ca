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

	"github.com/tomoncle/querydsl/ast"
)

// Assignment is one "field = value" pair of a bulk update, made with Set,
// SetExpr or SetNull on a field handle.
type Assignment struct {
	field ast.Expr
	value ast.Expr
}

func (a Assignment) String() string {
	if a.field == nil || a.value == nil {
		return "<nil>"
	}
	return a.field.String() + " = " + a.value.String()
}

// UpdateClause is an immutable bulk update of one entity. Bulk statements
// bypass entities already loaded into memory; re-query after executing one.
type UpdateClause struct {
	target *entityInfo
	sets   []Assignment
	where  *Predicate
	err    error
}

// Update starts a bulk update of target.
func Update(target Joinable) UpdateClause {
	info, err := target.joinable()
	return UpdateClause{target: info, err: err}
}

// Set appends assignments; they are applied in order.
func (u UpdateClause) Set(as ...Assignment) UpdateClause {
	u.sets = append(append([]Assignment(nil), u.sets...), as...)
	return u
}

// Where restricts the rows updated. Without it every row is updated.
func (u UpdateClause) Where(ps ...*Predicate) UpdateClause {
	u.where = u.where.And(AllOf(ps...))
	return u
}

func (u UpdateClause) Err() error {
	if u.err != nil {
		return u.err
	}
	if u.target == nil {
		return invalid("update", "no target entity")
	}
	if len(u.sets) == 0 {
		return invalid("update", "no assignments")
	}
	for _, a := range u.sets {
		f, ok := a.field.(*ast.Field)
		if !ok || f.Alias != u.target.alias || f.Entity != u.target.meta.Name {
			return invalid("update", "%v is not a field of %s", a.field, u.target.alias)
		}
		if a.value == nil {
			return invalid("update", "no value for %s", f)
		}
		if err := checkMutationExpr("update", a.value, u.target.alias); err != nil {
			return err
		}
	}
	return checkMutationExpr("update", u.where.Node(), u.target.alias)
}

func (u UpdateClause) lower() *ast.Update {
	stmt := &ast.Update{Where: u.where.Node()}
	if u.target != nil {
		stmt.Target = u.target.source()
	}
	for _, a := range u.sets {
		f, _ := a.field.(*ast.Field)
		stmt.Sets = append(stmt.Sets, ast.Assignment{Field: f, Value: a.value})
	}
	return stmt
}

func (u UpdateClause) String() string { return u.lower().String() }

// DeleteClause is an immutable bulk delete of one entity.
type DeleteClause struct {
	target *entityInfo
	where  *Predicate
	err    error
}

// Delete starts a bulk delete of target.
func Delete(target Joinable) DeleteClause {
	info, err := target.joinable()
	return DeleteClause{target: info, err: err}
}

// Where restricts the rows deleted. Without it every row is deleted.
func (d DeleteClause) Where(ps ...*Predicate) DeleteClause {
	d.where = d.where.And(AllOf(ps...))
	return d
}

func (d DeleteClause) Err() error {
	if d.err != nil {
		return d.err
	}
	if d.target == nil {
		return invalid("delete", "no target entity")
	}
	return checkMutationExpr("delete", d.where.Node(), d.target.alias)
}

func (d DeleteClause) lower() *ast.Delete {
	stmt := &ast.Delete{Where: d.where.Node()}
	if d.target != nil {
		stmt.Target = d.target.source()
	}
	return stmt
}

func (d DeleteClause) String() string { return d.lower().String() }

// checkMutationExpr rejects aggregates and fields of any other alias.
// Subqueries keep their own scope with alias as the enclosing one.
func checkMutationExpr(op string, e ast.Expr, alias string) error {
	if e == nil {
		return nil
	}
	if ast.Contains(e, ast.IsAggregate) {
		return invalid(op, "aggregate not allowed: %s", e)
	}
	return validateExpr(e, map[string]bool{alias: true}, []string{alias})
}

// BulkUpdate executes u and returns the number of rows changed.
func (e *Engine) BulkUpdate(ctx context.Context, u UpdateClause) (int64, error) {
	if err := e.check(); err != nil {
		return 0, err
	}
	if err := u.Err(); err != nil {
		return 0, err
	}
	stmt := u.lower()
	var n int64
	err := e.observe(ctx, "update", stmt, func() (int64, error) {
		var err error
		n, err = e.storage.Update(ctx, stmt)
		return n, err
	})
	return n, err
}

// BulkDelete executes d and returns the number of rows removed.
func (e *Engine) BulkDelete(ctx context.Context, d DeleteClause) (int64, error) {
	if err := e.check(); err != nil {
		return 0, err
	}
	if err := d.Err(); err != nil {
		return 0, err
	}
	stmt := d.lower()
	var n int64
	err := e.observe(ctx, "delete", stmt, func() (int64, error) {
		var err error
		n, err = e.storage.Delete(ctx, stmt)
		return n, err
	})
	return n, err
}
