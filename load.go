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

// LoadRef resolves a many-to-one reference hydrated by a query, issuing one
// select on e. An already resolved reference is returned as is.
func LoadRef[T any](ctx context.Context, e *Engine, ref *Ref[T]) (*T, error) {
	if ref.resolved {
		return ref.value, nil
	}
	if ref.column == "" {
		return nil, invalid("load", "reference to %s was not read from storage", typeOf[T]())
	}
	if ref.key == nil {
		ref.Set(nil)
		return nil, nil
	}
	rows, err := loadTargets[T](ctx, e, ref.column, ref.key)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoResult
	}
	ref.Set(rows[0])
	return rows[0], nil
}

// LoadRefList resolves a one-to-many collection hydrated by a query, ordered
// by identifier.
func LoadRefList[T any](ctx context.Context, e *Engine, list *RefList[T]) ([]*T, error) {
	if list.resolved {
		return list.items, nil
	}
	if list.column == "" {
		return nil, invalid("load", "collection of %s was not read from storage", typeOf[T]())
	}
	if list.key == nil {
		list.Set(nil)
		return nil, nil
	}
	rows, err := loadTargets[T](ctx, e, list.column, list.key)
	if err != nil {
		return nil, err
	}
	list.Set(rows)
	return rows, nil
}

func loadTargets[T any](ctx context.Context, e *Engine, column string, key any) ([]*T, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	path, err := NewEntityPath[T](e.reg, "r")
	if err != nil {
		return nil, err
	}
	meta := path.Meta()
	f, ok := meta.FieldByColumn(column)
	if !ok {
		return nil, &UnknownFieldError{Entity: meta.Name, Field: column}
	}
	match := newPredicate(&ast.Binary{Op: ast.OpEq, Left: path.info.field(f), Right: literal(key)})
	return SelectFrom[T](path).Where(match).OrderBy(path.Identifier().Asc()).Fetch(ctx, e)
}
