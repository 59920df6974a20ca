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
	"encoding/json"
	"reflect"
)

// refBinder is how hydration wires relationship fields of a loaded entity.
type refBinder interface {
	bindKey(key any, column string)
	resolveWith(v any)
	markResolved()
	add(v any)
}

// Ref is a many-to-one relationship field. It starts unresolved and is
// resolved only by a fetch join, by LoadRef or by Set.
type Ref[T any] struct {
	value    *T
	resolved bool
	key      any
	column   string
}

func (Ref[T]) RelationTarget() reflect.Type { return typeOf[T]() }
func (Ref[T]) RelationToMany() bool         { return false }

// NewRef returns a resolved reference to v.
func NewRef[T any](v *T) Ref[T] { return Ref[T]{value: v, resolved: true} }

// Resolved reports whether the related entity has been materialized.
func (r *Ref[T]) Resolved() bool { return r.resolved }

// Get returns the related entity, nil when the relationship is empty, or
// ErrUnresolved when it was never loaded.
func (r *Ref[T]) Get() (*T, error) {
	if !r.resolved {
		return nil, ErrUnresolved
	}
	return r.value, nil
}

// Key is the stored key value the relationship points at, nil when empty.
func (r *Ref[T]) Key() any { return r.key }

// Set resolves the reference to v. It does not change any stored key.
func (r *Ref[T]) Set(v *T) {
	r.value = v
	r.resolved = true
}

func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if !r.resolved {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

func (r *Ref[T]) bindKey(key any, column string) {
	r.key = key
	r.column = column
}

func (r *Ref[T]) resolveWith(v any) {
	r.value, _ = v.(*T)
	r.resolved = true
}

func (r *Ref[T]) markResolved() { r.resolved = true }

func (r *Ref[T]) add(v any) { r.resolveWith(v) }

// RefList is a one-to-many relationship field with the same materialization
// rules as Ref.
type RefList[T any] struct {
	items    []*T
	resolved bool
	key      any
	column   string
}

func (RefList[T]) RelationTarget() reflect.Type { return typeOf[T]() }
func (RefList[T]) RelationToMany() bool         { return true }

func (l *RefList[T]) Resolved() bool { return l.resolved }

// Get returns the related entities or ErrUnresolved.
func (l *RefList[T]) Get() ([]*T, error) {
	if !l.resolved {
		return nil, ErrUnresolved
	}
	return l.items, nil
}

func (l *RefList[T]) Key() any { return l.key }

// Set resolves the list to items.
func (l *RefList[T]) Set(items []*T) {
	l.items = items
	l.resolved = true
}

func (l RefList[T]) MarshalJSON() ([]byte, error) {
	if !l.resolved {
		return []byte("null"), nil
	}
	return json.Marshal(l.items)
}

func (l *RefList[T]) bindKey(key any, column string) {
	l.key = key
	l.column = column
}

func (l *RefList[T]) resolveWith(v any) {
	l.items = nil
	l.resolved = true
	l.add(v)
}

func (l *RefList[T]) markResolved() { l.resolved = true }

func (l *RefList[T]) add(v any) {
	item, ok := v.(*T)
	if !ok || item == nil {
		return
	}
	for _, have := range l.items {
		if have == item {
			return
		}
	}
	l.items = append(l.items, item)
}
