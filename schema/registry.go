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

package schema

import (
	"fmt"
	"reflect"
	"sync"
)

// Registry stores entity shapes and exposes them in registration order.
// It is safe for concurrent use; registration normally happens once at start.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Entity
	types    map[reflect.Type]*Entity
	order    []*Entity
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*Entity),
		types:    make(map[reflect.Type]*Entity),
	}
}

// Register parses and adds models. Registering the same type twice is a no-op.
func (r *Registry) Register(models ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, model := range models {
		e, err := parseEntity(model)
		if err != nil {
			return err
		}
		if prev, ok := r.entities[e.Name]; ok {
			if prev.Type == e.Type {
				continue
			}
			return &RegistrationError{Entity: e.Name, Reason: "name already registered by " + prev.Type.String()}
		}
		r.entities[e.Name] = e
		r.types[e.Type] = e
		r.order = append(r.order, e)
	}
	return nil
}

// MustRegister is Register that panics, for package-level wiring.
func (r *Registry) MustRegister(models ...any) *Registry {
	if err := r.Register(models...); err != nil {
		panic(err)
	}
	return r
}

// Entity returns the entity registered under name.
func (r *Registry) Entity(name string) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[name]
	if !ok {
		return nil, &UnknownEntityError{Entity: name}
	}
	return e, nil
}

// EntityOf returns the entity for a Go type; pointer types are dereferenced.
func (r *Registry) EntityOf(t reflect.Type) (*Entity, error) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.types[t]
	if !ok {
		return nil, &UnknownEntityError{Entity: typeName(t)}
	}
	return e, nil
}

// Field resolves entity.name to a scalar field.
func (r *Registry) Field(entity, name string) (*Field, error) {
	e, err := r.Entity(entity)
	if err != nil {
		return nil, err
	}
	f, ok := e.Field(name)
	if !ok {
		return nil, &UnknownFieldError{Entity: entity, Field: name}
	}
	return f, nil
}

// Relation resolves entity.name to a relation field.
func (r *Registry) Relation(entity, name string) (*Relation, error) {
	e, err := r.Entity(entity)
	if err != nil {
		return nil, err
	}
	rel, ok := e.Relation(name)
	if !ok {
		return nil, &UnknownFieldError{Entity: entity, Field: name}
	}
	return rel, nil
}

// Entities returns a snapshot in registration order.
func (r *Registry) Entities() []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entity, len(r.order))
	copy(out, r.order)
	return out
}

// Link is a relation resolved against both of its entities: the rows match
// when Owner.OwnerColumn equals Target.TargetColumn.
type Link struct {
	Relation     *Relation
	Owner        *Entity
	Target       *Entity
	OwnerColumn  string
	TargetColumn string
}

// Link resolves the columns a relation joins on.
func (r *Registry) Link(rel *Relation) (*Link, error) {
	owner, err := r.Entity(rel.Owner)
	if err != nil {
		return nil, err
	}
	target, err := r.Entity(rel.Target)
	if err != nil {
		return nil, err
	}
	l := &Link{Relation: rel, Owner: owner, Target: target}
	switch rel.Kind {
	case ManyToOne:
		l.OwnerColumn = rel.JoinColumn
		l.TargetColumn = target.ID.Column
	case OneToMany:
		inverse, ok := target.Relation(rel.MappedBy)
		if !ok {
			return nil, &UnknownFieldError{Entity: target.Name, Field: rel.MappedBy}
		}
		if inverse.Kind != ManyToOne || inverse.Target != owner.Name {
			return nil, fmt.Errorf("schema: %s.%s is not a many-to-one relation to %s", target.Name, rel.MappedBy, owner.Name)
		}
		l.OwnerColumn = owner.ID.Column
		l.TargetColumn = inverse.JoinColumn
	}
	return l, nil
}
