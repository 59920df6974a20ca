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
	"errors"
	"reflect"
	"regexp"

	"github.com/tomoncle/querydsl/ast"
	"github.com/tomoncle/querydsl/schema"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// JoinKind selects inner or left outer joins.
type JoinKind = ast.JoinKind

const (
	JoinInner = ast.InnerJoin
	JoinLeft  = ast.LeftJoin
)

// entityInfo is a registered entity bound to an alias.
type entityInfo struct {
	reg   *schema.Registry
	meta  *schema.Entity
	alias string
}

func (i *entityInfo) source() ast.Source {
	return ast.Source{Entity: i.meta.Name, Table: i.meta.Table, Alias: i.alias}
}

func (i *entityInfo) field(f *schema.Field) *ast.Field {
	return &ast.Field{Alias: i.alias, Entity: i.meta.Name, Name: f.Name, Column: f.Column}
}

// Joinable is anything that can appear as a query source: an EntityPath or
// a Q-type embedding one.
type Joinable interface {
	joinable() (*entityInfo, error)
}

// EntitySource is a Joinable whose rows hydrate into E.
type EntitySource[E any] interface {
	Joinable
	Path() EntityPath[E]
}

// EntityPath is the typed root handle of an entity under one alias. As an
// expression it stands for the whole entity row.
type EntityPath[E any] struct {
	info *entityInfo
	err  error
}

// NewEntityPath binds the registered entity E to alias.
func NewEntityPath[E any](reg *schema.Registry, alias string) (EntityPath[E], error) {
	if !identPattern.MatchString(alias) {
		return EntityPath[E]{}, invalid("path", "alias %q is not an identifier", alias)
	}
	meta, err := reg.EntityOf(typeOf[E]())
	if err != nil {
		return EntityPath[E]{}, err
	}
	return EntityPath[E]{info: &entityInfo{reg: reg, meta: meta, alias: alias}}, nil
}

func (p EntityPath[E]) Path() EntityPath[E] { return p }

func (p EntityPath[E]) joinable() (*entityInfo, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.info == nil {
		return nil, invalid("path", "entity path for %s is not initialised", typeOf[E]())
	}
	return p.info, nil
}

// Alias is the name the entity is referred to by in a query.
func (p EntityPath[E]) Alias() string {
	if p.info == nil {
		return ""
	}
	return p.info.alias
}

// Meta is the registered shape of E.
func (p EntityPath[E]) Meta() *schema.Entity {
	if p.info == nil {
		return nil
	}
	return p.info.meta
}

func (p EntityPath[E]) Node() ast.Expr {
	if p.info == nil {
		return &ast.EntityRef{Entity: typeOf[E]().Name()}
	}
	return &ast.EntityRef{Alias: p.info.alias, Entity: p.info.meta.Name}
}

func (p EntityPath[E]) goType() reflect.Type { return typeOf[*E]() }
func (p EntityPath[E]) valueOf() (v *E)      { return }

func (p EntityPath[E]) String() string { return p.Alias() }

func (p EntityPath[E]) idNode() ast.Expr {
	if p.info == nil {
		return p.Node()
	}
	return p.info.field(p.info.meta.ID)
}

// Identifier is the identifier field of E. It is typed loosely since the
// identifier's Go type differs between entities.
func (p EntityPath[E]) Identifier() SimpleExpr[any] {
	return SimpleExpr[any]{base[any]{node: p.idNode()}}
}

// Count counts entity rows by identifier.
func (p EntityPath[E]) Count() NumberExpr[int64] {
	return numberOf[int64](&ast.Aggregate{Func: ast.AggCount, Operand: p.idNode()})
}

// CountDistinct counts distinct entities, collapsing to-many fan-out.
func (p EntityPath[E]) CountDistinct() NumberExpr[int64] {
	return numberOf[int64](&ast.Aggregate{Func: ast.AggCount, Operand: p.idNode(), Distinct: true})
}

// EqEntity matches rows whose identifier equals the identifier of other,
// as in a theta join "m.team = t".
func (p EntityPath[E]) EqEntity(other EntityPath[E]) *Predicate {
	return newPredicate(&ast.Binary{Op: ast.OpEq, Left: p.idNode(), Right: other.idNode()})
}

// RelationPath is a relationship handle usable as a join path.
type RelationPath interface {
	relation() (*entityInfo, *schema.Relation, error)
}

// Relation is a relationship field of an aliased entity whose target is T.
type Relation[T any] struct {
	owner *entityInfo
	rel   *schema.Relation
}

func (r Relation[T]) relation() (*entityInfo, *schema.Relation, error) {
	if r.owner == nil || r.rel == nil {
		return nil, nil, invalid("join", "relation path to %s is not initialised", typeOf[T]())
	}
	return r.owner, r.rel, nil
}

// Meta is the registered relationship.
func (r Relation[T]) Meta() *schema.Relation { return r.rel }

func (r Relation[T]) String() string {
	if r.owner == nil || r.rel == nil {
		return "<nil>"
	}
	return r.owner.alias + "." + r.rel.Name
}

// PathBuilder derives typed field handles for E under one alias. Lookup
// failures are collected and reported by Err, so a Q-type constructor can
// declare all of its fields and check once.
type PathBuilder[E any] struct {
	path EntityPath[E]
	errs []error
}

// NewPathBuilder starts a builder for entity E bound to alias.
func NewPathBuilder[E any](reg *schema.Registry, alias string) *PathBuilder[E] {
	p, err := NewEntityPath[E](reg, alias)
	b := &PathBuilder[E]{path: p}
	if err != nil {
		b.path.err = err
		b.errs = append(b.errs, err)
	}
	return b
}

// Path is the entity handle the fields belong to.
func (b *PathBuilder[E]) Path() EntityPath[E] { return b.path }

// Err joins every lookup failure recorded so far.
func (b *PathBuilder[E]) Err() error { return errors.Join(b.errs...) }

func (b *PathBuilder[E]) lookup(name string, want reflect.Type) ast.Expr {
	info := b.path.info
	if info == nil {
		return &ast.Field{Name: name}
	}
	f, ok := info.meta.Field(name)
	if !ok {
		b.errs = append(b.errs, &UnknownFieldError{Entity: info.meta.Name, Field: name})
		return &ast.Field{Alias: info.alias, Entity: info.meta.Name, Name: name}
	}
	got := f.Type
	if got.Kind() == reflect.Ptr {
		got = got.Elem()
	}
	if want != nil && got != want && f.Type != want {
		b.errs = append(b.errs, invalid("path", "%s.%s has type %s, not %s", info.meta.Name, name, f.Type, want))
	}
	return info.field(f)
}

// NumberPath is the numeric field name of E.
func NumberPath[N Numeric, E any](b *PathBuilder[E], name string) NumberExpr[N] {
	return numberOf[N](b.lookup(name, typeOf[N]()))
}

// StringPath is the text field name of E.
func StringPath[E any](b *PathBuilder[E], name string) StringExpr {
	return stringOf(b.lookup(name, typeOf[string]()))
}

// BoolPath is the boolean field name of E.
func BoolPath[E any](b *PathBuilder[E], name string) SimpleExpr[bool] {
	return SimpleExpr[bool]{base[bool]{node: b.lookup(name, typeOf[bool]())}}
}

// ValuePath is a field of any other type, such as time.Time.
func ValuePath[T, E any](b *PathBuilder[E], name string) SimpleExpr[T] {
	return SimpleExpr[T]{base[T]{node: b.lookup(name, typeOf[T]())}}
}

// RelationOf is the relationship field name of E whose target is T.
func RelationOf[T, E any](b *PathBuilder[E], name string) Relation[T] {
	info := b.path.info
	if info == nil {
		return Relation[T]{}
	}
	rel, ok := info.meta.Relation(name)
	if !ok {
		b.errs = append(b.errs, &UnknownFieldError{Entity: info.meta.Name, Field: name})
		return Relation[T]{}
	}
	if rel.TargetType != typeOf[T]() {
		b.errs = append(b.errs, invalid("path", "%s.%s targets %s, not %s", info.meta.Name, name, rel.Target, typeOf[T]()))
	}
	return Relation[T]{owner: info, rel: rel}
}
