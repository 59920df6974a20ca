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
	"fmt"
	"reflect"
	"strings"

	"github.com/tomoncle/querydsl/ast"
	"github.com/tomoncle/querydsl/schema"
)

// segment is the run of physical columns backing one logical column. Entity
// segments hold every mapped field of the entity in declaration order.
type segment struct {
	start  int
	width  int
	alias  string
	entity *schema.Entity
	idPos  int
}

type fetchLink struct {
	owner  string
	target string
	rel    *schema.Relation
}

// keyBinding tells hydration which column of an entity feeds a Ref key.
type keyBinding struct {
	rel    *schema.Relation
	pos    int
	column string
}

// plan is a select with entity columns expanded into their fields.
type plan struct {
	sel      *ast.Select
	logical  int
	segments []segment
	fetches  []fetchLink
	keys     map[string][]keyBinding
	toMany   bool
}

func newPlan(sel *ast.Select, ents map[string]*schema.Entity, reg *schema.Registry) (*plan, error) {
	p := &plan{sel: sel.Clone(), keys: make(map[string][]keyBinding)}
	var cols []ast.Expr
	placed := make(map[string]bool)
	addEntity := func(alias string) error {
		meta, ok := ents[alias]
		if !ok {
			return invalid("scope", "entity %q is not in scope", alias)
		}
		seg := segment{start: len(cols), width: len(meta.Fields), alias: alias, entity: meta}
		for i, f := range meta.Fields {
			if f == meta.ID {
				seg.idPos = i
			}
			cols = append(cols, &ast.Field{Alias: alias, Entity: meta.Name, Name: f.Name, Column: f.Column})
		}
		p.segments = append(p.segments, seg)
		placed[alias] = true
		if _, done := p.keys[meta.Name]; !done {
			keys, err := keyBindings(meta, reg)
			if err != nil {
				return err
			}
			p.keys[meta.Name] = keys
		}
		return nil
	}
	for _, c := range sel.Columns {
		if ref, ok := ast.Unalias(c).(*ast.EntityRef); ok {
			if err := addEntity(ref.Alias); err != nil {
				return nil, err
			}
			continue
		}
		p.segments = append(p.segments, segment{start: len(cols), width: 1})
		cols = append(cols, c)
	}
	p.logical = len(p.segments)
	for _, j := range sel.Joins {
		if !j.Fetch {
			continue
		}
		owner := ents[j.Owner]
		rel, ok := owner.Relation(j.Relation)
		if !ok {
			return nil, &UnknownFieldError{Entity: owner.Name, Field: j.Relation}
		}
		if !placed[j.Target.Alias] {
			if err := addEntity(j.Target.Alias); err != nil {
				return nil, err
			}
		}
		p.fetches = append(p.fetches, fetchLink{owner: j.Owner, target: j.Target.Alias, rel: rel})
		p.toMany = p.toMany || j.ToMany
	}
	p.sel.Columns = cols
	return p, nil
}

func keyBindings(meta *schema.Entity, reg *schema.Registry) ([]keyBinding, error) {
	var out []keyBinding
	for _, rel := range meta.Relations {
		link, err := reg.Link(rel)
		if err != nil {
			return nil, err
		}
		for i, f := range meta.Fields {
			if f.Column == link.OwnerColumn {
				out = append(out, keyBinding{rel: rel, pos: i, column: link.TargetColumn})
			}
		}
	}
	return out, nil
}

// withSelect returns a plan running sel, which must keep the column layout.
func (p *plan) withSelect(sel *ast.Select) *plan {
	c := *p
	c.sel = sel
	return &c
}

// hydrator builds entities for one execution. Rows naming the same entity
// identifier share one instance.
type hydrator struct {
	plan     *plan
	identity map[string]reflect.Value
}

func newHydrator(p *plan) *hydrator {
	return &hydrator{plan: p, identity: make(map[string]reflect.Value)}
}

func (h *hydrator) entity(seg segment, raw []any) (reflect.Value, error) {
	id := raw[seg.start+seg.idPos]
	if id == nil {
		return reflect.Value{}, nil
	}
	if b, ok := id.([]byte); ok {
		id = string(b)
	}
	key := seg.entity.Name + "#" + fmt.Sprint(id)
	if v, ok := h.identity[key]; ok {
		return v, nil
	}
	v := seg.entity.New()
	elem := v.Elem()
	for i, f := range seg.entity.Fields {
		if err := assign(elem.FieldByIndex(f.Index), raw[seg.start+i]); err != nil {
			return reflect.Value{}, fmt.Errorf("querydsl: %s.%s: %w", seg.entity.Name, f.Name, err)
		}
	}
	for _, kb := range h.plan.keys[seg.entity.Name] {
		binder, ok := elem.FieldByIndex(kb.rel.Index).Addr().Interface().(refBinder)
		if !ok {
			continue
		}
		binder.bindKey(raw[seg.start+kb.pos], kb.column)
	}
	h.identity[key] = v
	return v, nil
}

// row hydrates raw and returns one value per logical column.
func (h *hydrator) row(raw []any) ([]any, error) {
	p := h.plan
	if want := len(p.sel.Columns); len(raw) != want {
		return nil, fmt.Errorf("querydsl: storage returned %d columns, expected %d", len(raw), want)
	}
	vals := make([]any, p.logical)
	loaded := make(map[string]reflect.Value, len(p.segments))
	for i, seg := range p.segments {
		if seg.entity == nil {
			vals[i] = raw[seg.start]
			continue
		}
		v, err := h.entity(seg, raw)
		if err != nil {
			return nil, err
		}
		loaded[seg.alias] = v
		if i < p.logical && v.IsValid() {
			vals[i] = v.Interface()
		}
	}
	for _, f := range p.fetches {
		owner := loaded[f.owner]
		if !owner.IsValid() {
			continue
		}
		binder, ok := owner.Elem().FieldByIndex(f.rel.Index).Addr().Interface().(refBinder)
		if !ok {
			continue
		}
		var target any
		if t := loaded[f.target]; t.IsValid() {
			target = t.Interface()
		}
		if f.rel.Kind == schema.OneToMany {
			binder.markResolved()
			binder.add(target)
		} else {
			binder.resolveWith(target)
		}
	}
	return vals, nil
}

// rowKey identifies a hydrated row: entities by instance, scalars by type
// and value.
func rowKey(vals []any) string {
	var b strings.Builder
	for _, v := range vals {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr {
			fmt.Fprintf(&b, "%p|", v)
			continue
		}
		fmt.Fprintf(&b, "%T:%q|", v, fmt.Sprint(v))
	}
	return b.String()
}
