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
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/uptrace/bun"
)

// Kind is the semantic type of a scalar field.
type Kind int

const (
	KindOther Kind = iota
	KindNumber
	KindString
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return "other"
	}
}

// RelationKind tells which side of a foreign key a relation field sits on.
type RelationKind int

const (
	ManyToOne RelationKind = iota
	OneToMany
)

func (k RelationKind) String() string {
	if k == OneToMany {
		return "one-to-many"
	}
	return "many-to-one"
}

// RelationHolder is implemented by the field types that carry a relationship
// (querydsl.Ref and querydsl.RefList). Methods must use value receivers so the
// zero value of the field type can be inspected.
type RelationHolder interface {
	RelationTarget() reflect.Type
	RelationToMany() bool
}

var (
	baseModelType = reflect.TypeOf(bun.BaseModel{})
	timeType      = reflect.TypeOf(time.Time{})
	holderType    = reflect.TypeOf((*RelationHolder)(nil)).Elem()
)

// Field is a mapped scalar column of an entity.
type Field struct {
	Name     string
	Column   string
	GoName   string
	Index    []int
	Type     reflect.Type
	Kind     Kind
	Nullable bool
	PK       bool
}

// Relation is a relationship field of an entity.
type Relation struct {
	Name       string
	GoName     string
	Index      []int
	Kind       RelationKind
	Owner      string
	Target     string
	TargetType reflect.Type
	// JoinColumn is the owner column holding the target identifier (many-to-one).
	JoinColumn string
	// MappedBy names the many-to-one relation on the target (one-to-many).
	MappedBy string
}

// Entity is the registered shape of a model struct.
type Entity struct {
	Name      string
	Table     string
	Type      reflect.Type
	ID        *Field
	Fields    []*Field
	Relations []*Relation

	fields    map[string]*Field
	columns   map[string]*Field
	relations map[string]*Relation
}

// Field looks a scalar field up by its query name.
func (e *Entity) Field(name string) (*Field, bool) {
	f, ok := e.fields[name]
	return f, ok
}

// FieldByColumn looks a scalar field up by its column name.
func (e *Entity) FieldByColumn(column string) (*Field, bool) {
	f, ok := e.columns[column]
	return f, ok
}

// Relation looks a relation field up by its query name.
func (e *Entity) Relation(name string) (*Relation, bool) {
	r, ok := e.relations[name]
	return r, ok
}

// New allocates a zero entity and returns it as a pointer value.
func (e *Entity) New() reflect.Value {
	return reflect.New(e.Type)
}

func parseEntity(model any) (*Entity, error) {
	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &RegistrationError{Entity: typeName(t), Reason: "model must be a struct or a pointer to struct"}
	}
	e := &Entity{
		Name:      t.Name(),
		Type:      t,
		fields:    make(map[string]*Field),
		columns:   make(map[string]*Field),
		relations: make(map[string]*Relation),
	}
	if err := e.collect(t, nil); err != nil {
		return nil, err
	}
	if e.Table == "" {
		e.Table = toSnake(t.Name())
	}
	if e.ID == nil {
		return nil, &RegistrationError{Entity: e.Name, Reason: "no field tagged pk"}
	}
	for _, rel := range e.Relations {
		if rel.Kind != ManyToOne {
			continue
		}
		if _, ok := e.columns[rel.JoinColumn]; !ok {
			return nil, &RegistrationError{Entity: e.Name, Reason: "relation " + rel.Name + " joins on unmapped column " + rel.JoinColumn}
		}
	}
	return e, nil
}

func (e *Entity) collect(t reflect.Type, index []int) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		idx := append(append([]int(nil), index...), i)
		if sf.Type == baseModelType {
			e.Table = tagOption(sf.Tag.Get("bun"), "table")
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if sf.Type.Implements(holderType) {
			rel, err := e.parseRelation(sf, idx)
			if err != nil {
				return err
			}
			e.Relations = append(e.Relations, rel)
			e.relations[rel.Name] = rel
			continue
		}
		bunTag := sf.Tag.Get("bun")
		if bunTag == "-" {
			continue
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && sf.Type != timeType {
			if err := e.collect(sf.Type, idx); err != nil {
				return err
			}
			continue
		}
		parts := strings.Split(bunTag, ",")
		column := parts[0]
		if column == "" {
			column = toSnake(sf.Name)
		}
		f := &Field{
			Name:     queryName(sf),
			Column:   column,
			GoName:   sf.Name,
			Index:    idx,
			Type:     sf.Type,
			Kind:     kindOf(sf.Type),
			Nullable: sf.Type.Kind() == reflect.Ptr,
		}
		for _, opt := range parts[1:] {
			switch opt {
			case "pk":
				f.PK = true
			case "nullzero":
				f.Nullable = true
			}
		}
		if _, dup := e.fields[f.Name]; dup {
			return &RegistrationError{Entity: e.Name, Reason: "duplicate field name " + f.Name}
		}
		if f.PK {
			if e.ID != nil {
				return &RegistrationError{Entity: e.Name, Reason: "composite primary keys are not supported"}
			}
			e.ID = f
		}
		e.Fields = append(e.Fields, f)
		e.fields[f.Name] = f
		e.columns[f.Column] = f
	}
	return nil
}

func (e *Entity) parseRelation(sf reflect.StructField, idx []int) (*Relation, error) {
	holder := reflect.Zero(sf.Type).Interface().(RelationHolder)
	target := holder.RelationTarget()
	rel := &Relation{
		Name:       queryName(sf),
		GoName:     sf.Name,
		Index:      idx,
		Owner:      e.Name,
		Target:     target.Name(),
		TargetType: target,
	}
	tag := sf.Tag.Get("querydsl")
	if holder.RelationToMany() {
		rel.Kind = OneToMany
		rel.MappedBy = tagOption(tag, "mappedBy")
		if rel.MappedBy == "" {
			return nil, &RegistrationError{Entity: e.Name, Reason: "one-to-many relation " + rel.Name + " needs querydsl:\"mappedBy:<relation>\""}
		}
		return rel, nil
	}
	rel.Kind = ManyToOne
	rel.JoinColumn = tagOption(tag, "join")
	if rel.JoinColumn == "" {
		rel.JoinColumn = toSnake(sf.Name) + "_id"
	}
	return rel, nil
}

func kindOf(t reflect.Type) Kind {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return KindTime
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBool
	default:
		return KindOther
	}
}

// queryName is the json tag name when present, otherwise the Go name with a
// lower-case first letter.
func queryName(sf reflect.StructField) string {
	if tag, ok := sf.Tag.Lookup("json"); ok {
		name := strings.Split(tag, ",")[0]
		if name != "" && name != "-" {
			return name
		}
	}
	r := []rune(sf.Name)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func tagOption(tag, key string) string {
	for _, part := range strings.Split(tag, ",") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(part), key+":"); ok {
			return v
		}
	}
	return ""
}

func toSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
