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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type refTo[T any] struct{}

func (refTo[T]) RelationTarget() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }
func (refTo[T]) RelationToMany() bool         { return false }

type listOf[T any] struct{}

func (listOf[T]) RelationTarget() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }
func (listOf[T]) RelationToMany() bool         { return true }

type dept struct {
	bun.BaseModel `bun:"table:departments,alias:d"`

	ID    int64         `bun:"id,pk,autoincrement" json:"id"`
	Name  string        `bun:"name,nullzero" json:"name"`
	Staff listOf[staff] `bun:"-" querydsl:"mappedBy:dept"`
}

type staff struct {
	ID     int64  `bun:"staff_id,pk" json:"id"`
	Nick   *string
	Joined time.Time
	DeptID *int64      `bun:"dept_id" json:"deptId"`
	Dept   refTo[dept] `querydsl:"join:dept_id"`
}

type lead struct {
	ID         int64         `bun:"id,pk" json:"id"`
	Reports    listOf[staff] `querydsl:"mappedBy:dept"`
	Colleagues listOf[staff] `querydsl:"mappedBy:nick"`
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register((*dept)(nil), staff{}, &lead{}))
	return r
}

func TestRegisterParsesTags(t *testing.T) {
	r := newTestRegistry(t)

	d, err := r.Entity("dept")
	require.NoError(t, err)
	assert.Equal(t, "departments", d.Table)
	assert.Equal(t, "id", d.ID.Column)
	name, ok := d.Field("name")
	require.True(t, ok)
	assert.True(t, name.Nullable)
	assert.Equal(t, KindString, name.Kind)

	s, err := r.Entity("staff")
	require.NoError(t, err)
	assert.Equal(t, "staff", s.Table)
	nick, err := r.Field("staff", "nick")
	require.NoError(t, err)
	assert.True(t, nick.Nullable)
	assert.Equal(t, "nick", nick.Column)
	joined, err := r.Field("staff", "joined")
	require.NoError(t, err)
	assert.Equal(t, KindTime, joined.Kind)
	byColumn, ok := s.FieldByColumn("dept_id")
	require.True(t, ok)
	assert.Equal(t, "deptId", byColumn.Name)

	rel, err := r.Relation("staff", "dept")
	require.NoError(t, err)
	assert.Equal(t, ManyToOne, rel.Kind)
	assert.Equal(t, "dept", rel.Target)
	assert.Equal(t, "dept_id", rel.JoinColumn)

	staffRel, err := r.Relation("dept", "staff")
	require.NoError(t, err)
	assert.Equal(t, OneToMany, staffRel.Kind)
	assert.Equal(t, "dept", staffRel.MappedBy)

	require.NoError(t, r.Register(&dept{}))
	names := make([]string, 0, 3)
	for _, e := range r.Entities() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"dept", "staff", "lead"}, names)

	got, err := r.EntityOf(reflect.TypeOf(&staff{}))
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.IsType(t, &staff{}, s.New().Interface())
}

func TestLookupErrors(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Entity("ghost")
	var unknownEntity *UnknownEntityError
	require.ErrorAs(t, err, &unknownEntity)
	assert.Equal(t, "ghost", unknownEntity.Entity)

	_, err = r.EntityOf(reflect.TypeOf(42))
	require.ErrorAs(t, err, &unknownEntity)
	assert.Equal(t, "int", unknownEntity.Entity)

	_, err = r.Field("ghost", "id")
	assert.ErrorAs(t, err, &unknownEntity)

	_, err = r.Field("staff", "salary")
	var unknownField *UnknownFieldError
	require.ErrorAs(t, err, &unknownField)
	assert.Equal(t, "staff", unknownField.Entity)
	assert.Equal(t, "salary", unknownField.Field)
	assert.EqualError(t, err, `schema: entity staff has no field "salary"`)

	_, err = r.Field("staff", "dept")
	assert.ErrorAs(t, err, &unknownField)
	_, err = r.Relation("staff", "nick")
	assert.ErrorAs(t, err, &unknownField)
}

func TestRegistrationErrors(t *testing.T) {
	type noKey struct {
		Name string
	}
	type twoKeys struct {
		A int64 `bun:"a,pk"`
		B int64 `bun:"b,pk"`
	}
	type sameName struct {
		ID    int64  `bun:"id,pk"`
		Label string `json:"name"`
		Title string `json:"name"`
	}
	type noMappedBy struct {
		ID    int64 `bun:"id,pk"`
		Items listOf[staff]
	}
	type unmappedJoin struct {
		ID   int64 `bun:"id,pk"`
		Dept refTo[dept]
	}

	cases := []struct {
		name   string
		model  any
		reason string
	}{
		{"not a struct", 42, "must be a struct"},
		{"no primary key", noKey{}, "no field tagged pk"},
		{"composite key", twoKeys{}, "composite primary keys"},
		{"duplicate field", sameName{}, "duplicate field name name"},
		{"missing mappedBy", noMappedBy{}, "needs querydsl:\"mappedBy:<relation>\""},
		{"unmapped join column", unmappedJoin{}, "joins on unmapped column dept_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewRegistry().Register(tc.model)
			var regErr *RegistrationError
			require.ErrorAs(t, err, &regErr)
			assert.Contains(t, regErr.Reason, tc.reason)
		})
	}

	t.Run("name collision", func(t *testing.T) {
		type dept struct {
			ID int64 `bun:"id,pk"`
		}
		r := newTestRegistry(t)
		err := r.Register(dept{})
		var regErr *RegistrationError
		require.ErrorAs(t, err, &regErr)
		assert.Equal(t, "dept", regErr.Entity)
		assert.Contains(t, regErr.Reason, "name already registered")
	})

	assert.Panics(t, func() { NewRegistry().MustRegister(noKey{}) })
}

func TestLinkResolvesColumns(t *testing.T) {
	r := newTestRegistry(t)

	toOne, err := r.Relation("staff", "dept")
	require.NoError(t, err)
	l, err := r.Link(toOne)
	require.NoError(t, err)
	assert.Equal(t, "dept_id", l.OwnerColumn)
	assert.Equal(t, "id", l.TargetColumn)

	toMany, err := r.Relation("dept", "staff")
	require.NoError(t, err)
	l, err = r.Link(toMany)
	require.NoError(t, err)
	assert.Equal(t, "staff", l.Target.Name)
	assert.Equal(t, "id", l.OwnerColumn)
	assert.Equal(t, "dept_id", l.TargetColumn)
}

func TestLinkRejectsBadMappedBy(t *testing.T) {
	r := newTestRegistry(t)

	wrongOwner, err := r.Relation("lead", "reports")
	require.NoError(t, err)
	_, err = r.Link(wrongOwner)
	assert.EqualError(t, err, "schema: staff.dept is not a many-to-one relation to lead")

	scalar, err := r.Relation("lead", "colleagues")
	require.NoError(t, err)
	_, err = r.Link(scalar)
	var unknownField *UnknownFieldError
	require.ErrorAs(t, err, &unknownField)
	assert.Equal(t, "nick", unknownField.Field)

	partial := NewRegistry().MustRegister(staff{})
	rel, err := partial.Relation("staff", "dept")
	require.NoError(t, err)
	_, err = partial.Link(rel)
	var unknownEntity *UnknownEntityError
	assert.ErrorAs(t, err, &unknownEntity)
}

func TestToSnake(t *testing.T) {
	cases := map[string]string{
		"Team":       "team",
		"TeamID":     "team_id",
		"HTTPServer": "http_server",
		"memberName": "member_name",
	}
	for in, want := range cases {
		assert.Equal(t, want, toSnake(in), in)
	}
}
