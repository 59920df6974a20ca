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
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/tomoncle/querydsl/ast"
	"github.com/tomoncle/querydsl/schema"
)

type member struct {
	bun.BaseModel `bun:"table:member,alias:m"`

	ID       int64     `bun:"member_id,pk,autoincrement" json:"id"`
	Username string    `bun:"username" json:"username"`
	Age      int       `bun:"age" json:"age"`
	TeamID   *int64    `bun:"team_id" json:"teamId"`
	Team     Ref[team] `bun:"-" querydsl:"join:team_id" json:"team"`
}

type team struct {
	bun.BaseModel `bun:"table:team,alias:t"`

	ID      int64           `bun:"team_id,pk,autoincrement" json:"id"`
	Name    string          `bun:"name" json:"name"`
	Members RefList[member] `bun:"-" querydsl:"mappedBy:team" json:"members"`
}

type qMember struct {
	EntityPath[member]
	ID       NumberExpr[int64]
	Username StringExpr
	Age      NumberExpr[int]
	TeamID   NumberExpr[int64]
	Team     Relation[team]
}

type qTeam struct {
	EntityPath[team]
	ID      NumberExpr[int64]
	Name    StringExpr
	Members Relation[member]
}

func newQMember(t testing.TB, reg *schema.Registry, alias string) *qMember {
	b := NewPathBuilder[member](reg, alias)
	q := &qMember{
		EntityPath: b.Path(),
		ID:         NumberPath[int64](b, "id"),
		Username:   StringPath(b, "username"),
		Age:        NumberPath[int](b, "age"),
		TeamID:     NumberPath[int64](b, "teamId"),
		Team:       RelationOf[team](b, "team"),
	}
	require.NoError(t, b.Err())
	return q
}

func newQTeam(t testing.TB, reg *schema.Registry, alias string) *qTeam {
	b := NewPathBuilder[team](reg, alias)
	q := &qTeam{
		EntityPath: b.Path(),
		ID:         NumberPath[int64](b, "id"),
		Name:       StringPath(b, "name"),
		Members:    RelationOf[member](b, "members"),
	}
	require.NoError(t, b.Err())
	return q
}

type fixture struct {
	reg *schema.Registry
	m   *qMember
	ms  *qMember
	t   *qTeam
}

func newFixture(t testing.TB) *fixture {
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register((*team)(nil), (*member)(nil)))
	return &fixture{
		reg: reg,
		m:   newQMember(t, reg, "m"),
		ms:  newQMember(t, reg, "ms"),
		t:   newQTeam(t, reg, "t"),
	}
}

type mockStorage struct {
	mock.Mock
}

func (s *mockStorage) Select(ctx context.Context, sel *ast.Select) ([][]any, error) {
	args := s.Called(ctx, sel)
	rows, _ := args.Get(0).([][]any)
	return rows, args.Error(1)
}

func (s *mockStorage) Count(ctx context.Context, sel *ast.Select) (int64, error) {
	args := s.Called(ctx, sel)
	return args.Get(0).(int64), args.Error(1)
}

func (s *mockStorage) Update(ctx context.Context, upd *ast.Update) (int64, error) {
	args := s.Called(ctx, upd)
	return args.Get(0).(int64), args.Error(1)
}

func (s *mockStorage) Delete(ctx context.Context, del *ast.Delete) (int64, error) {
	args := s.Called(ctx, del)
	return args.Get(0).(int64), args.Error(1)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestEngine(f *fixture, opts ...Option) (*Engine, *mockStorage) {
	st := &mockStorage{}
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewEngine(st, f.reg, opts...), st
}

// selectWhere matches selects for which pred holds.
func selectWhere(pred func(sel *ast.Select) bool) any {
	return mock.MatchedBy(pred)
}

func memberRow(id int64, name string, age int64, teamID any) []any {
	return []any{id, name, age, teamID}
}
