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

package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/tomoncle/querydsl"
	"github.com/tomoncle/querydsl/database"
	"github.com/tomoncle/querydsl/schema"
	"github.com/tomoncle/querydsl/types"
)

type env struct {
	db      *bun.DB
	reg     *schema.Registry
	engine  *querydsl.Engine
	members *MemberRepository
	m       *QMember
	ms      *QMember
	t       *QTeam
	teams   []*Team
}

// newEnv opens a fresh in-memory database seeded with two teams and four
// members.
func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	reg := NewRegistry()

	f, err := database.OpenMemory(ctx, reg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	e := &env{db: f.GetDB(), reg: reg}
	e.teams, _, err = Seed(ctx, e.db)
	require.NoError(t, err)

	e.members, err = NewMemberRepository(e.db, reg, querydsl.WithErrorClassifier(database.ClassifyError))
	require.NoError(t, err)
	e.engine = e.members.Engine()

	e.m, err = NewQMember(reg, "m")
	require.NoError(t, err)
	e.ms, err = NewQMember(reg, "ms")
	require.NoError(t, err)
	e.t, err = NewQTeam(reg, "t")
	require.NoError(t, err)
	return e
}

func (e *env) insert(t *testing.T, members ...*Member) {
	t.Helper()
	require.NoError(t, e.members.Create(context.Background(), members...))
}

func intPtr(v int) *int { return &v }

func pageOf(page, size int) *types.PageRequest { return types.NewPageRequest(page, size) }
