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
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/querydsl/ast"
)

func TestFetchExpandsEntityColumns(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)
	ctx := context.Background()

	st.On("Select", ctx, selectWhere(func(sel *ast.Select) bool {
		return len(sel.Columns) == 4 && sel.Columns[0].String() == "m.id" && sel.Columns[3].String() == "m.teamId"
	})).Return([][]any{
		memberRow(1, "member1", 10, int64(1)),
		memberRow(2, "member2", 20, nil),
	}, nil).Once()

	members, err := SelectFrom(f.m).OrderBy(f.m.ID.Asc()).Fetch(ctx, e)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "member1", members[0].Username)
	assert.Equal(t, 10, members[0].Age)
	require.NotNil(t, members[0].TeamID)
	assert.Equal(t, int64(1), *members[0].TeamID)
	assert.Nil(t, members[1].TeamID)
	st.AssertExpectations(t)
}

func TestFetchOneTooManyResults(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)
	ctx := context.Background()

	st.On("Select", ctx, selectWhere(func(sel *ast.Select) bool {
		return sel.HasLimit && sel.Limit == 2
	})).Return([][]any{
		memberRow(1, "member1", 10, nil),
		memberRow(2, "member2", 10, nil),
	}, nil).Once()

	_, err := SelectFrom(f.m).Where(f.m.Age.Eq(10)).FetchOne(ctx, e)
	var tooMany *TooManyResultsError
	require.ErrorAs(t, err, &tooMany)
	assert.Contains(t, tooMany.Query, "m.age = 10")
	st.AssertExpectations(t)
}

func TestFetchOneNoResult(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)
	ctx := context.Background()
	st.On("Select", ctx, mock.Anything).Return([][]any{}, nil).Once()

	_, err := SelectFrom(f.m).Where(f.m.Username.Eq("nobody")).FetchOne(ctx, e)
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestFetchFirstForcesLimitOne(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)
	ctx := context.Background()
	st.On("Select", ctx, selectWhere(func(sel *ast.Select) bool {
		return sel.HasLimit && sel.Limit == 1
	})).Return([][]any{memberRow(1, "member1", 10, nil)}, nil).Once()

	got, err := SelectFrom(f.m).Where(f.m.Age.Eq(10)).FetchFirst(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, "member1", got.Username)
	st.AssertExpectations(t)
}

func TestLimitZeroSkipsStorage(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)

	got, err := SelectFrom(f.m).Limit(0).Fetch(context.Background(), e)
	require.NoError(t, err)
	assert.Empty(t, got)
	st.AssertNotCalled(t, "Select", mock.Anything, mock.Anything)
}

func TestFetchPageRunsContentAndCount(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)
	ctx := context.Background()

	st.On("Select", ctx, selectWhere(func(sel *ast.Select) bool {
		return sel.HasLimit && sel.Limit == 2 && sel.Offset == 1 && len(sel.OrderBy) == 1
	})).Return([][]any{
		memberRow(3, "member3", 30, nil),
		memberRow(2, "member2", 20, nil),
	}, nil).Once()
	st.On("Count", ctx, selectWhere(func(sel *ast.Select) bool {
		return !sel.HasLimit && sel.Offset == 0 && len(sel.OrderBy) == 0 &&
			len(sel.Columns) == 1 && sel.Columns[0].String() == "m.id"
	})).Return(int64(4), nil).Once()

	page, err := SelectFrom(f.m).OrderBy(f.m.Username.Desc()).Offset(1).Limit(2).FetchPage(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, int64(1), page.Offset)
	assert.Equal(t, int64(2), page.Limit)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasNext())
	st.AssertExpectations(t)
}

func TestStorageErrorIsWrapped(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")
	e, st := newTestEngine(f, WithErrorClassifier(func(err error) string { return "connection" }))
	ctx := context.Background()
	st.On("Select", ctx, mock.Anything).Return(nil, boom).Once()

	_, err := SelectFrom(f.m).Fetch(ctx, e)
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "fetch", se.Op)
	assert.Equal(t, "connection", se.Class)
	assert.Equal(t, "select m.id, m.username, m.age, m.teamId from member m", se.Query)
	assert.NotEmpty(t, se.QueryID)
}

func TestValidationErrorSkipsStorage(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)

	_, err := SelectFrom(f.m).Where(f.t.Name.Eq("teamA")).Fetch(context.Background(), e)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	st.AssertNotCalled(t, "Select", mock.Anything, mock.Anything)
}

func TestMetricsCountOperations(t *testing.T) {
	f := newFixture(t)
	metrics := NewMetrics(prometheus.NewRegistry())
	e, st := newTestEngine(f, WithMetrics(metrics))
	ctx := context.Background()
	st.On("Select", ctx, mock.Anything).Return([][]any{}, nil).Once()
	st.On("Count", ctx, mock.Anything).Return(int64(0), errors.New("down")).Once()

	_, err := SelectFrom(f.m).Fetch(ctx, e)
	require.NoError(t, err)
	_, err = SelectFrom(f.m).FetchCount(ctx, e)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues("fetch", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues("count", "error")))
}

func teamMemberRows() [][]any {
	return [][]any{
		{int64(1), "teamA", int64(1), "member1", int64(10), int64(1)},
		{int64(1), "teamA", int64(2), "member2", int64(20), int64(1)},
		{int64(2), "teamB", nil, nil, nil, nil},
	}
}

func TestToManyFetchJoinRepeatsRoot(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)
	ctx := context.Background()
	st.On("Select", ctx, selectWhere(func(sel *ast.Select) bool {
		return len(sel.Columns) == 6
	})).Return(teamMemberRows(), nil).Once()

	teams, err := SelectFrom(f.t).LeftJoin(f.t.Members, f.m).FetchJoin().Fetch(ctx, e)
	require.NoError(t, err)
	require.Len(t, teams, 3)
	assert.Same(t, teams[0], teams[1])

	members, err := teams[0].Members.Get()
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "member2", members[1].Username)

	empty, err := teams[2].Members.Get()
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDistinctCollapsesToManyFetch(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)
	ctx := context.Background()
	st.On("Select", ctx, selectWhere(func(sel *ast.Select) bool {
		return sel.Distinct && !sel.HasLimit
	})).Return(teamMemberRows(), nil).Once()

	teams, err := SelectFrom(f.t).LeftJoin(f.t.Members, f.m).FetchJoin().Distinct().Limit(1).Fetch(ctx, e)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "teamA", teams[0].Name)
	st.AssertExpectations(t)
}

func TestPagedToManyFetchLoadsWholeCollections(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)
	ctx := context.Background()
	st.On("Select", ctx, selectWhere(func(sel *ast.Select) bool {
		return len(sel.Columns) == 6 && !sel.HasLimit && sel.Offset == 0
	})).Return(teamMemberRows(), nil).Once()

	teams, err := SelectFrom(f.t).LeftJoin(f.t.Members, f.m).FetchJoin().Offset(1).Limit(2).Fetch(ctx, e)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "teamA", teams[0].Name)
	assert.Equal(t, "teamB", teams[1].Name)

	members, err := teams[0].Members.Get()
	require.NoError(t, err)
	assert.Len(t, members, 2)
	st.AssertExpectations(t)
}

func TestCountFollowsToManyFetchRows(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)
	ctx := context.Background()
	st.On("Count", ctx, selectWhere(func(sel *ast.Select) bool {
		return !sel.Distinct && len(sel.Joins) == 1
	})).Return(int64(3), nil).Once()
	st.On("Count", ctx, selectWhere(func(sel *ast.Select) bool {
		return sel.Distinct && len(sel.Joins) == 0 && sel.Columns[0].String() == "t.id"
	})).Return(int64(2), nil).Once()

	rows, err := SelectFrom(f.t).LeftJoin(f.t.Members, f.m).FetchJoin().FetchCount(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)

	roots, err := SelectFrom(f.t).LeftJoin(f.t.Members, f.m).FetchJoin().Distinct().FetchCount(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, int64(2), roots)
	st.AssertExpectations(t)
}

func TestCountDropsLeftToOneFetchJoin(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)
	ctx := context.Background()
	st.On("Count", ctx, selectWhere(func(sel *ast.Select) bool {
		return len(sel.Joins) == 0
	})).Return(int64(4), nil).Once()

	n, err := SelectFrom(f.m).LeftJoin(f.m.Team, f.t).FetchJoin().FetchCount(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	st.AssertExpectations(t)
}

func TestRowKeySeparatesScalarTypes(t *testing.T) {
	assert.NotEqual(t, rowKey([]any{int64(1)}), rowKey([]any{"1"}))
	assert.NotEqual(t, rowKey([]any{"a|b", "c"}), rowKey([]any{"a", "b|c"}))
	assert.Equal(t, rowKey([]any{int64(1), "x"}), rowKey([]any{int64(1), "x"}))
}

func TestManyToOneStaysUnresolvedUntilLoaded(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)
	ctx := context.Background()
	st.On("Select", ctx, selectWhere(func(sel *ast.Select) bool {
		return sel.From.Entity == "member"
	})).Return([][]any{memberRow(1, "member1", 10, int64(1))}, nil).Once()
	st.On("Select", ctx, selectWhere(func(sel *ast.Select) bool {
		return sel.From.Entity == "team" && sel.Where.String() == "r.id = 1"
	})).Return([][]any{{int64(1), "teamA"}}, nil).Once()

	m, err := SelectFrom(f.m).FetchOne(ctx, e)
	require.NoError(t, err)
	assert.False(t, m.Team.Resolved())
	_, err = m.Team.Get()
	assert.ErrorIs(t, err, ErrUnresolved)
	assert.Equal(t, int64(1), m.Team.Key())

	tm, err := LoadRef(ctx, e, &m.Team)
	require.NoError(t, err)
	assert.Equal(t, "teamA", tm.Name)
	assert.True(t, m.Team.Resolved())
	st.AssertExpectations(t)
}

func TestFetchJoinResolvesManyToOne(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)
	ctx := context.Background()
	st.On("Select", ctx, mock.Anything).Return([][]any{
		{int64(1), "member1", int64(10), int64(1), int64(1), "teamA"},
		{int64(2), "member2", int64(20), int64(1), int64(1), "teamA"},
	}, nil).Once()

	members, err := SelectFrom(f.m).Join(f.m.Team, f.t).FetchJoin().Fetch(ctx, e)
	require.NoError(t, err)
	require.Len(t, members, 2)
	t0, err := members[0].Team.Get()
	require.NoError(t, err)
	t1, err := members[1].Team.Get()
	require.NoError(t, err)
	assert.Equal(t, "teamA", t0.Name)
	assert.Same(t, t0, t1)
}

func TestTupleOfTwoEntities(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)
	ctx := context.Background()
	st.On("Select", ctx, mock.Anything).Return([][]any{
		{int64(1), "member1", int64(10), int64(1), int64(1), "teamA"},
		{int64(5), "member5", int64(50), nil, nil, nil},
	}, nil).Once()

	rows, err := SelectTuple(f.m, f.t).From(f.m).LeftJoin(f.m.Team, f.t).On(f.t.Name.Eq("teamA")).Fetch(ctx, e)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	tm, err := TupleValue[*team](rows[0], f.t)
	require.NoError(t, err)
	assert.Equal(t, "teamA", tm.Name)
	none, err := TupleValue[*team](rows[1], f.t)
	require.NoError(t, err)
	assert.Nil(t, none)
	mb, err := TupleValue[*member](rows[1], f.m)
	require.NoError(t, err)
	assert.Equal(t, "member5", mb.Username)
}

func TestBulkUpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	e, st := newTestEngine(f)
	ctx := context.Background()
	st.On("Update", ctx, mock.MatchedBy(func(u *ast.Update) bool {
		return len(u.Sets) == 1 && u.Sets[0].Field.Column == "username" && u.Where.String() == "m.age < 28"
	})).Return(int64(2), nil).Once()
	st.On("Delete", ctx, mock.MatchedBy(func(d *ast.Delete) bool {
		return d.Target.Table == "member" && d.Where.String() == "m.age > 18"
	})).Return(int64(3), nil).Once()

	n, err := e.BulkUpdate(ctx, Update(f.m).Set(f.m.Username.Set("unknown")).Where(f.m.Age.Lt(28)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = e.BulkDelete(ctx, Delete(f.m).Where(f.m.Age.Gt(18)))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	st.AssertExpectations(t)
}

func TestBulkUpdateValidation(t *testing.T) {
	f := newFixture(t)
	m, tm := f.m, f.t

	cases := []struct {
		name string
		upd  UpdateClause
	}{
		{"no assignments", Update(m).Where(m.Age.Lt(28))},
		{"field of another entity", Update(m).Set(tm.Name.Set("x"))},
		{"aggregate value", Update(m).Set(m.Age.SetExpr(m.Age.Max()))},
		{"foreign alias in where", Update(m).Set(m.Age.Set(1)).Where(tm.Name.Eq("teamA"))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ve *ValidationError
			require.ErrorAs(t, tc.upd.Err(), &ve)
		})
	}
}
