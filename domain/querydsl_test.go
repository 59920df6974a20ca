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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/querydsl"
)

func TestNilPredicatesAreIgnored(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.m

	var usernameCond *querydsl.Predicate
	found, err := querydsl.SelectFrom[Member](m).
		Where(m.Username.Eq("member1"), usernameCond, m.Age.Eq(10)).
		FetchOne(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, "member1", found.Username)

	all, err := querydsl.SelectFrom[Member](m).Where(querydsl.AllOf(nil, nil)).Fetch(ctx, e.engine)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestFetchOneAndFetchFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	q := querydsl.SelectFrom[Member](e.m).Where(e.m.Age.Goe(30)).OrderBy(e.m.Age.Asc())

	_, err := q.FetchOne(ctx, e.engine)
	var many *querydsl.TooManyResultsError
	require.ErrorAs(t, err, &many)

	first, err := q.FetchFirst(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, "member3", first.Username)

	_, err = q.Where(e.m.Age.Gt(100)).FetchOne(ctx, e.engine)
	assert.ErrorIs(t, err, querydsl.ErrNoResult)
}

func TestCountIgnoresOffsetAndLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	q := querydsl.SelectFrom[Member](e.m).OrderBy(e.m.Username.Desc()).Offset(1).Limit(2)

	n, err := q.FetchCount(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	page, err := q.FetchPage(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, int64(1), page.Offset)
	assert.Equal(t, int64(2), page.Limit)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "member3", page.Items[0].Username)
	assert.Equal(t, "member2", page.Items[1].Username)
}

func TestStringMatchIsLiteral(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.insert(t, NewMember("mem_ber", 1, nil), NewMember("50%off", 1, nil), NewMember("wow!", 1, nil))

	count := func(p *querydsl.Predicate) int64 {
		n, err := querydsl.SelectFrom[Member](e.m).Where(p).FetchCount(ctx, e.engine)
		require.NoError(t, err)
		return n
	}
	assert.Equal(t, int64(1), count(e.m.Username.Contains("_")))
	assert.Equal(t, int64(1), count(e.m.Username.StartsWith("mem_")))
	assert.Equal(t, int64(1), count(e.m.Username.Contains("%")))
	assert.Equal(t, int64(1), count(e.m.Username.EndsWith("!")))
	assert.Equal(t, int64(4), count(e.m.Username.Like("mem_er%")))
}

func TestSortNullsLast(t *testing.T) {
	e := newEnv(t)
	e.insert(t, NewMember("", 100, nil), NewMember("member5", 100, nil), NewMember("member6", 100, nil))

	result, err := querydsl.SelectFrom[Member](e.m).
		Where(e.m.Age.Eq(100)).
		OrderBy(e.m.Age.Desc(), e.m.Username.Asc().NullsLast()).
		Fetch(context.Background(), e.engine)
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, "member5", result[0].Username)
	assert.Equal(t, "member6", result[1].Username)
	assert.Equal(t, "", result[2].Username)

	nulls, err := querydsl.SelectFrom[Member](e.m).
		Where(e.m.Username.IsNull()).
		FetchCount(context.Background(), e.engine)
	require.NoError(t, err)
	assert.Equal(t, int64(1), nulls)
}

func TestAggregation(t *testing.T) {
	e := newEnv(t)
	m := e.m

	total := m.Age.Sum()
	avg := m.Age.Avg()
	row, err := querydsl.SelectTuple(m.Count(), total, avg, m.Age.Max(), m.Age.Min()).
		From(m).
		FetchOne(context.Background(), e.engine)
	require.NoError(t, err)

	sum, err := querydsl.TupleValue[int](row, total)
	require.NoError(t, err)
	assert.Equal(t, 100, sum)
	mean, err := querydsl.TupleValue[float64](row, avg)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, mean, 0.0001)
	assert.EqualValues(t, 4, row.At(0))
	assert.EqualValues(t, 40, row.At(3))
	assert.EqualValues(t, 10, row.At(4))
}

func TestGroupByTeam(t *testing.T) {
	e := newEnv(t)
	m, tm := e.m, e.t

	avg := m.Age.Avg()
	rows, err := querydsl.SelectTuple(tm.Name, avg).
		From(m).
		Join(m.Team, tm).
		GroupBy(tm.Name).
		OrderBy(tm.Name.Asc()).
		Fetch(context.Background(), e.engine)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	want := map[string]float64{"teamA": 15, "teamB": 35}
	for _, row := range rows {
		name, err := querydsl.TupleValue[string](row, tm.Name)
		require.NoError(t, err)
		got, err := querydsl.TupleValue[float64](row, avg)
		require.NoError(t, err)
		assert.InDelta(t, want[name], got, 0.0001, name)
	}

	having, err := querydsl.Select[string](tm.Name).
		From(m).
		Join(m.Team, tm).
		GroupBy(tm.Name).
		Having(avg.Gt(20)).
		Fetch(context.Background(), e.engine)
	require.NoError(t, err)
	assert.Equal(t, []string{"teamB"}, having)
}

func TestJoinOnTeam(t *testing.T) {
	e := newEnv(t)
	m, tm := e.m, e.t

	result, err := querydsl.SelectFrom[Member](m).
		Join(m.Team, tm).
		Where(tm.Name.Eq("teamA")).
		OrderBy(m.Username.Asc()).
		Fetch(context.Background(), e.engine)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "member1", result[0].Username)
	assert.Equal(t, "member2", result[1].Username)
	assert.False(t, result[0].Team.Resolved())
}

func TestThetaJoin(t *testing.T) {
	e := newEnv(t)
	e.insert(t, NewMember("teamA", 0, nil), NewMember("teamB", 0, nil), NewMember("teamC", 0, nil))
	m, tm := e.m, e.t

	result, err := querydsl.SelectFrom[Member](m).
		CrossJoin(tm).
		Where(m.Username.EqExpr(tm.Name)).
		OrderBy(m.Username.Asc()).
		Fetch(context.Background(), e.engine)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "teamA", result[0].Username)
	assert.Equal(t, "teamB", result[1].Username)
}

func TestLeftJoinOnFiltering(t *testing.T) {
	e := newEnv(t)
	m, tm := e.m, e.t

	rows, err := querydsl.SelectTuple(m, tm).
		From(m).
		LeftJoin(m.Team, tm).On(tm.Name.Eq("teamA")).
		OrderBy(m.Age.Asc()).
		Fetch(context.Background(), e.engine)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	for i, row := range rows {
		mb, err := querydsl.TupleValue[*Member](row, m)
		require.NoError(t, err)
		team, err := querydsl.TupleValue[*Team](row, tm)
		require.NoError(t, err)
		if i < 2 {
			require.NotNil(t, team, mb.Username)
			assert.Equal(t, "teamA", team.Name)
		} else {
			assert.Nil(t, team, mb.Username)
		}
	}
}

func TestLeftJoinUnrelatedIsRejected(t *testing.T) {
	e := newEnv(t)
	_, err := querydsl.SelectFrom[Member](e.m).
		JoinUnrelated(querydsl.JoinLeft, e.t).
		Fetch(context.Background(), e.engine)
	var invalid *querydsl.ValidationError
	assert.ErrorAs(t, err, &invalid)
}

func TestFetchJoinResolvesTeam(t *testing.T) {
	e := newEnv(t)
	m, tm := e.m, e.t

	found, err := querydsl.SelectFrom[Member](m).
		Join(m.Team, tm).FetchJoin().
		Where(m.Username.Eq("member1")).
		FetchOne(context.Background(), e.engine)
	require.NoError(t, err)
	require.True(t, found.Team.Resolved())
	team, err := found.Team.Get()
	require.NoError(t, err)
	assert.Equal(t, "teamA", team.Name)
}

func TestTeamMembersFetchJoin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m, tm := e.m, e.t

	rows, err := querydsl.SelectFrom[Team](tm).
		Join(tm.Members, m).FetchJoin().
		OrderBy(tm.ID.Asc()).
		Fetch(ctx, e.engine)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Same(t, rows[0], rows[1])

	distinct, err := querydsl.SelectFrom[Team](tm).
		Join(tm.Members, m).FetchJoin().
		Distinct().
		OrderBy(tm.ID.Asc()).
		Fetch(ctx, e.engine)
	require.NoError(t, err)
	require.Len(t, distinct, 2)
	members, err := distinct[1].Members.Get()
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestTeamMembersFetchJoinPage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m, tm := e.m, e.t

	page, err := querydsl.SelectFrom[Team](tm).
		Join(tm.Members, m).FetchJoin().
		OrderBy(tm.ID.Asc(), m.ID.Asc()).
		Offset(1).Limit(2).
		FetchPage(ctx, e.engine)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "teamA", page.Items[0].Name)
	assert.Equal(t, "teamB", page.Items[1].Name)
	assert.Equal(t, int64(4), page.Total)
	assert.True(t, page.HasNext())
	for _, team := range page.Items {
		members, err := team.Members.Get()
		require.NoError(t, err)
		assert.Len(t, members, 2)
	}

	left, err := querydsl.SelectFrom[Team](tm).
		LeftJoin(tm.Members, m).FetchJoin().
		OrderBy(tm.ID.Asc(), m.ID.Asc()).
		Limit(3).
		FetchPage(ctx, e.engine)
	require.NoError(t, err)
	assert.Len(t, left.Items, 3)
	assert.Equal(t, int64(4), left.Total)
	assert.True(t, left.HasNext())

	roots, err := querydsl.SelectFrom[Team](tm).
		LeftJoin(tm.Members, m).FetchJoin().
		Distinct().
		OrderBy(tm.ID.Asc()).
		Offset(1).Limit(5).
		FetchPage(ctx, e.engine)
	require.NoError(t, err)
	require.Len(t, roots.Items, 1)
	assert.Equal(t, "teamB", roots.Items[0].Name)
	assert.Equal(t, int64(2), roots.Total)
	assert.False(t, roots.HasNext())
}

func TestLoadRefAndRefList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	member, err := querydsl.SelectFrom[Member](e.m).Where(e.m.Username.Eq("member3")).FetchOne(ctx, e.engine)
	require.NoError(t, err)
	_, err = member.Team.Get()
	require.ErrorIs(t, err, querydsl.ErrUnresolved)

	team, err := querydsl.LoadRef(ctx, e.engine, &member.Team)
	require.NoError(t, err)
	assert.Equal(t, "teamB", team.Name)

	members, err := querydsl.LoadRefList(ctx, e.engine, &team.Members)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "member3", members[0].Username)
	assert.Equal(t, "member4", members[1].Username)
}

func TestSubqueries(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m, ms := e.m, e.ms

	oldest, err := querydsl.SelectFrom[Member](m).
		Where(m.Age.EqExpr(querydsl.Sub[int](ms.Age.Max()).From(ms))).
		Fetch(ctx, e.engine)
	require.NoError(t, err)
	require.Len(t, oldest, 1)
	assert.Equal(t, 40, oldest[0].Age)

	aboveAvg := querydsl.CastNumber[int, float64](querydsl.Sub[float64](ms.Age.Avg()).From(ms))
	older, err := querydsl.SelectFrom[Member](m).
		Where(m.Age.GoeExpr(aboveAvg)).
		OrderBy(m.Age.Asc()).
		Fetch(ctx, e.engine)
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, 30, older[0].Age)

	in, err := querydsl.SelectFrom[Member](m).
		Where(m.Age.InQuery(querydsl.Sub[int](ms.Age).From(ms).Where(ms.Age.Gt(10)))).
		FetchCount(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, int64(3), in)

	avgAge := querydsl.Sub[float64](ms.Age.Avg()).From(ms)
	rows, err := querydsl.SelectTuple(m.Username, querydsl.AsExpr[float64](avgAge, "avgAge")).
		From(m).
		Fetch(ctx, e.engine)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.InDelta(t, 25.0, row.At(1), 0.0001)
	}
}

func TestCaseExpressions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.m

	simple, err := querydsl.Select[string](querydsl.Switch[string, int](m.Age).
		When(10).Then("ten").
		When(20).Then("twenty").
		Otherwise("other")).
		From(m).
		OrderBy(m.Age.Asc()).
		Fetch(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, []string{"ten", "twenty", "other", "other"}, simple)

	searched, err := querydsl.Select[string](querydsl.Cases[string]().
		When(m.Age.Between(0, 20)).Then("0~20").
		When(m.Age.Between(21, 30)).Then("21~30").
		Otherwise("other")).
		From(m).
		OrderBy(m.Age.Asc()).
		Fetch(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, []string{"0~20", "0~20", "21~30", "other"}, searched)
}

func TestConstantAndConcat(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.m

	row, err := querydsl.SelectTuple(m.Username, querydsl.Constant("A")).
		From(m).
		Where(m.Username.Eq("member1")).
		FetchOne(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, "member1", row.At(0))
	assert.Equal(t, "A", row.At(1))

	joined, err := querydsl.Select[string](m.Username.Concat("_").ConcatExpr(m.Age.StringValue())).
		From(m).
		Where(m.Username.Eq("member1")).
		FetchOne(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, "member1_10", joined)
}

func TestStringFunctions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.m

	replaced, err := querydsl.Select[string](querydsl.StringFunc("replace", m.Username, querydsl.Constant("member"), querydsl.Constant("M"))).
		From(m).
		OrderBy(m.Username.Asc()).
		Fetch(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, []string{"M1", "M2", "M3", "M4"}, replaced)

	lower, err := querydsl.Select[string](m.Username).
		From(m).
		Where(m.Username.EqExpr(m.Username.Lower())).
		FetchCount(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, int64(4), lower)
}

func TestProjections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.m
	cols := []querydsl.Expression{m.Username, m.Age}

	fields, err := querydsl.SelectAs(querydsl.Fields[MemberDto](cols...)).From(m).OrderBy(m.Age.Asc()).Fetch(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, NewMemberDto("member1", 10), fields[0])

	bean, err := querydsl.SelectAs(querydsl.Bean[MemberDto](cols...)).From(m).OrderBy(m.Age.Asc()).Fetch(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, fields, bean)

	ctor, err := querydsl.SelectAs(querydsl.Construct2[MemberDto, string, int](NewMemberDto, m.Username, m.Age)).From(m).OrderBy(m.Age.Asc()).Fetch(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, fields, ctor)

	users, err := querydsl.SelectAs(querydsl.Fields[UserDto](m.Username.As("name"), m.Age)).From(m).OrderBy(m.Age.Asc()).Fetch(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, UserDto{Name: "member1", Age: 10}, users[0])

	unaliased, err := querydsl.SelectAs(querydsl.Fields[UserDto](m.Username, m.Age)).From(m).OrderBy(m.Age.Asc()).Fetch(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, UserDto{Age: 10}, unaliased[0])
}

func TestBulkUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.m

	before, err := querydsl.SelectFrom[Member](m).Where(m.Username.Eq("member1")).FetchOne(ctx, e.engine)
	require.NoError(t, err)

	n, err := e.engine.BulkUpdate(ctx, querydsl.Update(m).
		Set(m.Username.Set("nonmember")).
		Where(m.Age.Lt(28)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.Equal(t, "member1", before.Username)
	renamed, err := e.members.FindByUsername(ctx, "nonmember")
	require.NoError(t, err)
	assert.Len(t, renamed, 2)

	n, err = e.engine.BulkUpdate(ctx, querydsl.Update(m).Set(m.Age.SetExpr(m.Age.Add(1))))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	oldest, err := querydsl.Select[int](m.Age.Max()).From(m).FetchOne(ctx, e.engine)
	require.NoError(t, err)
	assert.Equal(t, 41, oldest)
}

func TestBulkDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.m

	n, err := e.engine.BulkDelete(ctx, querydsl.Delete(m).Where(m.Age.Gt(18)))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	left, err := e.members.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), left)
}

func TestDescribeExecutedQuery(t *testing.T) {
	e := newEnv(t)
	m, tm := e.m, e.t
	q := querydsl.SelectFrom[Member](m).
		Join(m.Team, tm).
		Where(tm.Name.Eq("teamB")).
		OrderBy(m.Age.Desc()).
		Limit(1)

	data, err := q.Describe().YAML()
	require.NoError(t, err)
	back, err := querydsl.ParseDescription(data)
	require.NoError(t, err)
	assert.Equal(t, q.Describe(), back)

	found, err := q.FetchOne(context.Background(), e.engine)
	require.NoError(t, err)
	assert.Equal(t, "member4", found.Username)
}
