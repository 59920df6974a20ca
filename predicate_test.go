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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicateNilElision(t *testing.T) {
	f := newFixture(t)
	p := f.m.Username.Eq("member1")
	var absent *Predicate

	assert.Same(t, p, p.And(nil))
	assert.Same(t, p, p.Or(nil))
	assert.Same(t, p, absent.And(p))
	assert.Same(t, p, absent.Or(p))
	assert.Nil(t, absent.And(nil))
	assert.Nil(t, absent.Not())
	assert.Nil(t, AllOf(nil, nil))
	assert.Nil(t, AnyOf())
	assert.Same(t, p, AllOf(nil, p, nil))

	withNil := SelectFrom(f.m).Where(p, nil)
	without := SelectFrom(f.m).Where(p)
	assert.Equal(t, without.String(), withNil.String())
	assert.Equal(t, SelectFrom(f.m).String(), SelectFrom(f.m).Where(nil, nil).String())
}

func TestPredicateRender(t *testing.T) {
	f := newFixture(t)
	m := f.m

	cases := []struct {
		name string
		pred *Predicate
		want string
	}{
		{"and", m.Username.Eq("member1").And(m.Age.Eq(10)), "m.username = 'member1' and m.age = 10"},
		{"or inside and", m.Age.Eq(10).Or(m.Age.Eq(20)).And(m.Username.StartsWith("member")),
			"(m.age = 10 or m.age = 20) and m.username like 'member%' escape '!'"},
		{"not", m.Age.Goe(30).Not(), "not (m.age >= 30)"},
		{"in", m.Age.In(10, 20), "m.age in (10, 20)"},
		{"not in", m.Age.NotIn(), "m.age not in ()"},
		{"null", m.TeamID.IsNull().Or(m.Username.IsNotNull()), "m.teamId is null or m.username is not null"},
		{"contains", m.Username.Contains("ber"), "m.username like '%ber%' escape '!'"},
		{"contains wildcards", m.Username.Contains("a_b%!"), "m.username like '%a!_b!%!!%' escape '!'"},
		{"ends with", m.Username.EndsWith("_1"), "m.username like '%!_1' escape '!'"},
		{"like keeps wildcards", m.Username.Like("mem_er%"), "m.username like 'mem_er%'"},
		{"quote", m.Username.Eq("o'neil"), "m.username = 'o''neil'"},
		{"arithmetic", m.Age.Multiply(2).GtExpr(m.Age.Add(10)), "(m.age * 2) > (m.age + 10)"},
		{"lower", m.Username.Lower().Eq("member1"), "lower(m.username) = 'member1'"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.pred.String())
		})
	}
}

func TestOrderSpecifierRender(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "m.age desc", f.m.Age.Desc().String())
	assert.Equal(t, "m.username asc nulls last", f.m.Username.Asc().NullsLast().String())
	assert.Equal(t, "m.username desc nulls first", f.m.Username.Desc().NullsFirst().String())
	assert.Equal(t, "m.age asc", f.m.Age.As("years").Asc().String())
}
