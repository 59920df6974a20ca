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
	"github.com/stretchr/testify/require"
)

func TestDescribeRoundTrip(t *testing.T) {
	f := newFixture(t)
	m, tm := f.m, f.t
	q := SelectFrom(m).
		Join(m.Team, tm).FetchJoin().
		Where(m.Age.Goe(10).And(m.Username.StartsWith("member").Or(m.TeamID.IsNull()))).
		OrderBy(m.Age.Desc(), m.Username.Asc().NullsLast()).
		Offset(2).Limit(5)

	d := q.Describe()
	assert.Equal(t, "member", d.Entity)
	assert.Equal(t, "m", d.Alias)
	require.Len(t, d.Joins, 1)
	assert.Equal(t, "m.team", d.Joins[0].Path)
	assert.True(t, d.Joins[0].Fetch)
	assert.Equal(t, "logical", d.Where.Node)
	assert.Equal(t, "and", d.Where.Op)
	require.NotNil(t, d.Limit)
	assert.Equal(t, int64(5), *d.Limit)

	data, err := d.YAML()
	require.NoError(t, err)
	back, err := ParseDescription(data)
	require.NoError(t, err)
	assert.Equal(t, d, back)
}

func TestDescribeWithoutLimit(t *testing.T) {
	f := newFixture(t)
	d := Select(f.m.Username).From(f.m).Describe()
	assert.Nil(t, d.Limit)
	assert.Nil(t, d.Where)
	assert.Equal(t, []string{"m.username"}, d.Projection)

	data, err := d.YAML()
	require.NoError(t, err)
	assert.Equal(t, "entity: member\nalias: m\nprojection:\n    - m.username\n", string(data))
}
