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

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "explain", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestExplainEveryScenario(t *testing.T) {
	out, err := execute(t, "explain")
	require.NoError(t, err)
	for _, name := range scenarioNames() {
		assert.Contains(t, out, "# "+name+"\n")
	}
	assert.Contains(t, out, "alias: m")
}

func TestExplainList(t *testing.T) {
	out, err := execute(t, "explain", "--list", "subquery")
	require.NoError(t, err)
	assert.Contains(t, out, "subquery")
	assert.Contains(t, out, "average age")
	assert.NotContains(t, out, "fetch-one")
}

func TestExplainUnknownScenario(t *testing.T) {
	_, err := execute(t, "explain", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown scenario "nope"`)
}

func TestExplainJSON(t *testing.T) {
	out, err := execute(t, "explain", "--format", "json", "group-by")
	require.NoError(t, err)

	var got []explanation
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "group-by", got[0].Name)
	assert.NotEmpty(t, got[0].Query)
	assert.Len(t, got[0].Description.Joins, 1)
	assert.NotEmpty(t, got[0].Description.GroupBy)
}

func TestDemoRunsEveryScenario(t *testing.T) {
	out, err := execute(t, "demo", "--metrics")
	require.NoError(t, err)
	for _, name := range scenarioNames() {
		assert.Contains(t, out, "# "+name+": ")
	}
	assert.Contains(t, out, "member1_10")
	assert.Contains(t, out, "# search: page 1 of 1, 4 members")
	assert.Contains(t, out, "querydsl_operations_total{")
}

func TestDemoSearchFlags(t *testing.T) {
	out, err := execute(t, "demo", "-s", "join", "--team", "teamB", "--age-goe", "35")
	require.NoError(t, err)
	assert.Contains(t, out, "# search: page 1 of 1, 1 members")
	assert.Contains(t, out, "member4")
	assert.NotContains(t, out, "# sort")
}

func TestDemoJSON(t *testing.T) {
	out, err := execute(t, "demo", "--format", "json", "-s", "aggregation")
	require.NoError(t, err)

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Contains(t, got, "aggregation")
	require.Contains(t, got, "search")

	var row []float64
	require.NoError(t, json.Unmarshal(got["aggregation"], &row))
	assert.Equal(t, []float64{4, 100, 25, 40, 10}, row)
}

func TestDemoUnknownScenario(t *testing.T) {
	_, err := execute(t, "demo", "-s", "nope")
	require.Error(t, err)
}

func TestMigrate(t *testing.T) {
	out, err := execute(t, "migrate", "--drop")
	require.NoError(t, err)
	assert.Contains(t, out, "001  create_entity_tables")
	assert.Contains(t, out, "002  add_foreign_keys")
}

func TestSeedJSON(t *testing.T) {
	out, err := execute(t, "seed", "--format", "json")
	require.NoError(t, err)

	var got struct {
		Teams []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"teams"`
		Members []struct {
			Username string `json:"username"`
			TeamID   *int64 `json:"teamId"`
		} `json:"members"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Teams, 2)
	require.Len(t, got.Members, 4)
	assert.Equal(t, "teamA", got.Teams[0].Name)
	require.NotNil(t, got.Members[3].TeamID)
	assert.Equal(t, got.Teams[1].ID, *got.Members[3].TeamID)
}
