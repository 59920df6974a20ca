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

package database

import (
	"bytes"
	"context"
	"database/sql"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newHookedDB(t *testing.T, hooks ...bun.QueryHook) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	for _, h := range hooks {
		db.AddQueryHook(h)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestQueryHookLogsQueries(t *testing.T) {
	var buf bytes.Buffer
	db := newHookedDB(t, NewQueryHook(&buf, "", true))

	var n int
	require.NoError(t, db.NewSelect().ColumnExpr("1").Scan(context.Background(), &n))
	assert.Contains(t, buf.String(), "SELECT 1")
	assert.Contains(t, buf.String(), "[BUN]")
}

func TestQueryHookEnvironmentOverride(t *testing.T) {
	var buf bytes.Buffer
	db := newHookedDB(t, NewQueryHook(&buf, "QUERYDSL_TEST_SQL_LOG", true))
	ctx := context.Background()

	t.Setenv("QUERYDSL_TEST_SQL_LOG", "0")
	_, err := db.ExecContext(ctx, "SELECT 1")
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	t.Setenv("QUERYDSL_TEST_SQL_LOG", "1")
	_, err = db.ExecContext(ctx, "SELECT 1")
	require.NoError(t, err)
	assert.Empty(t, buf.String())
	_, err = db.ExecContext(ctx, "SELECT * FROM nowhere")
	require.Error(t, err)
	assert.Contains(t, buf.String(), "nowhere")
}

func TestQueryHookSilentMode(t *testing.T) {
	var buf bytes.Buffer
	db := newHookedDB(t, NewQueryHook(&buf, "", true))

	EnableBunSqlSilent(true)
	t.Cleanup(func() { EnableBunSqlSilent(false) })
	_, err := db.ExecContext(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestSlowQueryHookWarns(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	db := newHookedDB(t, NewSlowQueryHook(-1, NewLogrusLogger(l)))

	_, err := db.ExecContext(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Database slow query detected")
	assert.Contains(t, buf.String(), `"query":"SELECT 1"`)
}
