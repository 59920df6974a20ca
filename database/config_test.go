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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.ConnectionConfig.Type)
	assert.Equal(t, MemoryDBName, cfg.ConnectionConfig.DBName)
	assert.Equal(t, 2*time.Second, cfg.ConnectionConfig.SlowQueryTime)
	assert.True(t, cfg.DataMigrateConfig.EnableMigrateOnStartup)
	assert.True(t, cfg.DataMigrateConfig.EnableForeignKey)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "querydsl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
connection_config:
  type: postgres
  host: db.internal
  port: 5432
  username: app
  dbname: members
  slow_query_time: 500ms
data_migrate_config:
  enable_foreign_key: false
`), 0o644))
	t.Setenv("QUERYDSL_CONNECTION_CONFIG_PORT", "6543")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	cc := cfg.ConnectionConfig
	assert.Equal(t, "postgres", cc.Type)
	assert.Equal(t, "db.internal", cc.Host)
	assert.Equal(t, 6543, cc.Port)
	assert.Equal(t, "members", cc.DBName)
	assert.Equal(t, 500*time.Millisecond, cc.SlowQueryTime)
	assert.Equal(t, 100, cc.MaxOpenConns)
	assert.False(t, cfg.DataMigrateConfig.EnableForeignKey)
	assert.True(t, cfg.DataMigrateConfig.EnableMigrateOnStartup)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "oracle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connection_config:\n  type: oracle\n"), 0o644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.ConnectionConfig.Type = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "host cannot be empty")

	cfg.ConnectionConfig.Host = "localhost"
	cfg.ConnectionConfig.DBName = ""
	assert.ErrorContains(t, cfg.Validate(), "name cannot be empty")
}
