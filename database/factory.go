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
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/uptrace/bun"

	"github.com/tomoncle/querydsl/schema"
)

// BaseDatabaseFactory creates and manages a configured database manager and
// provides helpers for initialization, health checks, and statistics.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	reg     *schema.Registry
	logger  Logger
}

// NewDatabaseFactory returns a factory whose managers migrate the entities
// registered in reg.
func NewDatabaseFactory(reg *schema.Registry) *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		reg:    reg,
		logger: GetLogger(),
	}
}

// CreateFromConfig constructs a database manager from cfg after applying
// the DB_* environment overrides.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *Config) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	f.overrideFromEnv(&cfg.ConnectionConfig)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	manager := NewDatabaseManager(cfg, f.reg)
	manager.SetLogger(f.logger)
	f.manager = manager
	return manager, nil
}

// envOverride maps one DB_* variable onto the connection config.
type envOverride struct {
	name  string
	apply func(cfg *ConnectionConfig, v string) error
}

func setString(field func(*ConnectionConfig) *string) func(*ConnectionConfig, string) error {
	return func(cfg *ConnectionConfig, v string) error {
		*field(cfg) = v
		return nil
	}
}

func setInt(field func(*ConnectionConfig) *int) func(*ConnectionConfig, string) error {
	return func(cfg *ConnectionConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(cfg) = n
		return nil
	}
}

func setBool(field func(*ConnectionConfig) *bool) func(*ConnectionConfig, string) error {
	return func(cfg *ConnectionConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(cfg) = b
		return nil
	}
}

// setDuration accepts a Go duration ("90s") or a plain number of seconds.
func setDuration(field func(*ConnectionConfig) *time.Duration) func(*ConnectionConfig, string) error {
	return func(cfg *ConnectionConfig, v string) error {
		if n, err := strconv.Atoi(v); err == nil {
			*field(cfg) = time.Duration(n) * time.Second
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(cfg) = d
		return nil
	}
}

var envOverrides = []envOverride{
	{"DB_TYPE", setString(func(c *ConnectionConfig) *string { return &c.Type })},
	{"DB_HOST", setString(func(c *ConnectionConfig) *string { return &c.Host })},
	{"DB_PORT", setInt(func(c *ConnectionConfig) *int { return &c.Port })},
	{"DB_USERNAME", setString(func(c *ConnectionConfig) *string { return &c.Username })},
	{"DB_PASSWORD", setString(func(c *ConnectionConfig) *string { return &c.Password })},
	{"DB_NAME", setString(func(c *ConnectionConfig) *string { return &c.DBName })},
	{"DB_SSLMODE", setString(func(c *ConnectionConfig) *string { return &c.SSLMode })},
	{"DB_MAX_IDLE_CONNS", setInt(func(c *ConnectionConfig) *int { return &c.MaxIdleConns })},
	{"DB_MAX_OPEN_CONNS", setInt(func(c *ConnectionConfig) *int { return &c.MaxOpenConns })},
	{"DB_CONN_MAX_LIFETIME", setDuration(func(c *ConnectionConfig) *time.Duration { return &c.ConnMaxLifetime })},
	{"DB_ENABLE_RECONNECT", setBool(func(c *ConnectionConfig) *bool { return &c.EnableReconnect })},
	{"DB_RECONNECT_INTERVAL", setDuration(func(c *ConnectionConfig) *time.Duration { return &c.ReconnectInterval })},
	{"DB_ENABLE_QUERY_LOG", setBool(func(c *ConnectionConfig) *bool { return &c.EnableQueryLog })},
	{"DB_SLOW_QUERY_TIME", setDuration(func(c *ConnectionConfig) *time.Duration { return &c.SlowQueryTime })},
}

// overrideFromEnv applies the DB_* variables that are set. Malformed values
// are logged and skipped.
func (f *BaseDatabaseFactory) overrideFromEnv(cfg *ConnectionConfig) {
	for _, o := range envOverrides {
		v, ok := os.LookupEnv(o.name)
		if !ok || v == "" {
			continue
		}
		if err := o.apply(cfg, v); err != nil {
			f.logger.Warn("Ignoring malformed environment override", "name", o.name, "error", err)
		}
	}
}

// InitializeDatabase connects to the database and optionally runs migrations.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, runMigrations bool) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if runMigrations {
		if err := f.manager.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	f.logger.Info("Database initialized", "migrated", runMigrations)
	return nil
}

// GetManager returns the underlying database manager.
func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns the bun database instance, or nil if not initialized.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

// Close closes the database connection managed by the factory.
func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

// GetHealthStatus returns the current database health status from the manager.
func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

// GetStats returns database connection statistics from the manager.
func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
