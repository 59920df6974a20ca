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

	"github.com/tomoncle/querydsl/schema"
)

// Open creates a factory for cfg, connects and, when the configuration asks
// for it, migrates the entities registered in reg. Close the returned
// factory to release the connection.
func Open(ctx context.Context, cfg *Config, reg *schema.Registry) (*BaseDatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	f := NewDatabaseFactory(reg)
	if _, err := f.CreateFromConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := f.InitializeDatabase(ctx, cfg.DataMigrateConfig.EnableMigrateOnStartup); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return f, nil
}

// OpenMemory opens a migrated in-memory sqlite database, as used by tests
// and the demo command.
func OpenMemory(ctx context.Context, reg *schema.Registry) (*BaseDatabaseFactory, error) {
	cfg := DefaultConfig()
	cfg.ConnectionConfig.HealthCheckInterval = 0
	return Open(ctx, cfg, reg)
}
