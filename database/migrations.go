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
	"reflect"
	"sort"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/tomoncle/querydsl/schema"
)

// MigrationManager creates the tables of registered entities and records
// the applied steps in querydsl_migrations.
type MigrationManager struct {
	db     *bun.DB
	reg    *schema.Registry
	logger Logger
	config DataMigrateConfig
}

// Migration represents an applied migration record stored in the database.
type Migration struct {
	bun.BaseModel `bun:"table:querydsl_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

func NewMigrationManager(db *bun.DB, reg *schema.Registry, logger Logger, config DataMigrateConfig) *MigrationManager {
	return &MigrationManager{db: db, reg: reg, logger: logger, config: config}
}

// RunMigrations creates the migration tracking table if needed and executes
// pending migrations in ascending version order. Query logging is muted
// unless BUNDEBUG_MIGRATION is set.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		EnableBunSqlSilent(true)
		defer EnableBunSqlSilent(false)
	}

	if err := mm.createMigrationTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations := mm.getAllMigrations()
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	for _, migration := range migrations {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}

	if mm.logger != nil {
		mm.logger.Info("Database migrations completed!")
	}
	return nil
}

func (mm *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := mm.db.NewCreateTable().
		Model((*Migration)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (mm *MigrationManager) getAllMigrations() []MigrationItem {
	migrations := []MigrationItem{
		{
			Version:     "001",
			Name:        "create_entity_tables",
			Description: "Create tables for registered entities",
			Up:          mm.createTables,
		},
	}
	if mm.config.EnableForeignKey {
		migrations = append(migrations, MigrationItem{
			Version:     "002",
			Name:        "add_foreign_keys",
			Description: "Add foreign key constraints of many-to-one relations",
			Up:          mm.addForeignKeys,
		})
	}
	return migrations
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	exists, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", migration.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := migration.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().
			Model(&Migration{
				Version:     migration.Version,
				Name:        migration.Name,
				AppliedAt:   time.Now(),
				Description: migration.Description,
			}).
			Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}
	if mm.logger != nil {
		mm.logger.Info("Migration executed successfully", "version", migration.Version, "name", migration.Name)
	}
	return nil
}

func (mm *MigrationManager) foreignKeys() (*ForeignKeyManager, error) {
	fkm, err := NewForeignKeyManager(mm.logger, mm.reg)
	if err != nil {
		return nil, err
	}
	if mm.config.ForeignKeyFile != "" {
		if err := fkm.LoadConfig(mm.config.ForeignKeyFile); err != nil {
			return nil, err
		}
	}
	if errs := fkm.ValidateConstraints(); len(errs) > 0 {
		for _, err := range errs {
			if mm.logger != nil {
				mm.logger.Debug("Foreign key constraint validation failed", "error", err.Error())
			}
		}
		return nil, fmt.Errorf("foreign key constraint validation failed, %d errors in total", len(errs))
	}
	return fkm, nil
}

// createTables creates entity tables, referenced tables first. On sqlite the
// foreign keys are declared here since they cannot be added later.
func (mm *MigrationManager) createTables(ctx context.Context, db bun.IDB) error {
	models, err := ModelsFromRegistry(mm.reg)
	if err != nil {
		return err
	}
	var fkm *ForeignKeyManager
	if mm.config.EnableForeignKey && db.Dialect().Name() == dialect.SQLite {
		if fkm, err = mm.foreignKeys(); err != nil {
			return err
		}
	}
	for _, model := range modelInstances(models) {
		q := db.NewCreateTable().Model(model).IfNotExists()
		if fkm != nil {
			e, err := mm.reg.EntityOf(reflect.TypeOf(model))
			if err != nil {
				return err
			}
			for _, fk := range fkm.GetConstraintsByTable(e.Table) {
				q = fk.applyTo(q)
			}
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %s: %w", getModelName(model), err)
		}
	}
	return nil
}

func (mm *MigrationManager) addForeignKeys(ctx context.Context, db bun.IDB) error {
	fkm, err := mm.foreignKeys()
	if err != nil {
		return err
	}
	return fkm.AddAllForeignKeys(ctx, db)
}

// DropTables drops the entity tables, referencing tables first, and forgets
// the applied migrations so the next RunMigrations recreates them.
func (mm *MigrationManager) DropTables(ctx context.Context) error {
	models, err := ModelsFromRegistry(mm.reg)
	if err != nil {
		return err
	}
	instances := modelInstances(models)
	for i := len(instances) - 1; i >= 0; i-- {
		if _, err := mm.db.NewDropTable().Model(instances[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", getModelName(instances[i]), err)
		}
	}
	_, err = mm.db.NewDropTable().Model((*Migration)(nil)).IfExists().Exec(ctx)
	return err
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}

func getModelName(model interface{}) string {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
