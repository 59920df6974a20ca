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
	"path/filepath"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"gopkg.in/yaml.v3"

	"github.com/tomoncle/querydsl/schema"
)

var validActions = []string{"CASCADE", "RESTRICT", "SET NULL", "NO ACTION"}

// ForeignKeyConstraint describes a foreign key relationship between tables.
type ForeignKeyConstraint struct {
	Table           string `yaml:"table"`
	Column          string `yaml:"column"`
	ReferenceTable  string `yaml:"reference_table"`
	ReferenceColumn string `yaml:"reference_column"`
	OnDelete        string `yaml:"on_delete,omitempty"` // CASCADE, RESTRICT, SET NULL, NO ACTION
	OnUpdate        string `yaml:"on_update,omitempty"`
	ConstraintName  string `yaml:"constraint_name,omitempty"`
}

// ForeignKeyConfig is the YAML structure that lists foreign key constraints.
type ForeignKeyConfig struct {
	ForeignKeys []ForeignKeyConstraint `yaml:"foreign_keys"`
}

// GenerateConstraintName returns the explicit name or a derived name.
func (fk *ForeignKeyConstraint) GenerateConstraintName() string {
	if fk.ConstraintName != "" {
		return fk.ConstraintName
	}
	return fmt.Sprintf("fk_%s_%s", fk.Table, fk.Column)
}

// GenerateSQL returns the ALTER TABLE statement to add the constraint.
func (fk *ForeignKeyConstraint) GenerateSQL() string {
	sql := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s)",
		fk.Table, fk.GenerateConstraintName(), fk.Column, fk.ReferenceTable, fk.ReferenceColumn)
	if fk.OnDelete != "" {
		sql += " ON DELETE " + fk.OnDelete
	}
	if fk.OnUpdate != "" {
		sql += " ON UPDATE " + fk.OnUpdate
	}
	return sql
}

// applyTo declares the constraint inside a CREATE TABLE, for dialects that
// cannot add constraints to existing tables.
func (fk *ForeignKeyConstraint) applyTo(q *bun.CreateTableQuery) *bun.CreateTableQuery {
	clause := "(?) REFERENCES ? (?)"
	if fk.OnDelete != "" {
		clause += " ON DELETE " + strings.ToUpper(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		clause += " ON UPDATE " + strings.ToUpper(fk.OnUpdate)
	}
	return q.ForeignKey(clause, bun.Ident(fk.Column), bun.Ident(fk.ReferenceTable), bun.Ident(fk.ReferenceColumn))
}

// ForeignKeyManager manages adding and validating foreign key constraints.
type ForeignKeyManager struct {
	constraints []ForeignKeyConstraint
	logger      Logger
}

// NewForeignKeyManager derives one constraint per many-to-one relation in
// reg. Nullable join columns get ON DELETE SET NULL, others RESTRICT.
func NewForeignKeyManager(logger Logger, reg *schema.Registry) (*ForeignKeyManager, error) {
	fkm := &ForeignKeyManager{logger: logger}
	if reg == nil {
		return fkm, nil
	}
	for _, e := range reg.Entities() {
		for _, rel := range e.Relations {
			if rel.Kind != schema.ManyToOne {
				continue
			}
			link, err := reg.Link(rel)
			if err != nil {
				return nil, err
			}
			onDelete := "RESTRICT"
			if f, ok := e.FieldByColumn(link.OwnerColumn); ok && f.Nullable {
				onDelete = "SET NULL"
			}
			fkm.constraints = append(fkm.constraints, ForeignKeyConstraint{
				Table:           link.Owner.Table,
				Column:          link.OwnerColumn,
				ReferenceTable:  link.Target.Table,
				ReferenceColumn: link.TargetColumn,
				OnDelete:        onDelete,
			})
		}
	}
	return fkm, nil
}

// LoadConfig overrides constraints with the entries of a YAML file; entries
// for the same table and column replace the derived ones.
func (fkm *ForeignKeyManager) LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var config ForeignKeyConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	for _, c := range config.ForeignKeys {
		replaced := false
		for i := range fkm.constraints {
			if strings.EqualFold(fkm.constraints[i].Table, c.Table) && strings.EqualFold(fkm.constraints[i].Column, c.Column) {
				fkm.constraints[i] = c
				replaced = true
			}
		}
		if !replaced {
			fkm.constraints = append(fkm.constraints, c)
		}
	}
	return nil
}

// ExportToConfig writes the current constraints as a YAML configuration
// file, creating directories as needed.
func (fkm *ForeignKeyManager) ExportToConfig(outputPath string) error {
	data, err := yaml.Marshal(&ForeignKeyConfig{ForeignKeys: fkm.constraints})
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// AddAllForeignKeys adds every constraint with ALTER TABLE. SQLite cannot
// alter constraints, so nothing is done there; see createTables. Failures
// are logged and skipped.
func (fkm *ForeignKeyManager) AddAllForeignKeys(ctx context.Context, db bun.IDB) error {
	if db.Dialect().Name() == dialect.SQLite {
		return nil
	}
	for _, constraint := range fkm.constraints {
		if _, err := db.ExecContext(ctx, constraint.GenerateSQL()); err != nil {
			if fkm.logger != nil {
				fkm.logger.Debug("Failed to add foreign key constraint", "constraint", constraint.GenerateConstraintName(), "error", err.Error())
			}
			continue
		}
		if fkm.logger != nil {
			fkm.logger.Debug("Successfully added foreign key constraint", "constraint", constraint.GenerateConstraintName())
		}
	}
	return nil
}

// RemoveForeignKey drops a named foreign key from a table.
func (fkm *ForeignKeyManager) RemoveForeignKey(ctx context.Context, db bun.IDB, tableName, constraintName string) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", tableName, constraintName))
	return err
}

// GetConstraintsByTable returns the constraints defined for a table.
func (fkm *ForeignKeyManager) GetConstraintsByTable(tableName string) []ForeignKeyConstraint {
	var result []ForeignKeyConstraint
	for _, constraint := range fkm.constraints {
		if strings.EqualFold(constraint.Table, tableName) {
			result = append(result, constraint)
		}
	}
	return result
}

func (fkm *ForeignKeyManager) ListAllConstraints() []ForeignKeyConstraint {
	return fkm.constraints
}

// ValidateConstraints checks the configured constraints for common issues.
func (fkm *ForeignKeyManager) ValidateConstraints() []error {
	var errs []error
	for _, c := range fkm.constraints {
		if c.Table == "" {
			errs = append(errs, fmt.Errorf("table name cannot be empty"))
		}
		if c.Column == "" {
			errs = append(errs, fmt.Errorf("column name cannot be empty: %s", c.Table))
		}
		if c.ReferenceTable == "" {
			errs = append(errs, fmt.Errorf("reference table name cannot be empty: %s.%s", c.Table, c.Column))
		}
		if c.ReferenceColumn == "" {
			errs = append(errs, fmt.Errorf("reference column name cannot be empty: %s.%s -> %s", c.Table, c.Column, c.ReferenceTable))
		}
		for _, action := range []string{c.OnDelete, c.OnUpdate} {
			if action != "" && !validAction(action) {
				errs = append(errs, fmt.Errorf("invalid referential action: %s, constraint: %s", action, c.GenerateConstraintName()))
			}
		}
	}
	return errs
}

func validAction(a string) bool {
	for _, v := range validActions {
		if strings.EqualFold(a, v) {
			return true
		}
	}
	return false
}
