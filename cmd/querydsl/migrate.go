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
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tomoncle/querydsl/database"
)

type migrateOptions struct {
	drop bool
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Create the member and team tables and their foreign keys, recording
each applied version. With --drop the tables are dropped first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.drop, "drop", false, "drop all tables before migrating")

	return cmd
}

func runMigrate(cmd *cobra.Command, rootOpts *RootOptions, opts *migrateOptions) error {
	ctx := cmd.Context()
	noMigrate := false
	f, cfg, reg, err := openDatabase(ctx, rootOpts, &noMigrate)
	if err != nil {
		return err
	}
	defer f.Close()

	mm := database.NewMigrationManager(f.GetDB(), reg, database.GetLogger(), cfg.DataMigrateConfig)
	if opts.drop {
		if err := mm.DropTables(ctx); err != nil {
			return err
		}
	}
	if err := mm.RunMigrations(ctx); err != nil {
		return err
	}
	applied, err := mm.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	return writeMigrations(cmd.OutOrStdout(), rootOpts.Format, applied)
}

func writeMigrations(w io.Writer, format string, applied []database.Migration) error {
	if format == "json" {
		return writeJSON(w, applied)
	}
	for _, m := range applied {
		fmt.Fprintf(w, "%s  %-24s %s\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
