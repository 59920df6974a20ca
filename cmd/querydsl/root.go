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
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tomoncle/querydsl/database"
	"github.com/tomoncle/querydsl/domain"
	"github.com/tomoncle/querydsl/schema"
	"github.com/tomoncle/querydsl/utils"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	LogLevel   string
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

var log = utils.GetLogger("querydsl")

// NewRootCommand creates the root command of the querydsl CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "querydsl",
		Short: "Typed queries over the member/team sample schema",
		Long: `querydsl migrates, seeds and queries the member/team sample schema
through the typed query layer. Without --config it works on an in-memory
sqlite database that lives as long as the command.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			utils.ConfigureLogLevel(opts.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "database configuration file (yaml or json)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewDemoCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))

	return cmd
}

// openDatabase loads the configuration and connects. migrate overrides the
// configured migrate-on-startup switch when not nil.
func openDatabase(ctx context.Context, opts *RootOptions, migrate *bool) (*database.BaseDatabaseFactory, *database.Config, *schema.Registry, error) {
	cfg, err := database.LoadConfig(opts.ConfigFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if migrate != nil {
		cfg.DataMigrateConfig.EnableMigrateOnStartup = *migrate
	}
	// the in-memory database is gone once the command returns
	if cfg.ConnectionConfig.DBName == database.MemoryDBName {
		cfg.ConnectionConfig.HealthCheckInterval = 0
	}
	reg := domain.NewRegistry()
	f, err := database.Open(ctx, cfg, reg)
	if err != nil {
		return nil, nil, nil, err
	}
	log.WithField("type", cfg.ConnectionConfig.Type).Debug("database opened")
	return f, cfg, reg, nil
}
