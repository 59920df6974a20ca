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

	"github.com/spf13/cobra"

	"github.com/tomoncle/querydsl/domain"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample teams and members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, _, _, err := openDatabase(ctx, rootOpts, nil)
			if err != nil {
				return err
			}
			defer f.Close()

			teams, members, err := domain.Seed(ctx, f.GetDB())
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"teams": teams, "members": members})
			}
			out := cmd.OutOrStdout()
			for _, t := range teams {
				fmt.Fprintln(out, t)
			}
			for _, m := range members {
				fmt.Fprintln(out, m)
			}
			return nil
		},
	}
}
