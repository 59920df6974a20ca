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

	"github.com/tomoncle/querydsl"
	"github.com/tomoncle/querydsl/domain"
)

type explainOptions struct {
	list bool
}

type explanation struct {
	Name        string               `json:"name"`
	Query       string               `json:"query"`
	Description querydsl.Description `json:"description"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &explainOptions{}

	cmd := &cobra.Command{
		Use:   "explain [scenario...]",
		Short: "Print the descriptor of sample queries without running them",
		Long: `Validate the named sample queries (all of them by default) and print
their diagnostic form followed by their structured description. No database
connection is made.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd, rootOpts, opts, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.list, "list", "l", false, "list scenario names only")

	return cmd
}

func runExplain(cmd *cobra.Command, rootOpts *RootOptions, opts *explainOptions, names []string) error {
	out := cmd.OutOrStdout()
	if len(names) == 0 {
		names = scenarioNames()
	}
	if opts.list {
		for _, name := range names {
			s, err := lookupScenario(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-14s %s\n", s.name, s.short)
		}
		return nil
	}

	p, err := newPaths(domain.NewRegistry())
	if err != nil {
		return err
	}
	explained := make([]explanation, 0, len(names))
	for _, name := range names {
		s, err := lookupScenario(name)
		if err != nil {
			return err
		}
		q, _ := s.build(p)
		if err := q.Validate(); err != nil {
			return fmt.Errorf("scenario %s: %w", name, err)
		}
		explained = append(explained, explanation{Name: name, Query: q.String(), Description: q.Describe()})
	}

	if rootOpts.Format == "json" {
		return writeJSON(out, explained)
	}
	for _, e := range explained {
		doc, err := e.Description.YAML()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# %s\n%s\n---\n%s", e.Name, e.Query, doc)
	}
	return nil
}
