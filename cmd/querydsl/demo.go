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
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tomoncle/querydsl"
	"github.com/tomoncle/querydsl/database"
	"github.com/tomoncle/querydsl/domain"
	"github.com/tomoncle/querydsl/types"
)

type demoOptions struct {
	scenarios []string
	seed      bool
	metrics   bool
	team      string
	ageGoe    int
	ageLoe    int
	page      int
	pageSize  int
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &demoOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the sample queries and the member search",
		Long: `Seed the sample data, run the catalog of sample queries and finish with
a paged member search filtered by the search flags. Negative ages leave the
bound out of the search.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.scenarios, "scenario", "s", nil, "scenarios to run (default all)")
	cmd.Flags().BoolVar(&opts.seed, "seed", true, "insert the sample data first")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "print operation counters at the end")
	cmd.Flags().StringVar(&opts.team, "team", "", "search: team name")
	cmd.Flags().IntVar(&opts.ageGoe, "age-goe", -1, "search: minimum age")
	cmd.Flags().IntVar(&opts.ageLoe, "age-loe", -1, "search: maximum age")
	cmd.Flags().IntVar(&opts.page, "page", 1, "search: page number, starting at 1")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 10, "search: page size")

	return cmd
}

func (o *demoOptions) condition() domain.MemberSearchCondition {
	cond := domain.MemberSearchCondition{TeamName: o.team}
	if o.ageGoe >= 0 {
		cond.AgeGoe = &o.ageGoe
	}
	if o.ageLoe >= 0 {
		cond.AgeLoe = &o.ageLoe
	}
	return cond
}

func runDemo(cmd *cobra.Command, rootOpts *RootOptions, opts *demoOptions) error {
	ctx := cmd.Context()
	names := opts.scenarios
	if len(names) == 0 {
		names = scenarioNames()
	}
	selected := make([]scenario, 0, len(names))
	for _, name := range names {
		s, err := lookupScenario(name)
		if err != nil {
			return err
		}
		selected = append(selected, s)
	}

	f, _, reg, err := openDatabase(ctx, rootOpts, nil)
	if err != nil {
		return err
	}
	defer f.Close()

	db := f.GetDB()
	if opts.seed {
		if _, _, err := domain.Seed(ctx, db); err != nil {
			return err
		}
	}

	promReg := prometheus.NewRegistry()
	members, err := domain.NewMemberRepository(db, reg,
		querydsl.WithLogger(log),
		querydsl.WithMetrics(querydsl.NewMetrics(promReg)),
		querydsl.WithErrorClassifier(database.ClassifyError),
	)
	if err != nil {
		return err
	}
	p, err := newPaths(reg)
	if err != nil {
		return err
	}

	results := make(map[string]any, len(selected)+1)
	out := cmd.OutOrStdout()
	text := rootOpts.Format == "text"
	for _, s := range selected {
		_, fetch := s.build(p)
		res, err := fetch(ctx, members.Engine())
		if err != nil {
			return fmt.Errorf("scenario %s: %w", s.name, err)
		}
		results[s.name] = res
		if text {
			fmt.Fprintf(out, "# %s: %s\n", s.name, s.short)
			writeResult(out, res)
		}
	}

	found, err := members.SearchPageComplex(ctx, opts.condition(), types.NewPageRequest(opts.page, opts.pageSize))
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	results["search"] = found
	if text {
		fmt.Fprintf(out, "# search: page %d of %d, %d members\n", found.Page, found.TotalPages(), found.Total)
		writeResult(out, found.Items)
	}

	if !text {
		if err := writeJSON(out, results); err != nil {
			return err
		}
	}
	if opts.metrics {
		return writeMetrics(out, promReg)
	}
	return nil
}

// writeMetrics prints the operation counters gathered from reg.
func writeMetrics(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, fam := range families {
		if !strings.HasSuffix(fam.GetName(), "_total") {
			continue
		}
		for _, m := range fam.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			fmt.Fprintf(w, "%s{%s} %g\n", fam.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
	return nil
}
