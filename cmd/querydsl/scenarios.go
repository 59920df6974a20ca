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
	"sort"

	"github.com/tomoncle/querydsl"
	"github.com/tomoncle/querydsl/domain"
	"github.com/tomoncle/querydsl/schema"
)

// explainable is the part of a query descriptor the explain command prints.
type explainable interface {
	fmt.Stringer
	Describe() querydsl.Description
	Validate() error
}

type fetchFunc func(ctx context.Context, e *querydsl.Engine) (any, error)

type paths struct {
	m  *domain.QMember
	ms *domain.QMember
	t  *domain.QTeam
}

func newPaths(reg *schema.Registry) (*paths, error) {
	m, err := domain.NewQMember(reg, "m")
	if err != nil {
		return nil, err
	}
	ms, err := domain.NewQMember(reg, "ms")
	if err != nil {
		return nil, err
	}
	t, err := domain.NewQTeam(reg, "t")
	if err != nil {
		return nil, err
	}
	return &paths{m: m, ms: ms, t: t}, nil
}

type scenario struct {
	name  string
	short string
	build func(p *paths) (explainable, fetchFunc)
}

func list[R any](q querydsl.Query[R]) (explainable, fetchFunc) {
	return q, func(ctx context.Context, e *querydsl.Engine) (any, error) { return q.Fetch(ctx, e) }
}

func one[R any](q querydsl.Query[R]) (explainable, fetchFunc) {
	return q, func(ctx context.Context, e *querydsl.Engine) (any, error) { return q.FetchOne(ctx, e) }
}

func page[R any](q querydsl.Query[R]) (explainable, fetchFunc) {
	return q, func(ctx context.Context, e *querydsl.Engine) (any, error) { return q.FetchPage(ctx, e) }
}

var scenarios = map[string]scenario{
	"fetch-one": {
		short: "one member by username",
		build: func(p *paths) (explainable, fetchFunc) {
			return one(querydsl.SelectFrom[domain.Member](p.m).Where(p.m.Username.Eq("member1")))
		},
	},
	"sort": {
		short: "age descending, username ascending with nulls last",
		build: func(p *paths) (explainable, fetchFunc) {
			return list(querydsl.SelectFrom[domain.Member](p.m).
				OrderBy(p.m.Age.Desc(), p.m.Username.Asc().NullsLast()))
		},
	},
	"paging": {
		short: "second and third member by username descending, with the total",
		build: func(p *paths) (explainable, fetchFunc) {
			return page(querydsl.SelectFrom[domain.Member](p.m).
				OrderBy(p.m.Username.Desc()).
				Offset(1).
				Limit(2))
		},
	},
	"aggregation": {
		short: "count, sum, avg, max and min of age",
		build: func(p *paths) (explainable, fetchFunc) {
			return one(querydsl.SelectTuple(p.m.Count(), p.m.Age.Sum(), p.m.Age.Avg(), p.m.Age.Max(), p.m.Age.Min()).
				From(p.m))
		},
	},
	"group-by": {
		short: "average age per team",
		build: func(p *paths) (explainable, fetchFunc) {
			return list(querydsl.SelectTuple(p.t.Name, p.m.Age.Avg()).
				From(p.m).
				Join(p.m.Team, p.t).
				GroupBy(p.t.Name).
				OrderBy(p.t.Name.Asc()))
		},
	},
	"join": {
		short: "members of teamA through the team relation",
		build: func(p *paths) (explainable, fetchFunc) {
			return list(querydsl.SelectFrom[domain.Member](p.m).
				Join(p.m.Team, p.t).
				Where(p.t.Name.Eq("teamA")))
		},
	},
	"left-join-on": {
		short: "every member with its team only when the team is teamA",
		build: func(p *paths) (explainable, fetchFunc) {
			return list(querydsl.SelectTuple(p.m, p.t).
				From(p.m).
				LeftJoin(p.m.Team, p.t).On(p.t.Name.Eq("teamA")).
				OrderBy(p.m.Age.Asc()))
		},
	},
	"fetch-join": {
		short: "a member with its team loaded in the same statement",
		build: func(p *paths) (explainable, fetchFunc) {
			return one(querydsl.SelectFrom[domain.Member](p.m).
				Join(p.m.Team, p.t).FetchJoin().
				Where(p.m.Username.Eq("member1")))
		},
	},
	"subquery": {
		short: "members at or above the average age",
		build: func(p *paths) (explainable, fetchFunc) {
			avg := querydsl.CastNumber[int, float64](querydsl.Sub[float64](p.ms.Age.Avg()).From(p.ms))
			return list(querydsl.SelectFrom[domain.Member](p.m).
				Where(p.m.Age.GoeExpr(avg)).
				OrderBy(p.m.Age.Asc()))
		},
	},
	"case": {
		short: "age bands from a searched case",
		build: func(p *paths) (explainable, fetchFunc) {
			return list(querydsl.Select[string](querydsl.Cases[string]().
				When(p.m.Age.Between(0, 20)).Then("0~20").
				When(p.m.Age.Between(21, 30)).Then("21~30").
				Otherwise("other")).
				From(p.m).
				OrderBy(p.m.Age.Asc()))
		},
	},
	"concat": {
		short: "username_age strings",
		build: func(p *paths) (explainable, fetchFunc) {
			return list(querydsl.Select[string](p.m.Username.Concat("_").ConcatExpr(p.m.Age.StringValue())).
				From(p.m).
				OrderBy(p.m.Age.Asc()))
		},
	},
	"projection": {
		short: "member dtos built by constructor",
		build: func(p *paths) (explainable, fetchFunc) {
			return list(querydsl.SelectAs(querydsl.Construct2[domain.MemberDto, string, int](domain.NewMemberDto, p.m.Username, p.m.Age)).
				From(p.m).
				OrderBy(p.m.Age.Asc()))
		},
	},
}

// scenarioNames returns the catalog keys in a stable order.
func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupScenario(name string) (scenario, error) {
	s, ok := scenarios[name]
	if !ok {
		return scenario{}, fmt.Errorf("unknown scenario %q, expected one of %v", name, scenarioNames())
	}
	s.name = name
	return s, nil
}
