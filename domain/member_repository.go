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

package domain

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/tomoncle/querydsl"
	"github.com/tomoncle/querydsl/repository"
	"github.com/tomoncle/querydsl/schema"
	"github.com/tomoncle/querydsl/types"
)

// MemberRepository adds the member searches to the generic repository.
type MemberRepository struct {
	repository.Repository[Member]
	reg *schema.Registry
	m   *QMember
	t   *QTeam
}

// NewMemberRepository creates a member repository on db.
func NewMemberRepository(db bun.IDB, reg *schema.Registry, opts ...querydsl.Option) (*MemberRepository, error) {
	base, err := repository.NewRepository[Member](db, reg, opts...)
	if err != nil {
		return nil, err
	}
	return newMemberRepository(base, reg)
}

func newMemberRepository(base repository.Repository[Member], reg *schema.Registry) (*MemberRepository, error) {
	m, err := NewQMember(reg, base.Path().Alias())
	if err != nil {
		return nil, err
	}
	t, err := NewQTeam(reg, "team")
	if err != nil {
		return nil, err
	}
	return &MemberRepository{Repository: base, reg: reg, m: m, t: t}, nil
}

// WithTx returns a member repository running on tx.
func (r *MemberRepository) WithTx(tx bun.IDB) *MemberRepository {
	return &MemberRepository{Repository: r.Repository.WithTx(tx), reg: r.reg, m: r.m, t: r.t}
}

// Q is the member handle the repository's predicates must be built on.
func (r *MemberRepository) Q() *QMember { return r.m }

// FindByUsername returns every member named username.
func (r *MemberRepository) FindByUsername(ctx context.Context, username string) ([]*Member, error) {
	return r.FindAll(ctx, r.m.Username.Eq(username))
}

func (r *MemberRepository) usernameEq(username string) *querydsl.Predicate {
	if username == "" {
		return nil
	}
	return r.m.Username.Eq(username)
}

func (r *MemberRepository) teamNameEq(teamName string) *querydsl.Predicate {
	if teamName == "" {
		return nil
	}
	return r.t.Name.Eq(teamName)
}

func (r *MemberRepository) ageGoe(age *int) *querydsl.Predicate {
	if age == nil {
		return nil
	}
	return r.m.Age.Goe(*age)
}

func (r *MemberRepository) ageLoe(age *int) *querydsl.Predicate {
	if age == nil {
		return nil
	}
	return r.m.Age.Loe(*age)
}

func (r *MemberRepository) conditions(cond MemberSearchCondition) []*querydsl.Predicate {
	return []*querydsl.Predicate{
		r.usernameEq(cond.Username),
		r.teamNameEq(cond.TeamName),
		r.ageGoe(cond.AgeGoe),
		r.ageLoe(cond.AgeLoe),
	}
}

func (r *MemberRepository) searchQuery(cond MemberSearchCondition) querydsl.Query[MemberTeamDto] {
	return querydsl.SelectAs(querydsl.Fields[MemberTeamDto](
		r.m.ID.As("memberId"),
		r.m.Username,
		r.m.Age,
		r.t.ID.As("teamId"),
		r.t.Name.As("teamName"),
	)).
		From(r.m).
		LeftJoin(r.m.Team, r.t).
		Where(r.conditions(cond)...)
}

// Search returns every member matching cond together with its team.
func (r *MemberRepository) Search(ctx context.Context, cond MemberSearchCondition) ([]MemberTeamDto, error) {
	return r.searchQuery(cond).OrderBy(r.m.ID.Asc()).Fetch(ctx, r.Engine())
}

// SearchPageSimple pages a search, counting with the same joins as the
// content query.
func (r *MemberRepository) SearchPageSimple(ctx context.Context, cond MemberSearchCondition, page *types.PageRequest) (*types.Pagination[MemberTeamDto], error) {
	result, err := r.searchQuery(cond).
		OrderBy(r.m.ID.Asc()).
		Offset(page.GetOffset()).
		Limit(page.GetLimit()).
		FetchPage(ctx, r.Engine())
	if err != nil {
		return nil, err
	}
	return types.NewPagination(page, result.Items, result.Total), nil
}

// SearchPageComplex pages a search with a separate count query. The count
// skips the team join unless the condition filters on the team, and is not
// run at all when the page itself shows the total: a first page shorter
// than the page size, or a short last page.
func (r *MemberRepository) SearchPageComplex(ctx context.Context, cond MemberSearchCondition, page *types.PageRequest) (*types.Pagination[MemberTeamDto], error) {
	items, err := r.searchQuery(cond).
		OrderBy(r.m.ID.Asc()).
		Offset(page.GetOffset()).
		Limit(page.GetLimit()).
		Fetch(ctx, r.Engine())
	if err != nil {
		return nil, err
	}
	n := int64(len(items))
	if n < page.GetLimit() && (page.GetOffset() == 0 || n > 0) {
		return types.NewPagination(page, items, page.GetOffset()+n), nil
	}
	total, err := r.countQuery(cond).FetchCount(ctx, r.Engine())
	if err != nil {
		return nil, err
	}
	return types.NewPagination(page, items, total), nil
}

func (r *MemberRepository) countQuery(cond MemberSearchCondition) querydsl.Query[*Member] {
	q := querydsl.SelectFrom[Member](r.m)
	if cond.TeamName != "" {
		q = q.LeftJoin(r.m.Team, r.t)
	}
	return q.Where(r.conditions(cond)...)
}
