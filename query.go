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

package querydsl

import (
	"slices"

	"github.com/tomoncle/querydsl/ast"
	"github.com/tomoncle/querydsl/schema"
)

// queryState holds the clauses shared by queries and subqueries. It is never
// modified after construction: every builder call works on a clone.
type queryState struct {
	reg      *schema.Registry
	from     *entityInfo
	scope    []*entityInfo
	joins    []*ast.Join
	where    *Predicate
	groupBy  []ast.Expr
	having   *Predicate
	orders   []*ast.Order
	offset   int64
	limit    int64
	hasLimit bool
	distinct bool
	err      error
}

func (s *queryState) clone() *queryState {
	if s == nil {
		return &queryState{}
	}
	c := *s
	c.scope = slices.Clone(s.scope)
	c.joins = slices.Clone(s.joins)
	c.groupBy = slices.Clone(s.groupBy)
	c.orders = slices.Clone(s.orders)
	return &c
}

// fail records err unless an earlier error is already recorded.
func (s *queryState) fail(err error) {
	if s.err == nil && err != nil {
		s.err = err
	}
}

func (s *queryState) lookup(alias string) *entityInfo {
	for _, info := range s.scope {
		if info.alias == alias {
			return info
		}
	}
	return nil
}

func (s *queryState) enter(info *entityInfo) error {
	if s.lookup(info.alias) != nil {
		return invalid("alias", "alias %q is declared twice", info.alias)
	}
	if s.reg == nil {
		s.reg = info.reg
	}
	s.scope = append(s.scope, info)
	return nil
}

func (s *queryState) withFrom(srcs []Joinable) *queryState {
	c := s.clone()
	for _, src := range srcs {
		info, err := src.joinable()
		if err != nil {
			c.fail(err)
			continue
		}
		if err := c.enter(info); err != nil {
			c.fail(err)
			continue
		}
		if c.from == nil {
			c.from = info
			continue
		}
		c.joins = append(c.joins, &ast.Join{Kind: ast.CrossJoin, Target: info.source()})
	}
	return c
}

func (s *queryState) withJoin(kind ast.JoinKind, path RelationPath, target Joinable) *queryState {
	c := s.clone()
	owner, rel, err := path.relation()
	if err != nil {
		c.fail(err)
		return c
	}
	info, err := target.joinable()
	if err != nil {
		c.fail(err)
		return c
	}
	if in := c.lookup(owner.alias); in == nil || in.meta != owner.meta {
		c.fail(invalid("join", "owner %s of %s.%s is not in scope", owner.alias, owner.alias, rel.Name))
		return c
	}
	if info.meta.Name != rel.Target {
		c.fail(invalid("join", "%s.%s targets %s, not %s", owner.alias, rel.Name, rel.Target, info.meta.Name))
		return c
	}
	link, err := owner.reg.Link(rel)
	if err != nil {
		c.fail(err)
		return c
	}
	if err := c.enter(info); err != nil {
		c.fail(err)
		return c
	}
	ownerField, _ := link.Owner.FieldByColumn(link.OwnerColumn)
	targetField, _ := link.Target.FieldByColumn(link.TargetColumn)
	c.joins = append(c.joins, &ast.Join{
		Kind:     kind,
		Target:   info.source(),
		Owner:    owner.alias,
		Relation: rel.Name,
		ToMany:   rel.Kind == schema.OneToMany,
		Cond:     &ast.Binary{Op: ast.OpEq, Left: owner.field(ownerField), Right: info.field(targetField)},
	})
	return c
}

func (s *queryState) withUnrelated(kind ast.JoinKind, target Joinable) *queryState {
	c := s.clone()
	info, err := target.joinable()
	if err != nil {
		c.fail(err)
		return c
	}
	if kind != ast.InnerJoin && kind != ast.CrossJoin {
		c.fail(invalid("join", "%s join of unrelated entity %s is not supported", kind, info.alias))
		return c
	}
	if c.from == nil {
		c.fail(invalid("join", "join of %s before any source", info.alias))
		return c
	}
	if err := c.enter(info); err != nil {
		c.fail(err)
		return c
	}
	c.joins = append(c.joins, &ast.Join{Kind: ast.CrossJoin, Target: info.source()})
	return c
}

// lastJoin returns a private copy of the latest join, already stored in s.
func (s *queryState) lastJoin(op string) *ast.Join {
	if len(s.joins) == 0 {
		s.fail(invalid(op, "no preceding join"))
		return nil
	}
	j := *s.joins[len(s.joins)-1]
	s.joins[len(s.joins)-1] = &j
	return &j
}

func (s *queryState) withOn(ps []*Predicate) *queryState {
	c := s.clone()
	p := AllOf(ps...)
	if err := noAggregate("on", p); err != nil {
		c.fail(err)
		return c
	}
	j := c.lastJoin("on")
	if j == nil || p == nil {
		return c
	}
	if j.Kind == ast.CrossJoin {
		j.Kind = ast.InnerJoin
	}
	if j.On == nil {
		j.On = p.Node()
	} else {
		j.On = &ast.Logical{Op: ast.OpAnd, Left: j.On, Right: p.Node()}
	}
	return c
}

func (s *queryState) withFetch() *queryState {
	c := s.clone()
	j := c.lastJoin("fetchJoin")
	if j == nil {
		return c
	}
	if j.Relation == "" {
		c.fail(invalid("fetchJoin", "%s is not joined through a relation", j.Target.Alias))
		return c
	}
	j.Fetch = true
	return c
}

func noAggregate(op string, p *Predicate) error {
	if p == nil {
		return nil
	}
	if ast.Contains(p.Node(), ast.IsAggregate) {
		return invalid(op, "aggregate not allowed in %s: %s", op, p)
	}
	return nil
}

func (s *queryState) withWhere(ps []*Predicate) *queryState {
	c := s.clone()
	p := AllOf(ps...)
	if err := noAggregate("where", p); err != nil {
		c.fail(err)
		return c
	}
	c.where = c.where.And(p)
	return c
}

func (s *queryState) withGroupBy(exprs []Expression) *queryState {
	c := s.clone()
	for _, e := range exprs {
		c.groupBy = append(c.groupBy, ast.Unalias(e.Node()))
	}
	return c
}

func (s *queryState) withHaving(ps []*Predicate) *queryState {
	c := s.clone()
	c.having = c.having.And(AllOf(ps...))
	return c
}

func (s *queryState) withOrder(os []OrderSpecifier) *queryState {
	c := s.clone()
	for _, o := range os {
		if o.expr == nil {
			c.fail(invalid("orderBy", "empty order key"))
			continue
		}
		c.orders = append(c.orders, o.node())
	}
	return c
}

func (s *queryState) withOffset(n int64) *queryState {
	c := s.clone()
	if n < 0 {
		c.fail(invalid("offset", "negative offset %d", n))
		return c
	}
	c.offset = n
	return c
}

func (s *queryState) withLimit(n int64) *queryState {
	c := s.clone()
	if n < 0 {
		c.fail(invalid("limit", "negative limit %d", n))
		return c
	}
	c.limit, c.hasLimit = n, true
	return c
}

func (s *queryState) withDistinct() *queryState {
	c := s.clone()
	c.distinct = true
	return c
}

func (s *queryState) build(columns []ast.Expr) *ast.Select {
	if s == nil {
		s = &queryState{}
	}
	sel := &ast.Select{
		Joins:    slices.Clone(s.joins),
		Columns:  columns,
		Where:    s.where.Node(),
		GroupBy:  slices.Clone(s.groupBy),
		Having:   s.having.Node(),
		OrderBy:  slices.Clone(s.orders),
		Offset:   s.offset,
		Limit:    s.limit,
		HasLimit: s.hasLimit,
		Distinct: s.distinct,
	}
	if s.from != nil {
		sel.From = s.from.source()
	}
	return sel
}

// entities maps every alias in scope to its registered entity.
func (s *queryState) entities() map[string]*schema.Entity {
	out := make(map[string]*schema.Entity, len(s.scope))
	for _, info := range s.scope {
		out[info.alias] = info.meta
	}
	return out
}

// Query is an immutable query descriptor whose rows are projected into R.
// Every builder method returns a new Query and leaves the receiver intact,
// so a Query can be shared, extended and executed any number of times.
//
// Errors detectable at the call site are recorded and reported by Err,
// Validate and every execution method.
type Query[R any] struct {
	st   *queryState
	proj Projection[R]
}

// SelectFrom selects whole entities from src.
func SelectFrom[E any](src EntitySource[E]) Query[*E] {
	return Query[*E]{
		st:   (&queryState{}).withFrom([]Joinable{src}),
		proj: exprProjection[*E]{node: src.Path().Node()},
	}
}

// Select projects a single expression. Call From to set the source.
func Select[T any](e Expr[T]) Query[T] {
	return Query[T]{st: &queryState{}, proj: exprProjection[T]{node: e.Node()}}
}

// SelectTuple projects an ordered tuple of expressions.
func SelectTuple(exprs ...Expression) Query[Tuple] {
	return Query[Tuple]{st: &queryState{}, proj: tupleProjection(exprs)}
}

// SelectAs projects rows through p, such as Fields, Bean or Constructor.
func SelectAs[R any](p Projection[R]) Query[R] {
	return Query[R]{st: &queryState{}, proj: p}
}

func (q Query[R]) with(st *queryState) Query[R] { return Query[R]{st: st, proj: q.proj} }

// From adds sources. The first source of the query is its root; later ones
// are cross joined.
func (q Query[R]) From(srcs ...Joinable) Query[R] { return q.with(q.st.withFrom(srcs)) }

// Join inner joins target through the relationship path.
func (q Query[R]) Join(path RelationPath, target Joinable) Query[R] {
	return q.with(q.st.withJoin(ast.InnerJoin, path, target))
}

// LeftJoin outer joins target through the relationship path.
func (q Query[R]) LeftJoin(path RelationPath, target Joinable) Query[R] {
	return q.with(q.st.withJoin(ast.LeftJoin, path, target))
}

// JoinUnrelated joins an entity that has no declared relationship with the
// query. Only inner joins are supported; restrict them with On.
func (q Query[R]) JoinUnrelated(kind JoinKind, target Joinable) Query[R] {
	return q.with(q.st.withUnrelated(kind, target))
}

// CrossJoin adds target as a theta join source. Match rows with Where.
func (q Query[R]) CrossJoin(target Joinable) Query[R] {
	return q.with(q.st.withUnrelated(ast.CrossJoin, target))
}

// On restricts the latest join.
func (q Query[R]) On(ps ...*Predicate) Query[R] { return q.with(q.st.withOn(ps)) }

// FetchJoin marks the latest join as a fetch join: the joined entity is
// materialized into the owner's relationship field.
func (q Query[R]) FetchJoin() Query[R] { return q.with(q.st.withFetch()) }

// Where adds predicates joined by and. Nil predicates are ignored.
func (q Query[R]) Where(ps ...*Predicate) Query[R] { return q.with(q.st.withWhere(ps)) }

func (q Query[R]) GroupBy(exprs ...Expression) Query[R] { return q.with(q.st.withGroupBy(exprs)) }

func (q Query[R]) Having(ps ...*Predicate) Query[R] { return q.with(q.st.withHaving(ps)) }

func (q Query[R]) OrderBy(os ...OrderSpecifier) Query[R] { return q.with(q.st.withOrder(os)) }

func (q Query[R]) Offset(n int64) Query[R] { return q.with(q.st.withOffset(n)) }

func (q Query[R]) Limit(n int64) Query[R] { return q.with(q.st.withLimit(n)) }

func (q Query[R]) Distinct() Query[R] { return q.with(q.st.withDistinct()) }

// Err reports the first error recorded while building the query.
func (q Query[R]) Err() error {
	if q.proj == nil {
		return invalid("select", "no projection")
	}
	if q.st != nil && q.st.err != nil {
		return q.st.err
	}
	return q.proj.check()
}

// Validate runs Err and the scope checks that need the complete query.
func (q Query[R]) Validate() error {
	if err := q.Err(); err != nil {
		return err
	}
	return validateSelect(q.lower(), nil)
}

func (q Query[R]) lower() *ast.Select {
	var cols []ast.Expr
	if q.proj != nil {
		cols = q.proj.columns()
	}
	return q.st.build(cols)
}

func (q Query[R]) state() *queryState {
	if q.st == nil {
		return &queryState{}
	}
	return q.st
}

// String renders the query in a JPQL-like diagnostic form.
func (q Query[R]) String() string { return q.lower().String() }
