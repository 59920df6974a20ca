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

package ast

// Source is an aliased entity table.
type Source struct {
	Entity string
	Table  string
	Alias  string
}

// JoinKind selects the join flavour.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	CrossJoin
)

func (k JoinKind) String() string {
	switch k {
	case LeftJoin:
		return "left"
	case CrossJoin:
		return "cross"
	default:
		return "inner"
	}
}

// Join attaches a second source. Path joins carry the owner alias and relation
// name plus the derived key condition in Cond; cross joins have neither.
type Join struct {
	Kind     JoinKind
	Target   Source
	Owner    string
	Relation string
	ToMany   bool
	Cond     Expr
	On       Expr
	Fetch    bool
}

// NullsOrder places nulls in an ordering.
type NullsOrder int

const (
	NullsDefault NullsOrder = iota
	NullsFirst
	NullsLast
)

func (n NullsOrder) String() string {
	switch n {
	case NullsFirst:
		return "nulls first"
	case NullsLast:
		return "nulls last"
	default:
		return ""
	}
}

// Order is one ordering key.
type Order struct {
	Expr  Expr
	Desc  bool
	Nulls NullsOrder
}

// Select is a read statement. Limit applies only when HasLimit is set.
type Select struct {
	From     Source
	Joins    []*Join
	Columns  []Expr
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []*Order
	Offset   int64
	Limit    int64
	HasLimit bool
	Distinct bool
}

// Aliases lists the aliases the statement brings into scope, from first.
func (s *Select) Aliases() []string {
	out := make([]string, 0, len(s.Joins)+1)
	out = append(out, s.From.Alias)
	for _, j := range s.Joins {
		out = append(out, j.Target.Alias)
	}
	return out
}

// Clone returns a shallow copy with its own slices.
func (s *Select) Clone() *Select {
	c := *s
	c.Joins = append([]*Join(nil), s.Joins...)
	c.Columns = append([]Expr(nil), s.Columns...)
	c.GroupBy = append([]Expr(nil), s.GroupBy...)
	c.OrderBy = append([]*Order(nil), s.OrderBy...)
	return &c
}

// Assignment is one "set column = value" pair of an Update.
type Assignment struct {
	Field *Field
	Value Expr
}

// Update is a bulk update statement.
type Update struct {
	Target Source
	Sets   []Assignment
	Where  Expr
}

// Delete is a bulk delete statement.
type Delete struct {
	Target Source
	Where  Expr
}
