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
	"gopkg.in/yaml.v3"

	"github.com/tomoncle/querydsl/ast"
)

// Description is the structured form of a query descriptor, for logs and
// tooling. It is not executable.
type Description struct {
	Entity     string             `yaml:"entity"`
	Alias      string             `yaml:"alias"`
	Projection []string           `yaml:"projection"`
	Joins      []JoinDescription  `yaml:"joins,omitempty"`
	Where      *ExprTree          `yaml:"where,omitempty"`
	GroupBy    []string           `yaml:"groupBy,omitempty"`
	Having     *ExprTree          `yaml:"having,omitempty"`
	OrderBy    []OrderDescription `yaml:"orderBy,omitempty"`
	Offset     int64              `yaml:"offset,omitempty"`
	Limit      *int64             `yaml:"limit,omitempty"`
	Distinct   bool               `yaml:"distinct,omitempty"`
}

type JoinDescription struct {
	Kind   string    `yaml:"kind"`
	Entity string    `yaml:"entity"`
	Alias  string    `yaml:"alias"`
	Path   string    `yaml:"path,omitempty"`
	Fetch  bool      `yaml:"fetch,omitempty"`
	On     *ExprTree `yaml:"on,omitempty"`
}

type OrderDescription struct {
	Expr  string `yaml:"expr"`
	Desc  bool   `yaml:"desc,omitempty"`
	Nulls string `yaml:"nulls,omitempty"`
}

// ExprTree keeps the boolean structure of a predicate; every other
// expression is a leaf carrying its rendered text.
type ExprTree struct {
	Node string      `yaml:"node"`
	Op   string      `yaml:"op,omitempty"`
	Text string      `yaml:"text,omitempty"`
	Args []*ExprTree `yaml:"args,omitempty"`
}

// Describe returns the structured form of the query.
func (q Query[R]) Describe() Description {
	return describeSelect(q.lower())
}

func describeSelect(sel *ast.Select) Description {
	d := Description{
		Entity:   sel.From.Entity,
		Alias:    sel.From.Alias,
		Where:    describeExpr(sel.Where),
		Having:   describeExpr(sel.Having),
		Offset:   sel.Offset,
		Distinct: sel.Distinct,
	}
	for _, c := range sel.Columns {
		d.Projection = append(d.Projection, c.String())
	}
	for _, j := range sel.Joins {
		jd := JoinDescription{
			Kind:   j.Kind.String(),
			Entity: j.Target.Entity,
			Alias:  j.Target.Alias,
			Fetch:  j.Fetch,
			On:     describeExpr(j.On),
		}
		if j.Relation != "" {
			jd.Path = j.Owner + "." + j.Relation
		}
		d.Joins = append(d.Joins, jd)
	}
	for _, g := range sel.GroupBy {
		d.GroupBy = append(d.GroupBy, g.String())
	}
	for _, o := range sel.OrderBy {
		d.OrderBy = append(d.OrderBy, OrderDescription{Expr: o.Expr.String(), Desc: o.Desc, Nulls: o.Nulls.String()})
	}
	if sel.HasLimit {
		limit := sel.Limit
		d.Limit = &limit
	}
	return d
}

func describeExpr(e ast.Expr) *ExprTree {
	switch n := e.(type) {
	case nil:
		return nil
	case *ast.Logical:
		return &ExprTree{Node: "logical", Op: n.Op.String(), Args: []*ExprTree{describeExpr(n.Left), describeExpr(n.Right)}}
	case *ast.Not:
		return &ExprTree{Node: "not", Args: []*ExprTree{describeExpr(n.Operand)}}
	case *ast.Binary:
		return &ExprTree{Node: "binary", Op: n.Op.String(), Text: n.String()}
	case *ast.IsNull:
		return &ExprTree{Node: "isNull", Text: n.String()}
	case *ast.Between:
		return &ExprTree{Node: "between", Text: n.String()}
	case *ast.In:
		return &ExprTree{Node: "in", Text: n.String()}
	default:
		return &ExprTree{Node: "expr", Text: n.String()}
	}
}

// YAML renders the description.
func (d Description) YAML() ([]byte, error) {
	return yaml.Marshal(d)
}

// ParseDescription reads a description rendered by YAML.
func ParseDescription(data []byte) (Description, error) {
	var d Description
	err := yaml.Unmarshal(data, &d)
	return d, err
}
