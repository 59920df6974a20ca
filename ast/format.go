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

import (
	"fmt"
	"strconv"
	"strings"
)

func (n *Field) String() string     { return n.Alias + "." + n.Name }
func (n *EntityRef) String() string { return n.Alias }

func (n *Constant) String() string {
	switch v := n.Value.(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return "'" + v.String() + "'"
	default:
		return fmt.Sprint(v)
	}
}

func (n *Binary) String() string {
	s := n.Left.String() + " " + n.Op.String() + " " + n.Right.String()
	if n.Escape != 0 {
		s += " escape " + (&Constant{Value: string(n.Escape)}).String()
	}
	if n.Op.Arithmetic() {
		return "(" + s + ")"
	}
	return s
}

func (n *Logical) String() string {
	return n.operand(n.Left) + " " + n.Op.String() + " " + n.operand(n.Right)
}

func (n *Logical) operand(e Expr) string {
	if l, ok := e.(*Logical); ok && l.Op != n.Op {
		return "(" + l.String() + ")"
	}
	return e.String()
}

func (n *Not) String() string { return "not (" + n.Operand.String() + ")" }

func (n *IsNull) String() string {
	if n.Negated {
		return n.Operand.String() + " is not null"
	}
	return n.Operand.String() + " is null"
}

func (n *Between) String() string {
	return n.Operand.String() + " between " + n.Low.String() + " and " + n.High.String()
}

func (n *In) String() string {
	op := " in "
	if n.Negated {
		op = " not in "
	}
	if n.Query != nil {
		return n.Operand.String() + op + n.Query.String()
	}
	return n.Operand.String() + op + "(" + joinExprs(n.Values) + ")"
}

func (n *Func) String() string { return n.Name + "(" + joinExprs(n.Args) + ")" }

func (n *CastText) String() string { return "str(" + n.Operand.String() + ")" }

func (n *Aggregate) String() string {
	switch {
	case n.Operand == nil:
		return n.Func.String() + "(*)"
	case n.Distinct:
		return n.Func.String() + "(distinct " + n.Operand.String() + ")"
	default:
		return n.Func.String() + "(" + n.Operand.String() + ")"
	}
}

func (n *Case) String() string {
	var b strings.Builder
	b.WriteString("case")
	if n.Operand != nil {
		b.WriteString(" " + n.Operand.String())
	}
	for _, w := range n.Whens {
		b.WriteString(" when " + exprString(w.Cond) + " then " + exprString(w.Then))
	}
	b.WriteString(" else " + exprString(n.Else) + " end")
	return b.String()
}

func (n *SubQuery) String() string {
	if n.Query == nil {
		return "(<invalid>)"
	}
	return "(" + n.Query.String() + ")"
}

func (n *Alias) String() string { return n.Operand.String() + " as " + n.Name }

func (o *Order) String() string {
	s := o.Expr.String()
	if o.Desc {
		s += " desc"
	} else {
		s += " asc"
	}
	if o.Nulls != NullsDefault {
		s += " " + o.Nulls.String()
	}
	return s
}

func (j *Join) String() string {
	var b strings.Builder
	b.WriteString(j.Kind.String() + " join ")
	if j.Fetch {
		b.WriteString("fetch ")
	}
	if j.Kind == CrossJoin {
		b.WriteString(j.Target.Entity + " " + j.Target.Alias)
	} else {
		b.WriteString(j.Owner + "." + j.Relation + " " + j.Target.Alias)
	}
	if j.On != nil {
		b.WriteString(" on " + j.On.String())
	}
	return b.String()
}

func (s *Select) String() string {
	var b strings.Builder
	b.WriteString("select ")
	if s.Distinct {
		b.WriteString("distinct ")
	}
	b.WriteString(joinExprs(s.Columns))
	b.WriteString(" from " + s.From.Entity + " " + s.From.Alias)
	for _, j := range s.Joins {
		b.WriteString(" " + j.String())
	}
	if s.Where != nil {
		b.WriteString(" where " + s.Where.String())
	}
	if len(s.GroupBy) > 0 {
		b.WriteString(" group by " + joinExprs(s.GroupBy))
	}
	if s.Having != nil {
		b.WriteString(" having " + s.Having.String())
	}
	if len(s.OrderBy) > 0 {
		keys := make([]string, len(s.OrderBy))
		for i, o := range s.OrderBy {
			keys[i] = o.String()
		}
		b.WriteString(" order by " + strings.Join(keys, ", "))
	}
	if s.HasLimit {
		b.WriteString(" limit " + strconv.FormatInt(s.Limit, 10))
	}
	if s.Offset > 0 {
		b.WriteString(" offset " + strconv.FormatInt(s.Offset, 10))
	}
	return b.String()
}

func (u *Update) String() string {
	var b strings.Builder
	b.WriteString("update " + u.Target.Entity + " " + u.Target.Alias + " set ")
	for i, a := range u.Sets {
		if i > 0 {
			b.WriteString(", ")
		}
		if a.Field == nil {
			b.WriteString("<nil>")
		} else {
			b.WriteString(a.Field.String())
		}
		b.WriteString(" = " + exprString(a.Value))
	}
	if u.Where != nil {
		b.WriteString(" where " + u.Where.String())
	}
	return b.String()
}

func (d *Delete) String() string {
	s := "delete from " + d.Target.Entity + " " + d.Target.Alias
	if d.Where != nil {
		s += " where " + d.Where.String()
	}
	return s
}

func exprString(e Expr) string {
	if e == nil {
		return "<nil>"
	}
	return e.String()
}

func joinExprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
