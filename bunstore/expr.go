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

package bunstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/querydsl/ast"
)

var binarySQL = [...]string{
	ast.OpEq:     " = ",
	ast.OpNe:     " <> ",
	ast.OpGt:     " > ",
	ast.OpGoe:    " >= ",
	ast.OpLt:     " < ",
	ast.OpLoe:    " <= ",
	ast.OpLike:   " LIKE ",
	ast.OpAdd:    " + ",
	ast.OpSub:    " - ",
	ast.OpMul:    " * ",
	ast.OpDiv:    " / ",
	ast.OpConcat: " || ",
}

var aggSQL = [...]string{
	ast.AggCount: "COUNT",
	ast.AggSum:   "SUM",
	ast.AggAvg:   "AVG",
	ast.AggMax:   "MAX",
	ast.AggMin:   "MIN",
}

// expr renders an ast expression as a bun query argument.
type expr struct {
	s *Store
	e ast.Expr
}

var _ schema.QueryAppender = expr{}

func (x expr) AppendQuery(fmter schema.Formatter, b []byte) ([]byte, error) {
	return x.s.appendExpr(fmter, b, x.e)
}

// order renders one ordering key with its null placement.
type order struct {
	s *Store
	o *ast.Order
}

func (x order) AppendQuery(fmter schema.Formatter, b []byte) ([]byte, error) {
	dir := " ASC"
	if x.o.Desc {
		dir = " DESC"
	}
	if x.o.Nulls != ast.NullsDefault && fmter.Dialect().Name() == dialect.MySQL {
		// MySQL has no NULLS FIRST/LAST; sort on the null test first.
		var err error
		b, err = x.s.appendExpr(fmter, b, x.o.Expr)
		if err != nil {
			return b, err
		}
		if x.o.Nulls == ast.NullsLast {
			b = append(b, " IS NULL ASC, "...)
		} else {
			b = append(b, " IS NULL DESC, "...)
		}
	}
	b, err := x.s.appendExpr(fmter, b, x.o.Expr)
	if err != nil {
		return b, err
	}
	b = append(b, dir...)
	if x.o.Nulls != ast.NullsDefault && fmter.Dialect().Name() != dialect.MySQL {
		b = append(b, ' ')
		b = append(b, strings.ToUpper(x.o.Nulls.String())...)
	}
	return b, nil
}

func (s *Store) appendExprs(fmter schema.Formatter, b []byte, es []ast.Expr) ([]byte, error) {
	var err error
	for i, e := range es {
		if i > 0 {
			b = append(b, ", "...)
		}
		if b, err = s.appendExpr(fmter, b, e); err != nil {
			return b, err
		}
	}
	return b, nil
}

func (s *Store) appendExpr(fmter schema.Formatter, b []byte, e ast.Expr) ([]byte, error) {
	var err error
	switch n := e.(type) {
	case *ast.Field:
		b = fmter.AppendIdent(b, n.Alias)
		b = append(b, '.')
		b = fmter.AppendIdent(b, n.Column)
	case *ast.Constant:
		if n.Value == nil {
			return append(b, "NULL"...), nil
		}
		b = fmter.AppendQuery(b, "?", n.Value)
	case *ast.Binary:
		if n.Op == ast.OpConcat && fmter.Dialect().Name() == dialect.MySQL {
			b = append(b, "CONCAT("...)
			if b, err = s.appendExprs(fmter, b, []ast.Expr{n.Left, n.Right}); err != nil {
				return b, err
			}
			return append(b, ')'), nil
		}
		if n.Op.Arithmetic() {
			b = append(b, '(')
		}
		if b, err = s.appendExpr(fmter, b, n.Left); err != nil {
			return b, err
		}
		b = append(b, binarySQL[n.Op]...)
		if b, err = s.appendExpr(fmter, b, n.Right); err != nil {
			return b, err
		}
		if n.Escape != 0 {
			b = append(b, " ESCAPE "...)
			b = fmter.AppendQuery(b, "?", string(n.Escape))
		}
		if n.Op.Arithmetic() {
			b = append(b, ')')
		}
	case *ast.Logical:
		b = append(b, '(')
		if b, err = s.appendExpr(fmter, b, n.Left); err != nil {
			return b, err
		}
		if n.Op == ast.OpOr {
			b = append(b, " OR "...)
		} else {
			b = append(b, " AND "...)
		}
		if b, err = s.appendExpr(fmter, b, n.Right); err != nil {
			return b, err
		}
		b = append(b, ')')
	case *ast.Not:
		b = append(b, "NOT ("...)
		if b, err = s.appendExpr(fmter, b, n.Operand); err != nil {
			return b, err
		}
		b = append(b, ')')
	case *ast.IsNull:
		if b, err = s.appendExpr(fmter, b, n.Operand); err != nil {
			return b, err
		}
		if n.Negated {
			b = append(b, " IS NOT NULL"...)
		} else {
			b = append(b, " IS NULL"...)
		}
	case *ast.Between:
		if b, err = s.appendExpr(fmter, b, n.Operand); err != nil {
			return b, err
		}
		b = append(b, " BETWEEN "...)
		if b, err = s.appendExpr(fmter, b, n.Low); err != nil {
			return b, err
		}
		b = append(b, " AND "...)
		if b, err = s.appendExpr(fmter, b, n.High); err != nil {
			return b, err
		}
	case *ast.In:
		if n.Query == nil && len(n.Values) == 0 {
			if n.Negated {
				return append(b, "1 = 1"...), nil
			}
			return append(b, "1 = 0"...), nil
		}
		if b, err = s.appendExpr(fmter, b, n.Operand); err != nil {
			return b, err
		}
		if n.Negated {
			b = append(b, " NOT IN "...)
		} else {
			b = append(b, " IN "...)
		}
		if n.Query != nil {
			return s.appendExpr(fmter, b, n.Query)
		}
		b = append(b, '(')
		if b, err = s.appendExprs(fmter, b, n.Values); err != nil {
			return b, err
		}
		b = append(b, ')')
	case *ast.Func:
		b = append(b, strings.ToUpper(n.Name)...)
		b = append(b, '(')
		if b, err = s.appendExprs(fmter, b, n.Args); err != nil {
			return b, err
		}
		b = append(b, ')')
	case *ast.CastText:
		b = append(b, "CAST("...)
		if b, err = s.appendExpr(fmter, b, n.Operand); err != nil {
			return b, err
		}
		if fmter.Dialect().Name() == dialect.MySQL {
			b = append(b, " AS CHAR)"...)
		} else {
			b = append(b, " AS TEXT)"...)
		}
	case *ast.Aggregate:
		b = append(b, aggSQL[n.Func]...)
		b = append(b, '(')
		switch {
		case n.Operand == nil:
			b = append(b, '*')
		default:
			if n.Distinct {
				b = append(b, "DISTINCT "...)
			}
			if b, err = s.appendExpr(fmter, b, n.Operand); err != nil {
				return b, err
			}
		}
		b = append(b, ')')
	case *ast.Case:
		b = append(b, "CASE"...)
		if n.Operand != nil {
			b = append(b, ' ')
			if b, err = s.appendExpr(fmter, b, n.Operand); err != nil {
				return b, err
			}
		}
		for _, w := range n.Whens {
			b = append(b, " WHEN "...)
			if b, err = s.appendExpr(fmter, b, w.Cond); err != nil {
				return b, err
			}
			b = append(b, " THEN "...)
			if b, err = s.appendExpr(fmter, b, w.Then); err != nil {
				return b, err
			}
		}
		if n.Else != nil {
			b = append(b, " ELSE "...)
			if b, err = s.appendExpr(fmter, b, n.Else); err != nil {
				return b, err
			}
		}
		b = append(b, " END"...)
	case *ast.SubQuery:
		if n.Err != nil {
			return b, n.Err
		}
		q, err := s.selectQuery(n.Query)
		if err != nil {
			return b, err
		}
		b = append(b, '(')
		if b, err = q.AppendQuery(fmter, b); err != nil {
			return b, err
		}
		b = append(b, ')')
	case *ast.Alias:
		return s.appendExpr(fmter, b, n.Operand)
	case nil:
		return b, errors.New("bunstore: missing expression")
	default:
		return b, fmt.Errorf("bunstore: unsupported expression %T (%s)", e, e)
	}
	return b, nil
}

// check walks every expression of sel, nested selects included, and reports
// what appendExpr would fail on. bun embeds appender errors into the SQL
// text instead of returning them, so they are caught up front.
func check(sel *ast.Select) error {
	if sel == nil {
		return errors.New("bunstore: missing select")
	}
	if sel.From.Table == "" {
		return errors.New("bunstore: select has no table")
	}
	for _, e := range sel.Exprs() {
		if err := checkExpr(e); err != nil {
			return err
		}
	}
	return nil
}

func checkExpr(e ast.Expr) error {
	if e == nil {
		return errors.New("bunstore: missing expression")
	}
	var err error
	ast.Inspect(e, func(n ast.Expr) bool {
		if err != nil {
			return false
		}
		switch n := n.(type) {
		case *ast.EntityRef:
			err = fmt.Errorf("bunstore: entity %s must be expanded into its fields", n.Alias)
		case *ast.Case:
			for _, w := range n.Whens {
				if w.Cond == nil || w.Then == nil {
					err = fmt.Errorf("bunstore: incomplete case %s", n)
				}
			}
		case *ast.SubQuery:
			if n.Err != nil {
				err = n.Err
			} else {
				err = check(n.Query)
			}
			return false
		}
		return true
	})
	return err
}

func ident(name string) bun.Ident { return bun.Ident(name) }
