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
	"strings"

	"github.com/tomoncle/querydsl/ast"
)

const likeEscape = '!'

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// StringExpr is a text expression.
type StringExpr struct {
	base[string]
}

func stringOf(node ast.Expr) StringExpr { return StringExpr{base[string]{node: node}} }

// AsString gives any text expression the StringExpr operations.
func AsString(e Expr[string]) StringExpr { return stringOf(e.Node()) }

// StringFunc calls a named SQL function returning text, such as replace.
// The name is checked when the query is validated.
func StringFunc(name string, args ...Expression) StringExpr {
	nodes := make([]ast.Expr, len(args))
	for i, a := range args {
		nodes[i] = ast.Unalias(a.Node())
	}
	return stringOf(&ast.Func{Name: name, Args: nodes})
}

// As names the expression in a projection.
func (e StringExpr) As(name string) StringExpr {
	return stringOf(&ast.Alias{Operand: ast.Unalias(e.node), Name: name})
}

// Like matches a pattern with % and _ wildcards.
func (e StringExpr) Like(pattern string) *Predicate { return e.compare(ast.OpLike, literal(pattern)) }

// StartsWith, EndsWith and Contains match their argument literally.
func (e StringExpr) StartsWith(prefix string) *Predicate {
	return e.likeEscaped(likeEscaper.Replace(prefix) + "%")
}

func (e StringExpr) EndsWith(suffix string) *Predicate {
	return e.likeEscaped("%" + likeEscaper.Replace(suffix))
}

func (e StringExpr) Contains(sub string) *Predicate {
	return e.likeEscaped("%" + likeEscaper.Replace(sub) + "%")
}

func (e StringExpr) likeEscaped(pattern string) *Predicate {
	return newPredicate(&ast.Binary{Op: ast.OpLike, Left: e.node, Right: literal(pattern), Escape: likeEscape})
}

func (e StringExpr) Gt(v string) *Predicate { return e.compare(ast.OpGt, literal(v)) }
func (e StringExpr) Lt(v string) *Predicate { return e.compare(ast.OpLt, literal(v)) }

// Concat appends text.
func (e StringExpr) Concat(s string) StringExpr {
	return stringOf(&ast.Binary{Op: ast.OpConcat, Left: ast.Unalias(e.node), Right: literal(s)})
}

// ConcatExpr appends another text expression.
func (e StringExpr) ConcatExpr(o Expr[string]) StringExpr {
	return stringOf(&ast.Binary{Op: ast.OpConcat, Left: ast.Unalias(e.node), Right: ast.Unalias(o.Node())})
}

func (e StringExpr) Lower() StringExpr {
	return stringOf(&ast.Func{Name: "lower", Args: []ast.Expr{ast.Unalias(e.node)}})
}

func (e StringExpr) Upper() StringExpr {
	return stringOf(&ast.Func{Name: "upper", Args: []ast.Expr{ast.Unalias(e.node)}})
}

func (e StringExpr) Max() StringExpr {
	return stringOf(&ast.Aggregate{Func: ast.AggMax, Operand: ast.Unalias(e.node)})
}

func (e StringExpr) Min() StringExpr {
	return stringOf(&ast.Aggregate{Func: ast.AggMin, Operand: ast.Unalias(e.node)})
}
