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

// Expr is any value or boolean expression.
type Expr interface {
	String() string
	exprNode()
}

// BinaryOp is a two-operand operator.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpNe
	OpGt
	OpGoe
	OpLt
	OpLoe
	OpLike
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpConcat
)

var binaryOpText = [...]string{
	OpEq:     "=",
	OpNe:     "<>",
	OpGt:     ">",
	OpGoe:    ">=",
	OpLt:     "<",
	OpLoe:    "<=",
	OpLike:   "like",
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpConcat: "||",
}

func (op BinaryOp) String() string { return binaryOpText[op] }

// Arithmetic reports whether the operator produces a value rather than a boolean.
func (op BinaryOp) Arithmetic() bool { return op >= OpAdd }

// LogicalOp joins two boolean expressions.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
)

func (op LogicalOp) String() string {
	if op == OpOr {
		return "or"
	}
	return "and"
}

// AggFunc names an aggregate function.
type AggFunc int

const (
	AggCount AggFunc = iota
	AggSum
	AggAvg
	AggMax
	AggMin
)

var aggText = [...]string{AggCount: "count", AggSum: "sum", AggAvg: "avg", AggMax: "max", AggMin: "min"}

func (f AggFunc) String() string { return aggText[f] }

// Field references a mapped column through an entity alias.
type Field struct {
	Alias  string
	Entity string
	Name   string
	Column string
}

// EntityRef stands for a whole entity row, as in "select m".
type EntityRef struct {
	Alias  string
	Entity string
}

// Constant is a literal bound as a query argument.
type Constant struct {
	Value any
}

// Binary is a comparison or arithmetic expression.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	// Escape is the LIKE escape character, zero when the pattern has none.
	Escape rune
}

// Logical is a conjunction or disjunction.
type Logical struct {
	Op    LogicalOp
	Left  Expr
	Right Expr
}

// Not negates a boolean expression.
type Not struct {
	Operand Expr
}

// IsNull tests for null, or for not null when Negated.
type IsNull struct {
	Operand Expr
	Negated bool
}

// Between is an inclusive range test.
type Between struct {
	Operand Expr
	Low     Expr
	High    Expr
}

// In is set membership over literal values or a subquery.
type In struct {
	Operand Expr
	Values  []Expr
	Query   *SubQuery
	Negated bool
}

// Func is a named SQL function call.
type Func struct {
	Name string
	Args []Expr
}

// CastText converts a value to its textual form.
type CastText struct {
	Operand Expr
}

// Aggregate is an aggregate function. A nil Operand means count(*).
type Aggregate struct {
	Func     AggFunc
	Operand  Expr
	Distinct bool
}

// When is one branch of a Case.
type When struct {
	Cond Expr
	Then Expr
}

// Case is a searched case when Operand is nil, otherwise a simple case whose
// When.Cond values are compared with Operand.
type Case struct {
	Operand Expr
	Whens   []When
	Else    Expr
}

// SubQuery embeds a nested select. Err carries a construction error of the
// nested query so the enclosing query can report it.
type SubQuery struct {
	Query *Select
	Err   error
}

// Alias names an output column.
type Alias struct {
	Operand Expr
	Name    string
}

func (*Field) exprNode()     {}
func (*EntityRef) exprNode() {}
func (*Constant) exprNode()  {}
func (*Binary) exprNode()    {}
func (*Logical) exprNode()   {}
func (*Not) exprNode()       {}
func (*IsNull) exprNode()    {}
func (*Between) exprNode()   {}
func (*In) exprNode()        {}
func (*Func) exprNode()      {}
func (*CastText) exprNode()  {}
func (*Aggregate) exprNode() {}
func (*Case) exprNode()      {}
func (*SubQuery) exprNode()  {}
func (*Alias) exprNode()     {}

// Unalias strips Alias wrappers.
func Unalias(e Expr) Expr {
	for {
		a, ok := e.(*Alias)
		if !ok {
			return e
		}
		e = a.Operand
	}
}

// OutputName is the name a projection column binds to: the alias when one is
// set, the field name for a plain field, the text form otherwise.
func OutputName(e Expr) string {
	switch n := e.(type) {
	case *Alias:
		return n.Name
	case *Field:
		return n.Name
	case *EntityRef:
		return n.Alias
	default:
		return e.String()
	}
}
