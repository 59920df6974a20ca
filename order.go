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

import "github.com/tomoncle/querydsl/ast"

// OrderSpecifier is one ordering key. Ties keep storage order unless more
// keys are given.
type OrderSpecifier struct {
	expr  ast.Expr
	desc  bool
	nulls ast.NullsOrder
}

// NullsFirst places null values before all others.
func (o OrderSpecifier) NullsFirst() OrderSpecifier {
	o.nulls = ast.NullsFirst
	return o
}

// NullsLast places null values after all others.
func (o OrderSpecifier) NullsLast() OrderSpecifier {
	o.nulls = ast.NullsLast
	return o
}

func (o OrderSpecifier) node() *ast.Order {
	return &ast.Order{Expr: ast.Unalias(o.expr), Desc: o.desc, Nulls: o.nulls}
}

func (o OrderSpecifier) String() string {
	if o.expr == nil {
		return "<nil>"
	}
	return o.node().String()
}
