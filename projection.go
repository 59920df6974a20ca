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
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/tomoncle/querydsl/ast"
)

// Projection turns the values of one result row into R. Entity columns
// arrive as hydrated entity pointers, every other column as its storage value.
type Projection[R any] interface {
	columns() []ast.Expr
	bind(vals []any) (R, error)
	check() error
}

type exprProjection[T any] struct {
	node ast.Expr
}

func (p exprProjection[T]) columns() []ast.Expr { return []ast.Expr{p.node} }
func (p exprProjection[T]) check() error        { return nil }

func (p exprProjection[T]) bind(vals []any) (T, error) { return convertValue[T](vals[0]) }

// Tuple is one row of a multi-expression projection.
type Tuple struct {
	keys   []ast.Expr
	values []any
}

type tupleProjection []Expression

func (p tupleProjection) columns() []ast.Expr {
	out := make([]ast.Expr, len(p))
	for i, e := range p {
		out[i] = e.Node()
	}
	return out
}

func (p tupleProjection) check() error {
	if len(p) == 0 {
		return invalid("select", "empty tuple")
	}
	return nil
}

func (p tupleProjection) bind(vals []any) (Tuple, error) {
	return Tuple{keys: p.columns(), values: vals}, nil
}

// Len is the number of values in the tuple.
func (t Tuple) Len() int { return len(t.values) }

// At returns the i-th value as delivered by storage.
func (t Tuple) At(i int) any { return t.values[i] }

// Get returns the value of e, matched by identity or by its rendered form.
func (t Tuple) Get(e Expression) (any, bool) {
	node := e.Node()
	for i, k := range t.keys {
		if k == node {
			return t.values[i], true
		}
	}
	text := node.String()
	for i, k := range t.keys {
		if k.String() == text || ast.OutputName(k) == text {
			return t.values[i], true
		}
	}
	return nil, false
}

// TupleValue reads e from t converted to T.
func TupleValue[T any](t Tuple, e Expr[T]) (T, error) {
	v, ok := t.Get(e)
	if !ok {
		var zero T
		return zero, fmt.Errorf("querydsl: %s is not part of the tuple", e.Node())
	}
	return convertValue[T](v)
}

func (t Tuple) String() string {
	parts := make([]string, len(t.values))
	for i, v := range t.values {
		parts[i] = fmt.Sprintf("%s=%v", ast.OutputName(t.keys[i]), v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MarshalJSON encodes the tuple as an array of its values.
func (t Tuple) MarshalJSON() ([]byte, error) { return json.Marshal(t.values) }

func outputNames(exprs []Expression) ([]ast.Expr, []string) {
	nodes := make([]ast.Expr, len(exprs))
	names := make([]string, len(exprs))
	for i, e := range exprs {
		nodes[i] = e.Node()
		names[i] = ast.OutputName(nodes[i])
	}
	return nodes, names
}

type fieldsProjection[T any] struct {
	nodes []ast.Expr
	names []string
}

// Fields binds each value to the field of T whose json name (or Go name when
// untagged) equals the expression's output name. Names that match nothing
// are dropped, leaving the field at its zero value; alias with As when the
// names differ.
func Fields[T any](exprs ...Expression) Projection[T] {
	nodes, names := outputNames(exprs)
	return fieldsProjection[T]{nodes: nodes, names: names}
}

func (p fieldsProjection[T]) columns() []ast.Expr { return p.nodes }

func (p fieldsProjection[T]) check() error {
	t := typeOf[T]()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return invalid("fields", "%s is not a struct", typeOf[T]())
	}
	return nil
}

func (p fieldsProjection[T]) bind(vals []any) (T, error) {
	var out T
	in := make(map[string]any, len(vals))
	for i, v := range vals {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		in[p.names[i]] = v
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		MatchName:        func(key, field string) bool { return key == field },
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	return out, dec.Decode(in)
}

type beanProjection[T any] struct {
	nodes []ast.Expr
	names []string
}

// Bean creates a zero T and calls Set<Name>(value) on it for each
// expression, Name being the output name with its first letter upper-cased.
// Missing setters are skipped.
func Bean[T any](exprs ...Expression) Projection[T] {
	nodes, names := outputNames(exprs)
	return beanProjection[T]{nodes: nodes, names: names}
}

func (p beanProjection[T]) columns() []ast.Expr { return p.nodes }
func (p beanProjection[T]) check() error        { return nil }

func (p beanProjection[T]) bind(vals []any) (T, error) {
	var out T
	target := reflect.ValueOf(&out)
	for i, v := range vals {
		m := target.MethodByName("Set" + upperFirst(p.names[i]))
		if !m.IsValid() || m.Type().NumIn() != 1 {
			continue
		}
		arg := reflect.New(m.Type().In(0)).Elem()
		if err := assign(arg, v); err != nil {
			return out, fmt.Errorf("querydsl: bean %s.%s: %w", typeOf[T](), p.names[i], err)
		}
		m.Call([]reflect.Value{arg})
	}
	return out, nil
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

type constructorProjection[T any] struct {
	fn    reflect.Value
	nodes []ast.Expr
	err   error
}

// Constructor binds row values positionally to the parameters of fn, which
// must be a func returning T or (T, error). Parameter types are checked
// against the expression types when the projection is built. Any numeric
// expression may feed any numeric parameter; a row value that the parameter
// cannot hold exactly, such as 2.5 for an int, fails the fetch.
func Constructor[T any](fn any, exprs ...Expression) Projection[T] {
	p := constructorProjection[T]{fn: reflect.ValueOf(fn)}
	p.nodes, _ = outputNames(exprs)
	p.err = checkConstructor(p.fn, typeOf[T](), exprs)
	return p
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func checkConstructor(fn reflect.Value, want reflect.Type, exprs []Expression) error {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return invalid("constructor", "%v is not a function", fn)
	}
	ft := fn.Type()
	if ft.IsVariadic() || ft.NumIn() != len(exprs) {
		return invalid("constructor", "%s takes %d arguments, projection has %d", ft, ft.NumIn(), len(exprs))
	}
	switch {
	case ft.NumOut() == 1 && ft.Out(0) == want:
	case ft.NumOut() == 2 && ft.Out(0) == want && ft.Out(1) == errorType:
	default:
		return invalid("constructor", "%s does not return %s", ft, want)
	}
	for i, e := range exprs {
		got, param := e.goType(), ft.In(i)
		if got.AssignableTo(param) || (isNumberKind(got.Kind()) && isNumberKind(param.Kind())) {
			continue
		}
		if param.Kind() == reflect.Ptr && got.AssignableTo(param.Elem()) {
			continue
		}
		return invalid("constructor", "argument %d of %s is %s, expression %s is %s", i, ft, param, e.Node(), got)
	}
	return nil
}

func (p constructorProjection[T]) columns() []ast.Expr { return p.nodes }
func (p constructorProjection[T]) check() error        { return p.err }

func (p constructorProjection[T]) bind(vals []any) (T, error) {
	var zero T
	ft := p.fn.Type()
	args := make([]reflect.Value, len(vals))
	for i, v := range vals {
		args[i] = reflect.New(ft.In(i)).Elem()
		if err := assign(args[i], v); err != nil {
			return zero, fmt.Errorf("querydsl: constructor argument %d: %w", i, err)
		}
	}
	out := p.fn.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return zero, out[1].Interface().(error)
	}
	return out[0].Interface().(T), nil
}

type funcProjection[T any] struct {
	nodes []ast.Expr
	fn    func(vals []any) (T, error)
}

func (p funcProjection[T]) columns() []ast.Expr        { return p.nodes }
func (p funcProjection[T]) check() error               { return nil }
func (p funcProjection[T]) bind(vals []any) (T, error) { return p.fn(vals) }

// Construct2 binds two typed expressions to a constructor.
func Construct2[T, A, B any](fn func(A, B) T, a Expr[A], b Expr[B]) Projection[T] {
	return funcProjection[T]{
		nodes: []ast.Expr{a.Node(), b.Node()},
		fn: func(vals []any) (T, error) {
			var zero T
			av, err := convertValue[A](vals[0])
			if err != nil {
				return zero, err
			}
			bv, err := convertValue[B](vals[1])
			if err != nil {
				return zero, err
			}
			return fn(av, bv), nil
		},
	}
}

// Construct3 binds three typed expressions to a constructor.
func Construct3[T, A, B, C any](fn func(A, B, C) T, a Expr[A], b Expr[B], c Expr[C]) Projection[T] {
	return funcProjection[T]{
		nodes: []ast.Expr{a.Node(), b.Node(), c.Node()},
		fn: func(vals []any) (T, error) {
			var zero T
			av, err := convertValue[A](vals[0])
			if err != nil {
				return zero, err
			}
			bv, err := convertValue[B](vals[1])
			if err != nil {
				return zero, err
			}
			cv, err := convertValue[C](vals[2])
			if err != nil {
				return zero, err
			}
			return fn(av, bv, cv), nil
		},
	}
}
