// Package ast defines the untyped expression and statement trees produced by
// the typed query builder and consumed by storage backends.
//
// The node set is sealed: only types in this package satisfy Expr. Every node
// renders a JPQL-like text through String, used for diagnostics and logs.
package ast
