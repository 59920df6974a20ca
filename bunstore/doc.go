// Package bunstore executes querydsl statements through uptrace/bun.
//
// Statements are compiled into bun SelectQuery, UpdateQuery and DeleteQuery
// values whose expressions render through schema.QueryAppender, so
// identifiers and literals are quoted by the connected dialect. SQLite,
// PostgreSQL and MySQL are supported; dialect differences (string
// concatenation, text casts, null ordering) are handled here and nowhere
// else.
package bunstore
