// Package repository provides a generic repository built on bun for CRUD,
// upsert and transactions, plus typed predicate queries and pagination run
// through a querydsl engine on the same connection.
package repository
