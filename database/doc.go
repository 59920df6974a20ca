// Package database provides connection management, migrations, foreign key
// handling, configuration loading, query logging hooks and health checks
// for the bun connections querydsl runs on.
//
// Tables and foreign keys are derived from the entities registered in a
// schema.Registry, so the models declared for queries are the single source
// of the relational schema.
package database
