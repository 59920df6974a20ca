// Package schema keeps the entity registry: table, identifier, scalar fields
// and relationships of every model the query layer is allowed to reference.
// Shapes are read from bun struct tags plus a querydsl tag on relation fields.
package schema
