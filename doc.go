// Package querydsl builds typed, immutable query descriptors over entities
// registered in a schema.Registry and executes them through a Storage.
//
// Field handles are generated per entity alias (see EntityPath and
// PathBuilder), so predicates and projections are checked by the compiler
// instead of being written as column strings:
//
//	m, _ := domain.NewQMember(reg, "m")
//	q := querydsl.SelectFrom(m).
//		Where(m.Age.Goe(20), m.Username.StartsWith("member")).
//		OrderBy(m.Age.Desc(), m.Username.Asc().NullsLast())
//	members, err := q.Fetch(ctx, engine)
//
// Descriptors hold no connection. An Engine is passed explicitly to every
// execution and carries the storage for one unit of work (a DB or a Tx).
//
// Relations are never loaded implicitly: a Ref or RefList is resolved only
// by a fetch join or by LoadRef and LoadRefList.
package querydsl
