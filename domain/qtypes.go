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

package domain

import (
	"github.com/tomoncle/querydsl"
	"github.com/tomoncle/querydsl/schema"
)

// QMember holds the typed field handles of Member under one alias.
type QMember struct {
	querydsl.EntityPath[Member]
	ID       querydsl.NumberExpr[int64]
	Username querydsl.StringExpr
	Age      querydsl.NumberExpr[int]
	TeamID   querydsl.NumberExpr[int64]
	Team     querydsl.Relation[Team]
}

// NewQMember binds Member to alias.
func NewQMember(reg *schema.Registry, alias string) (*QMember, error) {
	b := querydsl.NewPathBuilder[Member](reg, alias)
	q := &QMember{
		EntityPath: b.Path(),
		ID:         querydsl.NumberPath[int64](b, "id"),
		Username:   querydsl.StringPath(b, "username"),
		Age:        querydsl.NumberPath[int](b, "age"),
		TeamID:     querydsl.NumberPath[int64](b, "teamId"),
		Team:       querydsl.RelationOf[Team](b, "team"),
	}
	if err := b.Err(); err != nil {
		return nil, err
	}
	return q, nil
}

// QTeam holds the typed field handles of Team under one alias.
type QTeam struct {
	querydsl.EntityPath[Team]
	ID      querydsl.NumberExpr[int64]
	Name    querydsl.StringExpr
	Members querydsl.Relation[Member]
}

// NewQTeam binds Team to alias.
func NewQTeam(reg *schema.Registry, alias string) (*QTeam, error) {
	b := querydsl.NewPathBuilder[Team](reg, alias)
	q := &QTeam{
		EntityPath: b.Path(),
		ID:         querydsl.NumberPath[int64](b, "id"),
		Name:       querydsl.StringPath(b, "name"),
		Members:    querydsl.RelationOf[Member](b, "members"),
	}
	if err := b.Err(); err != nil {
		return nil, err
	}
	return q, nil
}
