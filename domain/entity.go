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
	"fmt"

	"github.com/uptrace/bun"

	"github.com/tomoncle/querydsl"
	"github.com/tomoncle/querydsl/schema"
)

// Team groups members.
type Team struct {
	bun.BaseModel `bun:"table:team,alias:t"`

	ID      int64                    `bun:"team_id,pk,autoincrement" json:"id"`
	Name    string                   `bun:"name,notnull" json:"name"`
	Members querydsl.RefList[Member] `bun:"-" querydsl:"mappedBy:team" json:"members"`
}

// NewTeam creates an unsaved team.
func NewTeam(name string) *Team {
	return &Team{Name: name}
}

func (t *Team) String() string {
	return fmt.Sprintf("Team(id=%d, name=%s)", t.ID, t.Name)
}

// Member belongs to at most one team. An empty username is stored as null.
type Member struct {
	bun.BaseModel `bun:"table:member,alias:m"`

	ID       int64              `bun:"member_id,pk,autoincrement" json:"id"`
	Username string             `bun:"username,nullzero" json:"username"`
	Age      int                `bun:"age,notnull" json:"age"`
	TeamID   *int64             `bun:"team_id" json:"teamId"`
	Team     querydsl.Ref[Team] `bun:"-" querydsl:"join:team_id" json:"team"`
}

// NewMember creates an unsaved member; team may be nil. A non-nil team must
// already be saved so its identifier can be referenced.
func NewMember(username string, age int, team *Team) *Member {
	m := &Member{Username: username, Age: age}
	if team != nil {
		m.ChangeTeam(team)
	}
	return m
}

// ChangeTeam moves the member to team, keeping the join column and the
// resolved reference in step. When the team's member list is resolved the
// member is appended to it.
func (m *Member) ChangeTeam(team *Team) {
	id := team.ID
	m.TeamID = &id
	m.Team.Set(team)
	if team.Members.Resolved() {
		members, _ := team.Members.Get()
		team.Members.Set(append(members, m))
	}
}

func (m *Member) String() string {
	return fmt.Sprintf("Member(id=%d, username=%s, age=%d)", m.ID, m.Username, m.Age)
}

// NewRegistry registers Team and Member.
func NewRegistry() *schema.Registry {
	return schema.NewRegistry().MustRegister((*Team)(nil), (*Member)(nil))
}
