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

import "fmt"

// MemberDto is the username and age of a member.
type MemberDto struct {
	Username string `json:"username"`
	Age      int    `json:"age"`
}

func NewMemberDto(username string, age int) MemberDto {
	return MemberDto{Username: username, Age: age}
}

func (d *MemberDto) SetUsername(username string) { d.Username = username }
func (d *MemberDto) SetAge(age int)              { d.Age = age }

// UserDto names the username "name", so binding it by field name needs an
// alias.
type UserDto struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// MemberTeamDto is a member flattened with its team. The team columns are
// nil for members without a team.
type MemberTeamDto struct {
	MemberID int64   `json:"memberId"`
	Username string  `json:"username"`
	Age      int     `json:"age"`
	TeamID   *int64  `json:"teamId"`
	TeamName *string `json:"teamName"`
}

func (d MemberTeamDto) String() string {
	team := "-"
	if d.TeamName != nil {
		team = *d.TeamName
	}
	return fmt.Sprintf("MemberTeamDto(memberId=%d, username=%s, age=%d, team=%s)", d.MemberID, d.Username, d.Age, team)
}

// MemberSearchCondition filters member searches. Zero fields do not
// constrain the search.
type MemberSearchCondition struct {
	Username string `json:"username" mapstructure:"username"`
	TeamName string `json:"teamName" mapstructure:"team-name"`
	AgeGoe   *int   `json:"ageGoe" mapstructure:"age-goe"`
	AgeLoe   *int   `json:"ageLoe" mapstructure:"age-loe"`
}
