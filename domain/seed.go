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
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Seed inserts teamA and teamB with member1 to member4, aged 10 to 40. The
// first two members join teamA and the others teamB.
func Seed(ctx context.Context, db bun.IDB) ([]*Team, []*Member, error) {
	teams := []*Team{NewTeam("teamA"), NewTeam("teamB")}
	if _, err := db.NewInsert().Model(&teams).Exec(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to insert teams: %w", err)
	}
	members := []*Member{
		NewMember("member1", 10, teams[0]),
		NewMember("member2", 20, teams[0]),
		NewMember("member3", 30, teams[1]),
		NewMember("member4", 40, teams[1]),
	}
	if _, err := db.NewInsert().Model(&members).Exec(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to insert members: %w", err)
	}
	return teams, members, nil
}
