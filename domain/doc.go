// Package domain is the Member/Team model used to exercise querydsl: the
// entities, their Q-types, the DTOs projections bind into and a member
// repository with search and paging queries.
package domain
