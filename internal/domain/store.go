package domain

import (
	"context"
	"time"
)

// Store is the persistence boundary for groups, memberships and ratings.
//
// Every mutation runs inside InTx. The transaction commits when fn returns
// nil and rolls back otherwise, so no partial write is ever observable.
// Lookups of a single record return (nil, nil) when nothing matches.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetGroup(ctx context.Context, id int64) (*Group, error)
	ListGroups(ctx context.Context, filter ListFilter, limit, offset int) ([]GroupView, int, error)
	ListMembers(ctx context.Context, groupID int64) ([]*Membership, error)
	ListRatings(ctx context.Context, driverID int64, limit, offset int) ([]*Rating, int, error)
	RatingSummary(ctx context.Context, driverID int64) (RatingSummary, error)
}

// Tx is the set of operations available inside one transaction.
//
// Locks are held until the transaction ends. Callers acquire them in a fixed
// order: user key, then driver rating key, then group row. A lock that cannot
// be acquired within the store's timeout fails with ErrBusy.
type Tx interface {
	LockUser(ctx context.Context, userID int64) error
	LockDriverRatings(ctx context.Context, driverID int64) error
	LockGroup(ctx context.Context, groupID int64) (*Group, error)

	GetGroup(ctx context.Context, groupID int64) (*Group, error)
	CreateGroup(ctx context.Context, g *Group) error
	UpdateGroupStatus(ctx context.Context, groupID int64, status GroupStatus, at time.Time) error

	GetMembership(ctx context.Context, groupID, userID int64) (*Membership, error)
	InsertMembership(ctx context.Context, m *Membership) error
	UpdateMembership(ctx context.Context, m *Membership) error
	// CountApproved counts approved passenger seats of a group.
	CountApproved(ctx context.Context, groupID int64) (int, error)
	// FindActiveMembership returns an approved membership of userID, in any
	// role, whose group is open or closed, ignoring excludeGroupID.
	FindActiveMembership(ctx context.Context, userID, excludeGroupID int64) (*Membership, error)

	GetRating(ctx context.Context, driverID, passengerID int64) (*Rating, error)
	InsertRating(ctx context.Context, r *Rating) error
	UpdateRating(ctx context.Context, r *Rating) error
	RatingSummary(ctx context.Context, driverID int64) (RatingSummary, error)
}
