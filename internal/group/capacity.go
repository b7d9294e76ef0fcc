package group

import (
	"context"
	"iter"
	"time"

	"github.com/uvgride/grouprides/internal/domain"
)

const listBatchSize = 50

// Coordinator owns joining and leaving. Seat availability is always counted
// from approved memberships under the group row lock; there is no separate
// counter to drift.
type Coordinator struct {
	store    domain.Store
	registry *Registry
	now      func() time.Time
}

// NewCoordinator creates a new capacity coordinator
func NewCoordinator(store domain.Store, registry *Registry) *Coordinator {
	return &Coordinator{store: store, registry: registry, now: time.Now}
}

// JoinOptions carries optional join parameters
type JoinOptions struct {
	AgreedAmount *float64
}

// Join approves userID as a passenger of groupID.
//
// The user key is locked before the group row so that concurrent joins by the
// same user against different groups serialise on the active-group check.
func (c *Coordinator) Join(ctx context.Context, groupID, userID int64, opts JoinOptions) (*domain.Membership, error) {
	var joined *domain.Membership

	err := c.store.InTx(ctx, func(tx domain.Tx) error {
		if err := tx.LockUser(ctx, userID); err != nil {
			return err
		}
		g, err := tx.LockGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if g == nil {
			return domain.ErrGroupNotFound
		}
		if g.DriverID == userID {
			return domain.ErrSelfJoin
		}
		if g.Status != domain.StatusOpen {
			return domain.ErrGroupNotOpen
		}

		existing, err := tx.GetMembership(ctx, groupID, userID)
		if err != nil {
			return err
		}
		if existing.Approved() {
			return domain.ErrAlreadyMember
		}

		approved, err := tx.CountApproved(ctx, groupID)
		if err != nil {
			return err
		}
		if approved >= g.TotalSeats {
			return domain.ErrCapacityExceeded
		}

		if err := c.registry.CheckJoin(ctx, tx, userID, groupID); err != nil {
			return err
		}

		now := c.now().UTC()
		if existing != nil {
			existing.Status = domain.MemberApproved
			existing.JoinedAt = now
			if existing.ApprovedAt == nil {
				existing.ApprovedAt = &now
			}
			if opts.AgreedAmount != nil {
				existing.AgreedAmount = opts.AgreedAmount
			}
			if err := tx.UpdateMembership(ctx, existing); err != nil {
				return err
			}
			joined = existing
			return nil
		}

		m := &domain.Membership{
			GroupID:      groupID,
			UserID:       userID,
			Role:         domain.RolePassenger,
			Status:       domain.MemberApproved,
			JoinedAt:     now,
			ApprovedAt:   &now,
			AgreedAmount: opts.AgreedAmount,
		}
		if err := tx.InsertMembership(ctx, m); err != nil {
			return err
		}
		joined = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// Leave withdraws userID from groupID. Leaving is allowed whatever the group
// status; closing a group only stops new joins.
func (c *Coordinator) Leave(ctx context.Context, groupID, userID int64) (*domain.Membership, error) {
	var left *domain.Membership

	err := c.store.InTx(ctx, func(tx domain.Tx) error {
		g, err := tx.LockGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if g == nil {
			return domain.ErrGroupNotFound
		}

		m, err := tx.GetMembership(ctx, groupID, userID)
		if err != nil {
			return err
		}
		if !m.Approved() {
			return domain.ErrNotAMember
		}
		if m.Role == domain.RoleDriver {
			return domain.ErrDriverCannotLeave
		}

		m.Status = domain.MemberWithdrawn
		if err := tx.UpdateMembership(ctx, m); err != nil {
			return err
		}
		left = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return left, nil
}

// Page returns one page of groups matching filter with live seat counts.
func (c *Coordinator) Page(ctx context.Context, filter domain.ListFilter, limit, offset int) ([]domain.GroupView, int, error) {
	return c.store.ListGroups(ctx, filter, limit, offset)
}

// Groups lazily yields every group matching filter, newest first, fetching
// in batches. Each range over the sequence starts a fresh read. Iteration
// stops after the first error.
func (c *Coordinator) Groups(ctx context.Context, filter domain.ListFilter) iter.Seq2[domain.GroupView, error] {
	return func(yield func(domain.GroupView, error) bool) {
		offset := 0
		for {
			batch, total, err := c.store.ListGroups(ctx, filter, listBatchSize, offset)
			if err != nil {
				yield(domain.GroupView{}, err)
				return
			}
			for _, v := range batch {
				if !yield(v, nil) {
					return
				}
			}
			offset += len(batch)
			if len(batch) < listBatchSize || offset >= total {
				return
			}
		}
	}
}
