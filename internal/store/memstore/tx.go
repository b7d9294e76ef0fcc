package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/uvgride/grouprides/internal/domain"
)

// tx applies writes directly to the store and keeps an undo log.
// Isolation comes from the keyed locks, not from buffering.
type tx struct {
	s       *Store
	held    map[string]struct{}
	order   []string
	undo    []func()
	created map[int64]struct{}
}

func (t *tx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := t.s.locks.acquire(ctx, key, t.s.lockTimeout); err != nil {
		return err
	}
	t.held[key] = struct{}{}
	t.order = append(t.order, key)
	return nil
}

func (t *tx) releaseAll() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.s.locks.release(t.order[i])
	}
	t.order = nil
}

func (t *tx) rollback() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// commit publishes the groups this transaction created.
func (t *tx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id := range t.created {
		delete(t.s.pending, id)
	}
	t.undo = nil
}

// hidden reports whether groupID belongs to another unfinished transaction.
// Callers hold t.s.mu.
func (t *tx) hidden(groupID int64) bool {
	if _, ok := t.s.pending[groupID]; !ok {
		return false
	}
	_, own := t.created[groupID]
	return !own
}

func (t *tx) LockUser(ctx context.Context, userID int64) error {
	return t.lock(ctx, userKey(userID))
}

func (t *tx) LockDriverRatings(ctx context.Context, driverID int64) error {
	return t.lock(ctx, ratingKey(driverID))
}

func (t *tx) LockGroup(ctx context.Context, groupID int64) (*domain.Group, error) {
	if err := t.lock(ctx, groupKey(groupID)); err != nil {
		return nil, err
	}
	return t.GetGroup(ctx, groupID)
}

func (t *tx) GetGroup(_ context.Context, groupID int64) (*domain.Group, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if t.hidden(groupID) {
		return nil, nil
	}
	return t.s.groupCopy(groupID), nil
}

func (t *tx) CreateGroup(_ context.Context, g *domain.Group) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if g.TripID != nil {
		for _, other := range t.s.groups {
			if other.TripID != nil && *other.TripID == *g.TripID {
				return domain.ErrTripAlreadyGrouped
			}
		}
	}

	t.s.nextGroupID++
	g.ID = t.s.nextGroupID
	stored := *g
	stored.DriverName = ""
	t.s.groups[g.ID] = &stored
	t.s.pending[g.ID] = struct{}{}
	t.created[g.ID] = struct{}{}

	id := g.ID
	t.undo = append(t.undo, func() {
		delete(t.s.groups, id)
		delete(t.s.pending, id)
	})
	return nil
}

func (t *tx) UpdateGroupStatus(_ context.Context, groupID int64, status domain.GroupStatus, at time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	g, ok := t.s.groups[groupID]
	if !ok {
		return fmt.Errorf("failed to update group status: group %d missing", groupID)
	}
	prevStatus, prevUpdated := g.Status, g.UpdatedAt
	g.Status, g.UpdatedAt = status, at
	t.undo = append(t.undo, func() { g.Status, g.UpdatedAt = prevStatus, prevUpdated })
	return nil
}

func (t *tx) GetMembership(_ context.Context, groupID, userID int64) (*domain.Membership, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	id, ok := t.s.memberIdx[pair{groupID, userID}]
	if !ok {
		return nil, nil
	}
	return t.s.memberCopy(t.s.members[id]), nil
}

func (t *tx) InsertMembership(_ context.Context, m *domain.Membership) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	key := pair{m.GroupID, m.UserID}
	if _, exists := t.s.memberIdx[key]; exists {
		return fmt.Errorf("failed to add member: user %d already has a row in group %d", m.UserID, m.GroupID)
	}
	t.s.nextMemberID++
	m.ID = t.s.nextMemberID
	stored := *m
	stored.UserName = ""
	t.s.members[m.ID] = &stored
	t.s.memberIdx[key] = m.ID

	id := m.ID
	t.undo = append(t.undo, func() {
		delete(t.s.members, id)
		delete(t.s.memberIdx, key)
	})
	return nil
}

func (t *tx) UpdateMembership(_ context.Context, m *domain.Membership) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	cur, ok := t.s.members[m.ID]
	if !ok {
		return fmt.Errorf("failed to update member: membership %d missing", m.ID)
	}
	prev := *cur
	cur.Status = m.Status
	cur.JoinedAt = m.JoinedAt
	cur.ApprovedAt = m.ApprovedAt
	cur.AgreedAmount = m.AgreedAmount
	t.undo = append(t.undo, func() { *cur = prev })
	return nil
}

func (t *tx) CountApproved(_ context.Context, groupID int64) (int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.countApproved(groupID), nil
}

func (t *tx) FindActiveMembership(_ context.Context, userID, excludeGroupID int64) (*domain.Membership, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	for _, m := range t.s.members {
		if m.UserID != userID || m.GroupID == excludeGroupID || m.Status != domain.MemberApproved {
			continue
		}
		if g, ok := t.s.groups[m.GroupID]; ok && g.Status.Active() {
			return t.s.memberCopy(m), nil
		}
	}
	return nil, nil
}

func (t *tx) GetRating(_ context.Context, driverID, passengerID int64) (*domain.Rating, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	id, ok := t.s.ratingIdx[pair{driverID, passengerID}]
	if !ok {
		return nil, nil
	}
	cp := *t.s.ratings[id]
	return &cp, nil
}

func (t *tx) InsertRating(_ context.Context, r *domain.Rating) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	key := pair{r.DriverID, r.PassengerID}
	if _, exists := t.s.ratingIdx[key]; exists {
		return fmt.Errorf("failed to create rating: passenger %d already rated driver %d", r.PassengerID, r.DriverID)
	}
	t.s.nextRatingID++
	r.ID = t.s.nextRatingID
	stored := *r
	t.s.ratings[r.ID] = &stored
	t.s.ratingIdx[key] = r.ID

	id := r.ID
	t.undo = append(t.undo, func() {
		delete(t.s.ratings, id)
		delete(t.s.ratingIdx, key)
	})
	return nil
}

func (t *tx) UpdateRating(_ context.Context, r *domain.Rating) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	cur, ok := t.s.ratings[r.ID]
	if !ok {
		return fmt.Errorf("failed to update rating: rating %d missing", r.ID)
	}
	prev := *cur
	cur.GroupID = r.GroupID
	cur.Score = r.Score
	cur.Comment = r.Comment
	cur.UpdatedAt = r.UpdatedAt
	t.undo = append(t.undo, func() { *cur = prev })
	return nil
}

func (t *tx) RatingSummary(_ context.Context, driverID int64) (domain.RatingSummary, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.summary(driverID), nil
}
