// Package memstore is an in-process implementation of domain.Store for
// single-instance deployments and tests. Keyed locks stand in for row locks
// and every write inside a transaction records an undo step, so a failed
// transaction leaves no trace.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/uvgride/grouprides/internal/domain"
)

const defaultLockTimeout = 2 * time.Second

type pair struct{ a, b int64 }

// Store holds all records in memory
type Store struct {
	mu          sync.RWMutex
	locks       *lockTable
	lockTimeout time.Duration

	groups    map[int64]*domain.Group
	members   map[int64]*domain.Membership
	memberIdx map[pair]int64
	ratings   map[int64]*domain.Rating
	ratingIdx map[pair]int64
	users     map[int64]string
	vehicles  map[int64]int

	// pending holds groups created by transactions that have not finished.
	// Only the creating transaction sees them.
	pending map[int64]struct{}

	nextGroupID  int64
	nextMemberID int64
	nextRatingID int64
}

// Option configures a Store
type Option func(*Store)

// WithLockTimeout bounds how long a transaction waits for a lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		locks:       newLockTable(),
		lockTimeout: defaultLockTimeout,
		groups:      make(map[int64]*domain.Group),
		members:     make(map[int64]*domain.Membership),
		memberIdx:   make(map[pair]int64),
		ratings:     make(map[int64]*domain.Rating),
		ratingIdx:   make(map[pair]int64),
		users:       make(map[int64]string),
		vehicles:    make(map[int64]int),
		pending:     make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddUser registers a display name for a user.
func (s *Store) AddUser(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = name
}

// AddVehicle records one vehicle owned by userID.
func (s *Store) AddVehicle(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[userID]++
}

// HasVehicle reports whether userID owns at least one vehicle.
func (s *Store) HasVehicle(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vehicles[userID] > 0, nil
}

// InTx runs fn in a transaction. Locks taken by fn are released when it returns.
func (s *Store) InTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	t := &tx{s: s, held: make(map[string]struct{}), created: make(map[int64]struct{})}
	defer t.releaseAll()
	defer func() {
		if p := recover(); p != nil {
			t.rollback()
			panic(p)
		}
	}()

	if err := fn(t); err != nil {
		t.rollback()
		return err
	}
	t.commit()
	return nil
}

// GetGroup retrieves a group by its ID
func (s *Store) GetGroup(_ context.Context, id int64) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.pending[id]; ok {
		return nil, nil
	}
	return s.groupCopy(id), nil
}

// ListGroups returns groups matching filter, most recently created first.
func (s *Store) ListGroups(_ context.Context, filter domain.ListFilter, limit, offset int) ([]domain.GroupView, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(filter.Query))
	matched := make([]*domain.Group, 0)
	for _, g := range s.groups {
		if _, ok := s.pending[g.ID]; ok {
			continue
		}
		if filter.Status != "" && g.Status != filter.Status {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(g.Destination.Name), q) &&
			!strings.Contains(strings.ToLower(s.users[g.DriverID]), q) {
			continue
		}
		matched = append(matched, g)
	}
	slices.SortFunc(matched, func(a, b *domain.Group) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	total := len(matched)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	views := make([]domain.GroupView, 0, end-offset)
	for _, g := range matched[offset:end] {
		views = append(views, domain.NewGroupView(*s.groupCopy(g.ID), s.countApproved(g.ID)))
	}
	return views, total, nil
}

// ListMembers returns every membership of a group, driver first.
func (s *Store) ListMembers(_ context.Context, groupID int64) ([]*domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]*domain.Membership, 0)
	if _, ok := s.pending[groupID]; ok {
		return members, nil
	}
	for _, m := range s.members {
		if m.GroupID == groupID {
			members = append(members, s.memberCopy(m))
		}
	}
	slices.SortFunc(members, func(a, b *domain.Membership) int {
		if a.Role != b.Role {
			if a.Role == domain.RoleDriver {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return members, nil
}

// ListRatings returns a driver's ratings, most recently updated first.
func (s *Store) ListRatings(_ context.Context, driverID int64, limit, offset int) ([]*domain.Rating, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Rating, 0)
	for _, r := range s.ratings {
		if r.DriverID == driverID {
			cp := *r
			cp.PassengerName = s.users[r.PassengerID]
			matched = append(matched, &cp)
		}
	}
	slices.SortFunc(matched, func(a, b *domain.Rating) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	total := len(matched)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

// RatingSummary computes the driver's aggregate from the stored ratings.
func (s *Store) RatingSummary(_ context.Context, driverID int64) (domain.RatingSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary(driverID), nil
}

func (s *Store) groupCopy(id int64) *domain.Group {
	g, ok := s.groups[id]
	if !ok {
		return nil
	}
	cp := *g
	cp.DriverName = s.users[g.DriverID]
	return &cp
}

func (s *Store) memberCopy(m *domain.Membership) *domain.Membership {
	cp := *m
	cp.UserName = s.users[m.UserID]
	return &cp
}

func (s *Store) countApproved(groupID int64) int {
	n := 0
	for _, m := range s.members {
		if m.GroupID == groupID && m.Role == domain.RolePassenger && m.Status == domain.MemberApproved {
			n++
		}
	}
	return n
}

func (s *Store) summary(driverID int64) domain.RatingSummary {
	count, sum := 0, 0
	for _, r := range s.ratings {
		if r.DriverID == driverID {
			count++
			sum += r.Score
		}
	}
	if count == 0 {
		return domain.NewRatingSummary(driverID, 0, 0)
	}
	return domain.NewRatingSummary(driverID, count, float64(sum)/float64(count))
}
