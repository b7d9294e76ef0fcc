package group

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/uvgride/grouprides/internal/domain"
	"github.com/uvgride/grouprides/internal/vehicle"
	"github.com/uvgride/grouprides/pkg/sanitize"
)

// transitions lists the allowed status changes. Anything absent is rejected.
var transitions = map[domain.GroupStatus][]domain.GroupStatus{
	domain.StatusOpen:   {domain.StatusClosed, domain.StatusCancelled},
	domain.StatusClosed: {domain.StatusCancelled, domain.StatusFinalized},
}

// CanTransition reports whether a group may move from one status to another.
func CanTransition(from, to domain.GroupStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Lifecycle owns group creation and the status state machine
type Lifecycle struct {
	store    domain.Store
	registry *Registry
	vehicles vehicle.Registry
	now      func() time.Time
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle(store domain.Store, registry *Registry, vehicles vehicle.Registry) *Lifecycle {
	if vehicles == nil {
		vehicles = vehicle.AllowAll{}
	}
	return &Lifecycle{store: store, registry: registry, vehicles: vehicles, now: time.Now}
}

// CreateParams describes a new group
type CreateParams struct {
	DriverID    int64
	Destination domain.Destination
	TotalSeats  int
	Price       *float64
	DepartureAt *time.Time
	Notes       string
	TripID      *int64
}

func (p *CreateParams) validate() error {
	if p.DriverID <= 0 {
		return domain.Invalid("driver_id is required")
	}
	if p.TotalSeats < 1 {
		return domain.Invalid("total_seats must be a positive integer")
	}
	p.Destination.Name = sanitize.Text(p.Destination.Name)
	if p.Destination.Name == "" {
		return domain.Invalid("destination name is required")
	}
	if lat := p.Destination.Lat; lat != nil && (!finite(*lat) || *lat < -90 || *lat > 90) {
		return domain.Invalid("destination latitude must be between -90 and 90")
	}
	if lon := p.Destination.Lon; lon != nil && (!finite(*lon) || *lon < -180 || *lon > 180) {
		return domain.Invalid("destination longitude must be between -180 and 180")
	}
	if p.Price != nil && (!finite(*p.Price) || *p.Price < 0) {
		return domain.Invalid("price must be a non-negative number")
	}
	if p.DepartureAt != nil && p.DepartureAt.IsZero() {
		return domain.Invalid("departure time is invalid")
	}
	if p.TripID != nil && *p.TripID <= 0 {
		return domain.Invalid("trip_id must be positive")
	}
	p.Notes = sanitize.Text(p.Notes)
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Create opens a new group and registers its driver as the first approved
// member, both in one transaction.
func (l *Lifecycle) Create(ctx context.Context, p CreateParams) (*domain.Group, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	ok, err := l.vehicles.HasVehicle(ctx, p.DriverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNoVehicle
	}

	var created *domain.Group
	err = l.store.InTx(ctx, func(tx domain.Tx) error {
		if err := tx.LockUser(ctx, p.DriverID); err != nil {
			return err
		}
		if err := l.registry.CheckCreate(ctx, tx, p.DriverID); err != nil {
			return err
		}

		now := l.now().UTC()
		g := &domain.Group{
			DriverID:    p.DriverID,
			Destination: p.Destination,
			TotalSeats:  p.TotalSeats,
			Price:       p.Price,
			DepartureAt: p.DepartureAt,
			Notes:       p.Notes,
			TripID:      p.TripID,
			Status:      domain.StatusOpen,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.CreateGroup(ctx, g); err != nil {
			return err
		}

		driver := &domain.Membership{
			GroupID:    g.ID,
			UserID:     p.DriverID,
			Role:       domain.RoleDriver,
			Status:     domain.MemberApproved,
			JoinedAt:   now,
			ApprovedAt: &now,
		}
		if err := tx.InsertMembership(ctx, driver); err != nil {
			return err
		}

		created = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Transition moves groupID to target on behalf of actorID, who must be the
// group's driver. The group row stays locked for the check and the write, and
// the returned view carries the seat count read under that lock.
func (l *Lifecycle) Transition(ctx context.Context, groupID, actorID int64, target domain.GroupStatus) (*domain.GroupView, error) {
	target = domain.GroupStatus(strings.ToLower(string(target)))
	if !target.Valid() {
		return nil, domain.Rejection(domain.ErrInvalidTransition, "unknown status "+string(target))
	}

	var updated *domain.GroupView
	err := l.store.InTx(ctx, func(tx domain.Tx) error {
		g, err := tx.LockGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if g == nil {
			return domain.ErrGroupNotFound
		}
		if g.DriverID != actorID {
			return domain.ErrNotAuthorized
		}
		if !CanTransition(g.Status, target) {
			return domain.Rejection(domain.ErrInvalidTransition,
				"cannot move group from "+string(g.Status)+" to "+string(target))
		}

		now := l.now().UTC()
		if err := tx.UpdateGroupStatus(ctx, groupID, target, now); err != nil {
			return err
		}
		approved, err := tx.CountApproved(ctx, groupID)
		if err != nil {
			return err
		}
		g.Status = target
		g.UpdatedAt = now
		view := domain.NewGroupView(*g, approved)
		updated = &view
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
