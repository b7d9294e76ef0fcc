package group

import (
	"context"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/uvgride/grouprides/internal/domain"
	"github.com/uvgride/grouprides/internal/observability"
	"github.com/uvgride/grouprides/internal/vehicle"
)

// Notifier is informed after membership and status changes commit
type Notifier interface {
	NotifyMemberJoined(driverID, memberID, groupID int64)
	NotifyMemberLeft(driverID, memberID, groupID int64)
	NotifyStatusChanged(recipients []int64, driverID, groupID int64, status domain.GroupStatus)
}

type nopNotifier struct{}

func (nopNotifier) NotifyMemberJoined(int64, int64, int64)                        {}
func (nopNotifier) NotifyMemberLeft(int64, int64, int64)                          {}
func (nopNotifier) NotifyStatusChanged([]int64, int64, int64, domain.GroupStatus) {}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Service handles group business logic
type Service struct {
	store       domain.Store
	coordinator *Coordinator
	lifecycle   *Lifecycle
	notifier    Notifier
	logger      *zap.Logger
}

// NewService creates a new group service
func NewService(store domain.Store, registry *Registry, vehicles vehicle.Registry, notifier Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		store:       store,
		coordinator: NewCoordinator(store, registry),
		lifecycle:   NewLifecycle(store, registry, vehicles),
		notifier:    notifier,
		logger:      logger,
	}
}

// Create creates a new group with its driver as the first member
func (s *Service) Create(ctx context.Context, p CreateParams) (*domain.Group, error) {
	start := time.Now()
	g, err := s.lifecycle.Create(ctx, p)
	observability.GroupsCreatedTotal.WithLabelValues(observability.Result(err)).Inc()
	s.observe("create", start, err, zap.Int64("driver_id", p.DriverID))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Group created",
		zap.Int64("group_id", g.ID),
		zap.Int64("driver_id", g.DriverID),
		zap.Int("total_seats", g.TotalSeats),
	)
	return g, nil
}

// GetByIDWithMembers retrieves a group, its live seat usage and its members
func (s *Service) GetByIDWithMembers(ctx context.Context, id int64) (*domain.GroupView, []*domain.Membership, error) {
	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if g == nil {
		return nil, nil, domain.ErrGroupNotFound
	}

	members, err := s.store.ListMembers(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	approved := 0
	for _, m := range members {
		if m.Role == domain.RolePassenger && m.Approved() {
			approved++
		}
	}
	view := domain.NewGroupView(*g, approved)
	return &view, members, nil
}

// List retrieves one page of groups
func (s *Service) List(ctx context.Context, filter domain.ListFilter, page, perPage int) ([]domain.GroupView, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}

	offset := (page - 1) * perPage
	return s.coordinator.Page(ctx, filter, perPage, offset)
}

// Groups lazily yields every group matching filter
func (s *Service) Groups(ctx context.Context, filter domain.ListFilter) iter.Seq2[domain.GroupView, error] {
	return s.coordinator.Groups(ctx, filter)
}

// Join adds a passenger to a group
func (s *Service) Join(ctx context.Context, groupID, userID int64, opts JoinOptions) (*domain.Membership, error) {
	start := time.Now()
	m, err := s.coordinator.Join(ctx, groupID, userID, opts)
	observability.JoinsTotal.WithLabelValues(observability.Result(err)).Inc()
	s.observe("join", start, err, zap.Int64("group_id", groupID), zap.Int64("user_id", userID))
	if err != nil {
		return nil, err
	}

	if g, err := s.store.GetGroup(ctx, groupID); err == nil && g != nil {
		s.notifier.NotifyMemberJoined(g.DriverID, userID, groupID)
	}
	return m, nil
}

// Leave withdraws a passenger from a group
func (s *Service) Leave(ctx context.Context, groupID, userID int64) (*domain.Membership, error) {
	start := time.Now()
	m, err := s.coordinator.Leave(ctx, groupID, userID)
	observability.LeavesTotal.WithLabelValues(observability.Result(err)).Inc()
	s.observe("leave", start, err, zap.Int64("group_id", groupID), zap.Int64("user_id", userID))
	if err != nil {
		return nil, err
	}

	if g, err := s.store.GetGroup(ctx, groupID); err == nil && g != nil {
		s.notifier.NotifyMemberLeft(g.DriverID, userID, groupID)
	}
	return m, nil
}

// ChangeStatus applies a driver-requested lifecycle transition
func (s *Service) ChangeStatus(ctx context.Context, groupID, actorID int64, target domain.GroupStatus) (*domain.GroupView, error) {
	start := time.Now()
	g, err := s.lifecycle.Transition(ctx, groupID, actorID, target)
	observability.TransitionsTotal.WithLabelValues(string(target), observability.Result(err)).Inc()
	s.observe("transition", start, err,
		zap.Int64("group_id", groupID),
		zap.Int64("actor_id", actorID),
		zap.String("target", string(target)),
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Group status changed", zap.Int64("group_id", groupID), zap.String("status", string(g.Status)))

	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		s.logger.Warn("Failed to load members for notification", zap.Int64("group_id", groupID), zap.Error(err))
		return g, nil
	}
	recipients := make([]int64, 0, len(members))
	for _, m := range members {
		if m.Role == domain.RolePassenger && m.Approved() {
			recipients = append(recipients, m.UserID)
		}
	}
	s.notifier.NotifyStatusChanged(recipients, g.DriverID, groupID, g.Status)
	return g, nil
}

// observe records latency and logs the outcome at a level matching its kind.
func (s *Service) observe(op string, start time.Time, err error, fields ...zap.Field) {
	observability.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil {
		return
	}

	fields = append(fields, zap.String("operation", op), zap.String("reason", domain.ReasonOf(err)))
	switch domain.KindOf(err) {
	case domain.KindInternal:
		s.logger.Error("Group operation failed", append(fields, zap.Error(err))...)
	case domain.KindContention:
		s.logger.Warn("Group operation contended", append(fields, zap.Error(err))...)
	default:
		s.logger.Debug("Group operation rejected", fields...)
	}
}
