package rating

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/uvgride/grouprides/internal/domain"
	"github.com/uvgride/grouprides/internal/observability"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Notifier is told about accepted ratings after they commit
type Notifier interface {
	NotifyRatingPosted(driverID, passengerID, ratingID int64, score int)
}

type nopNotifier struct{}

func (nopNotifier) NotifyRatingPosted(int64, int64, int64, int) {}

// Service handles rating business logic
type Service struct {
	store      domain.Store
	aggregator *Aggregator
	cache      SummaryCache
	notifier   Notifier
	logger     *zap.Logger
}

// NewService creates a new rating service
func NewService(store domain.Store, aggregator *Aggregator, cache SummaryCache, notifier Notifier, logger *zap.Logger) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		store:      store,
		aggregator: aggregator,
		cache:      cache,
		notifier:   notifier,
		logger:     logger,
	}
}

// Rate records a passenger's rating of a group's driver and drops the
// driver's cached summary. The next Summary call recomputes it from the rows.
func (s *Service) Rate(ctx context.Context, groupID, passengerID int64, score int, comment string) (*domain.Rating, bool, error) {
	start := time.Now()
	r, created, err := s.aggregator.Rate(ctx, groupID, passengerID, score, comment)
	observability.RatingsTotal.WithLabelValues(observability.Result(err)).Inc()
	observability.OperationDuration.WithLabelValues("rate").Observe(time.Since(start).Seconds())
	if err != nil {
		s.logFailure("rate", err, zap.Int64("group_id", groupID), zap.Int64("passenger_id", passengerID))
		return nil, false, err
	}

	s.invalidate(ctx, r.DriverID)
	s.notifier.NotifyRatingPosted(r.DriverID, passengerID, r.ID, r.Score)

	s.logger.Info("Rating recorded",
		zap.Int64("rating_id", r.ID),
		zap.Int64("driver_id", r.DriverID),
		zap.Int64("passenger_id", passengerID),
		zap.Bool("created", created),
	)
	return r, created, nil
}

// invalidate drops a driver's cached summary after a committed rating.
// Writers never store a summary; only readers fill the cache.
func (s *Service) invalidate(ctx context.Context, driverID int64) {
	if err := s.cache.Delete(ctx, driverID); err != nil {
		s.logger.Warn("Failed to invalidate rating summary", zap.Int64("driver_id", driverID), zap.Error(err))
	}
}

// Summary returns a driver's rating count and average
func (s *Service) Summary(ctx context.Context, driverID int64) (domain.RatingSummary, error) {
	if cached, ok, err := s.cache.Get(ctx, driverID); err != nil {
		s.logger.Warn("Rating summary cache unavailable", zap.Int64("driver_id", driverID), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	summary, err := s.aggregator.Summary(ctx, driverID)
	if err != nil {
		s.logFailure("summary", err, zap.Int64("driver_id", driverID))
		return domain.RatingSummary{}, err
	}
	if err := s.cache.Set(ctx, summary); err != nil {
		s.logger.Warn("Failed to cache rating summary", zap.Int64("driver_id", driverID), zap.Error(err))
	}
	return summary, nil
}

// GroupSummary returns the summary of a group's driver
func (s *Service) GroupSummary(ctx context.Context, groupID int64) (domain.RatingSummary, error) {
	g, err := s.group(ctx, groupID)
	if err != nil {
		return domain.RatingSummary{}, err
	}
	return s.Summary(ctx, g.DriverID)
}

// List returns a page of a driver's ratings
func (s *Service) List(ctx context.Context, driverID int64, limit, offset int) ([]*domain.Rating, int, error) {
	ratings, total, err := s.aggregator.List(ctx, driverID, limit, offset)
	if err != nil {
		s.logFailure("list", err, zap.Int64("driver_id", driverID))
		return nil, 0, err
	}
	return ratings, total, nil
}

// GroupRatings returns a page of the ratings held by a group's driver
func (s *Service) GroupRatings(ctx context.Context, groupID int64, limit, offset int) ([]*domain.Rating, int, error) {
	g, err := s.group(ctx, groupID)
	if err != nil {
		return nil, 0, err
	}
	return s.List(ctx, g.DriverID, limit, offset)
}

func (s *Service) group(ctx context.Context, groupID int64) (*domain.Group, error) {
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, domain.ErrGroupNotFound
	}
	return g, nil
}

func (s *Service) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("operation", op), zap.String("reason", domain.ReasonOf(err)))
	switch domain.KindOf(err) {
	case domain.KindInternal, domain.KindContention:
		s.logger.Warn("Rating operation failed", append(fields, zap.Error(err))...)
	default:
		s.logger.Debug("Rating operation rejected", fields...)
	}
}
