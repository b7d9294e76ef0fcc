package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uvgride/grouprides/internal/domain"
	"github.com/uvgride/grouprides/internal/observability"
)

const publishTimeout = 5 * time.Second

// Service queues notifications and hands them to a Publisher from a single
// background worker. Enqueueing never blocks the caller: when the queue is
// full the notification is dropped and counted.
type Service struct {
	publisher Publisher
	logger    *zap.Logger
	queue     chan Notification
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewService creates a notification service and starts its worker
func NewService(publisher Publisher, logger *zap.Logger, buffer int) *Service {
	if buffer < 1 {
		buffer = 256
	}
	s := &Service{
		publisher: publisher,
		logger:    logger,
		queue:     make(chan Notification, buffer),
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Service) run() {
	defer close(s.done)
	for n := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := s.publisher.Publish(ctx, n)
		cancel()
		if err != nil {
			observability.NotificationsFailed.Inc()
			s.logger.Warn("Failed to publish notification",
				zap.String("id", n.ID),
				zap.String("type", string(n.Type)),
				zap.Error(err),
			)
		}
	}
}

// Send enqueues n, filling in its ID and timestamp when missing.
func (s *Service) Send(n Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	select {
	case s.queue <- n:
	default:
		observability.NotificationsDropped.Inc()
		s.logger.Warn("Notification queue full, dropping", zap.String("type", string(n.Type)))
	}
}

// Close stops accepting notifications and waits for the queue to drain.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.publisher.Close()
}

// NotifyMemberJoined tells the driver a passenger took a seat
func (s *Service) NotifyMemberJoined(driverID, memberID, groupID int64) {
	s.Send(Notification{
		Type:              NotificationTypeMemberJoined,
		RecipientID:       driverID,
		ActorID:           memberID,
		Message:           fmt.Sprintf("User %d joined your group", memberID),
		RelatedEntityType: "GROUP",
		RelatedEntityID:   groupID,
	})
}

// NotifyMemberLeft tells the driver a seat was freed
func (s *Service) NotifyMemberLeft(driverID, memberID, groupID int64) {
	s.Send(Notification{
		Type:              NotificationTypeMemberLeft,
		RecipientID:       driverID,
		ActorID:           memberID,
		Message:           fmt.Sprintf("User %d left your group", memberID),
		RelatedEntityType: "GROUP",
		RelatedEntityID:   groupID,
	})
}

// NotifyStatusChanged tells every passenger about a lifecycle change
func (s *Service) NotifyStatusChanged(recipients []int64, driverID, groupID int64, status domain.GroupStatus) {
	var (
		typ     NotificationType
		message string
	)
	switch status {
	case domain.StatusClosed:
		typ, message = NotificationTypeGroupClosed, "Your group is no longer accepting passengers"
	case domain.StatusCancelled:
		typ, message = NotificationTypeGroupCanceled, "Your group was cancelled by the driver"
	case domain.StatusFinalized:
		typ, message = NotificationTypeGroupFinished, "Your trip is complete. You can now rate your driver"
	default:
		return
	}

	for _, id := range recipients {
		s.Send(Notification{
			Type:              typ,
			RecipientID:       id,
			ActorID:           driverID,
			Message:           message,
			RelatedEntityType: "GROUP",
			RelatedEntityID:   groupID,
		})
	}
}

// NotifyRatingPosted tells the driver a passenger rated them
func (s *Service) NotifyRatingPosted(driverID, passengerID, ratingID int64, score int) {
	s.Send(Notification{
		Type:              NotificationTypeRatingPosted,
		RecipientID:       driverID,
		ActorID:           passengerID,
		Message:           fmt.Sprintf("A passenger rated you %d/5", score),
		RelatedEntityType: "RATING",
		RelatedEntityID:   ratingID,
	})
}
