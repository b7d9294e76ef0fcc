package notification

import (
	"context"

	"go.uber.org/zap"
)

// Publisher delivers notifications to the downstream notification service
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
	Close() error
}

// LogPublisher writes notifications to the log. It is the default when no
// broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a publisher that only logs
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, n Notification) error {
	p.logger.Info("Notification",
		zap.String("id", n.ID),
		zap.String("type", string(n.Type)),
		zap.Int64("recipient_id", n.RecipientID),
		zap.String("message", n.Message),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
