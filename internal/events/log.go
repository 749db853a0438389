package events

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher is used when no brokers are configured.
type LogPublisher struct {
	Logger *zap.Logger
}

func (p LogPublisher) Publish(_ context.Context, ev Event) error {
	if p.Logger == nil {
		return nil
	}
	p.Logger.Info("strategy event",
		zap.Uint64("user_id", ev.UserID),
		zap.String("message", ev.Message),
		zap.Time("occurred_at", ev.OccurredAt),
	)
	return nil
}
