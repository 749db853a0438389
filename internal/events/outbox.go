package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"strategyhub/internal/models"
	"strategyhub/internal/repository"
)

// OutboxPublisher hands events to Next and parks the ones it rejects in the
// outbox table. Flush retries parked events.
type OutboxPublisher struct {
	Next       Publisher
	Repo       repository.OutboxRepository
	Logger     *zap.Logger
	BatchSize  int
	MaxRetries int
}

func (p *OutboxPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	err := p.Next.Publish(ctx, ev)
	if err == nil {
		return nil
	}
	if p.Repo == nil {
		return err
	}
	row := &models.OutboxEvent{
		UserID:     ev.UserID,
		Message:    ev.Message,
		Status:     models.OutboxStatusPending,
		Attempts:   1,
		LastError:  err.Error(),
		OccurredAt: ev.OccurredAt,
	}
	if storeErr := p.Repo.InsertOutboxEvent(ctx, row); storeErr != nil {
		p.logger().Error("outbox insert failed", zap.Uint64("user_id", ev.UserID), zap.Error(storeErr))
		return storeErr
	}
	p.logger().Info("event parked in outbox", zap.Uint64("id", row.ID), zap.Error(err))
	return nil
}

// Flush retries up to BatchSize pending events and returns how many were sent.
func (p *OutboxPublisher) Flush(ctx context.Context) (int, error) {
	if p.Repo == nil {
		return 0, nil
	}
	items, err := p.Repo.ListPendingOutboxEvents(ctx, p.BatchSize, p.MaxRetries)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		ev := Event{Message: item.Message, UserID: item.UserID, OccurredAt: item.OccurredAt}
		if err := p.Next.Publish(ctx, ev); err != nil {
			if markErr := p.Repo.MarkOutboxEventFailed(ctx, item.ID, err.Error()); markErr != nil {
				return sent, markErr
			}
			continue
		}
		if err := p.Repo.MarkOutboxEventSent(ctx, item.ID, time.Now().UTC()); err != nil {
			return sent, err
		}
		sent++
	}
	if len(items) > 0 {
		p.logger().Info("outbox flushed", zap.Int("pending", len(items)), zap.Int("sent", sent))
	}
	return sent, nil
}

func (p *OutboxPublisher) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
