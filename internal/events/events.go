package events

import (
	"context"
	"fmt"
	"time"
)

// Event is a user-facing notification about a strategy change.
type Event struct {
	Message    string    `json:"message"`
	UserID     uint64    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

func StrategyCreated(username, name string) string {
	return fmt.Sprintf("User %s created strategy %s", username, name)
}

func StrategyUpdated(username, name string) string {
	return fmt.Sprintf("User %s updated strategy %s", username, name)
}

func StrategyDeleted(username, name string) string {
	return fmt.Sprintf("User %s deleted strategy %s", username, name)
}
