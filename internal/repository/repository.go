package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"strategyhub/internal/models"
	"strategyhub/internal/strategy"
)

// ErrDuplicate is returned when a unique constraint rejects an insert.
var ErrDuplicate = errors.New("duplicate record")

// ConditionSelector names the conditions to delete, either by id or by
// loaded row. Exactly one of the two may be set.
type ConditionSelector struct {
	IDs   []uint64
	Items []models.Condition
}

func (s ConditionSelector) Validate() error {
	if len(s.IDs) > 0 && len(s.Items) > 0 {
		return strategy.ErrInvalidConditionDataStructure
	}
	return nil
}

type UserRepository interface {
	CreateUser(ctx context.Context, item *models.User) error
	GetUserByID(ctx context.Context, id uint64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type StrategyRepository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	CreateStrategyTx(ctx context.Context, tx *gorm.DB, item *models.Strategy) error
	SaveStrategyTx(ctx context.Context, tx *gorm.DB, item *models.Strategy) error
	// DeleteStrategyTx removes the owner's strategy and its conditions and
	// reports how many strategy rows went away.
	DeleteStrategyTx(ctx context.Context, tx *gorm.DB, userID, id uint64) (int64, error)
	GetStrategyForOwner(ctx context.Context, userID, id uint64) (*models.Strategy, error)
	ListActiveStrategiesByOwner(ctx context.Context, userID uint64) ([]models.Strategy, error)

	InsertConditionsTx(ctx context.Context, tx *gorm.DB, items []models.Condition) error
	DeleteConditionsByIDTx(ctx context.Context, tx *gorm.DB, ids []uint64) error
	DeleteConditionsTx(ctx context.Context, tx *gorm.DB, items []models.Condition) error
	DeleteConditionSetTx(ctx context.Context, tx *gorm.DB, sel ConditionSelector) error
}

type OutboxRepository interface {
	InsertOutboxEvent(ctx context.Context, item *models.OutboxEvent) error
	ListPendingOutboxEvents(ctx context.Context, limit int, maxAttempts int) ([]models.OutboxEvent, error)
	MarkOutboxEventSent(ctx context.Context, id uint64, sentAt time.Time) error
	MarkOutboxEventFailed(ctx context.Context, id uint64, lastError string) error
}

type SimulationRepository interface {
	InsertSimulationRun(ctx context.Context, item *models.SimulationRun) error
	ListSimulationRuns(ctx context.Context, userID, strategyID uint64, limit int) ([]models.SimulationRun, error)
}

type Repository interface {
	UserRepository
	StrategyRepository
	OutboxRepository
	SimulationRepository
}
