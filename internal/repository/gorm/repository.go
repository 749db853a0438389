package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"strategyhub/internal/models"
	"strategyhub/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// conn prefers the caller's transaction.
func (s *Store) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// --- users ------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, item *models.User) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	err := s.db.WithContext(ctx).Create(item).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repository.ErrDuplicate
	}
	return err
}

func (s *Store) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- strategies ---------------------------------------------------------------

func (s *Store) CreateStrategyTx(ctx context.Context, tx *gorm.DB, item *models.Strategy) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	// conditions are inserted through the association
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) SaveStrategyTx(ctx context.Context, tx *gorm.DB, item *models.Strategy) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.conn(ctx, tx).
		Model(&models.Strategy{}).
		Where("id = ? AND user_id = ?", item.ID, item.UserID).
		Updates(map[string]any{
			"name":        item.Name,
			"description": item.Description,
			"asset_type":  item.AssetType,
			"status":      item.Status,
			"updated_at":  time.Now().UTC(),
		}).Error
}

func (s *Store) DeleteStrategyTx(ctx context.Context, tx *gorm.DB, userID, id uint64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	conn := s.conn(ctx, tx)
	// conditions first; the FK cascade is not relied on
	if err := conn.
		Where("strategy_id IN (?)", conn.Model(&models.Strategy{}).Select("id").Where("id = ? AND user_id = ?", id, userID)).
		Delete(&models.Condition{}).Error; err != nil {
		return 0, err
	}
	res := conn.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Strategy{})
	return res.RowsAffected, res.Error
}

func (s *Store) GetStrategyForOwner(ctx context.Context, userID, id uint64) (*models.Strategy, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Strategy
	err := s.db.WithContext(ctx).
		Model(&models.Strategy{}).
		Preload("Conditions", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("user_id = ? AND id = ?", userID, id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListActiveStrategiesByOwner(ctx context.Context, userID uint64) ([]models.Strategy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Strategy
	if err := s.db.WithContext(ctx).
		Model(&models.Strategy{}).
		Preload("Conditions", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("user_id = ?", userID).
		Where("status <> ?", models.StrategyStatusClosed).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- conditions ---------------------------------------------------------------

func (s *Store) InsertConditionsTx(ctx context.Context, tx *gorm.DB, items []models.Condition) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.conn(ctx, tx).Create(&items).Error
}

func (s *Store) DeleteConditionsByIDTx(ctx context.Context, tx *gorm.DB, ids []uint64) error {
	if s == nil || s.db == nil || len(ids) == 0 {
		return nil
	}
	return s.conn(ctx, tx).Where("id IN ?", ids).Delete(&models.Condition{}).Error
}

func (s *Store) DeleteConditionsTx(ctx context.Context, tx *gorm.DB, items []models.Condition) error {
	if s == nil || s.db == nil {
		return nil
	}
	conn := s.conn(ctx, tx)
	for i := range items {
		if items[i].ID == 0 {
			continue
		}
		if err := conn.Delete(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteConditionSetTx(ctx context.Context, tx *gorm.DB, sel repository.ConditionSelector) error {
	if err := sel.Validate(); err != nil {
		return err
	}
	if len(sel.IDs) > 0 {
		return s.DeleteConditionsByIDTx(ctx, tx, sel.IDs)
	}
	return s.DeleteConditionsTx(ctx, tx, sel.Items)
}

// --- outbox -------------------------------------------------------------------

func (s *Store) InsertOutboxEvent(ctx context.Context, item *models.OutboxEvent) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListPendingOutboxEvents(ctx context.Context, limit int, maxAttempts int) ([]models.OutboxEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	q := s.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("status = ?", models.OutboxStatusPending)
	if maxAttempts > 0 {
		q = q.Where("attempts < ?", maxAttempts)
	}
	var items []models.OutboxEvent
	if err := q.Order("id asc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkOutboxEventSent(ctx context.Context, id uint64, sentAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     models.OutboxStatusSent,
			"sent_at":    sentAt,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (s *Store) MarkOutboxEventFailed(ctx context.Context, id uint64, lastError string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
			"updated_at": time.Now().UTC(),
		}).Error
}

// --- simulation runs ----------------------------------------------------------

func (s *Store) InsertSimulationRun(ctx context.Context, item *models.SimulationRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListSimulationRuns(ctx context.Context, userID, strategyID uint64, limit int) ([]models.SimulationRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var items []models.SimulationRun
	if err := s.db.WithContext(ctx).
		Model(&models.SimulationRun{}).
		Where("user_id = ? AND strategy_id = ?", userID, strategyID).
		Order("created_at desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

var _ repository.Repository = (*Store)(nil)
