// Package repotest provides an in-memory repository.Repository for tests.
package repotest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"strategyhub/internal/models"
	"strategyhub/internal/repository"
)

// Store keeps rows in maps. InTx restores the previous state when fn fails.
type Store struct {
	mu  sync.Mutex
	seq uint64

	users      map[uint64]models.User
	strategies map[uint64]models.Strategy
	conditions map[uint64]models.Condition
	outbox     []models.OutboxEvent
	runs       []models.SimulationRun

	// FailSave makes SaveStrategyTx fail, to exercise rollback.
	FailSave error
}

func New() *Store {
	return &Store{
		users:      map[uint64]models.User{},
		strategies: map[uint64]models.Strategy{},
		conditions: map[uint64]models.Condition{},
	}
}

type snapshot struct {
	seq        uint64
	users      map[uint64]models.User
	strategies map[uint64]models.Strategy
	conditions map[uint64]models.Condition
	outbox     []models.OutboxEvent
	runs       []models.SimulationRun
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	snap := snapshot{
		seq:        s.seq,
		users:      copyMap(s.users),
		strategies: copyMap(s.strategies),
		conditions: copyMap(s.conditions),
		outbox:     append([]models.OutboxEvent(nil), s.outbox...),
		runs:       append([]models.SimulationRun(nil), s.runs...),
	}
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.seq = snap.seq
		s.users = snap.users
		s.strategies = snap.strategies
		s.conditions = snap.conditions
		s.outbox = snap.outbox
		s.runs = snap.runs
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) nextID() uint64 {
	s.seq++
	return s.seq
}

// --- users

func (s *Store) CreateUser(_ context.Context, item *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == item.Username {
			return repository.ErrDuplicate
		}
	}
	item.ID = s.nextID()
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now
	stored := *item
	stored.Strategies = nil
	s.users[item.ID] = stored
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id uint64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

// SetUserActive toggles a user's is_active flag.
func (s *Store) SetUserActive(id uint64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsActive = active
		s.users[id] = u
	}
}

// --- strategies

func (s *Store) CreateStrategyTx(_ context.Context, _ *gorm.DB, item *models.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.nextID()
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now
	for i := range item.Conditions {
		item.Conditions[i].ID = s.nextID()
		item.Conditions[i].StrategyID = item.ID
		s.conditions[item.Conditions[i].ID] = item.Conditions[i]
	}
	stored := *item
	stored.Conditions = nil
	s.strategies[item.ID] = stored
	return nil
}

func (s *Store) SaveStrategyTx(_ context.Context, _ *gorm.DB, item *models.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	cur, ok := s.strategies[item.ID]
	if !ok || cur.UserID != item.UserID {
		return nil
	}
	cur.Name = item.Name
	cur.Description = item.Description
	cur.AssetType = item.AssetType
	cur.Status = item.Status
	cur.UpdatedAt = time.Now().UTC()
	s.strategies[item.ID] = cur
	return nil
}

func (s *Store) DeleteStrategyTx(_ context.Context, _ *gorm.DB, userID, id uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.strategies[id]
	if !ok || cur.UserID != userID {
		return 0, nil
	}
	for cid, c := range s.conditions {
		if c.StrategyID == id {
			delete(s.conditions, cid)
		}
	}
	delete(s.strategies, id)
	return 1, nil
}

func (s *Store) GetStrategyForOwner(_ context.Context, userID, id uint64) (*models.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.strategies[id]
	if !ok || cur.UserID != userID {
		return nil, nil
	}
	out := s.withConditions(cur)
	return &out, nil
}

func (s *Store) ListActiveStrategiesByOwner(_ context.Context, userID uint64) ([]models.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Strategy
	for _, st := range s.strategies {
		if st.UserID != userID || st.Status == models.StrategyStatusClosed {
			continue
		}
		out = append(out, s.withConditions(st))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ConditionCount reports how many condition rows exist.
func (s *Store) ConditionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conditions)
}

func (s *Store) withConditions(st models.Strategy) models.Strategy {
	st.Conditions = nil
	for _, c := range s.conditions {
		if c.StrategyID == st.ID {
			st.Conditions = append(st.Conditions, c)
		}
	}
	sort.Slice(st.Conditions, func(i, j int) bool { return st.Conditions[i].ID < st.Conditions[j].ID })
	return st
}

// --- conditions

func (s *Store) InsertConditionsTx(_ context.Context, _ *gorm.DB, items []models.Condition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range items {
		if _, ok := s.strategies[items[i].StrategyID]; !ok {
			return errors.New("condition references a missing strategy")
		}
		items[i].ID = s.nextID()
		s.conditions[items[i].ID] = items[i]
	}
	return nil
}

func (s *Store) DeleteConditionsByIDTx(_ context.Context, _ *gorm.DB, ids []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.conditions, id)
	}
	return nil
}

func (s *Store) DeleteConditionsTx(ctx context.Context, tx *gorm.DB, items []models.Condition) error {
	ids := make([]uint64, 0, len(items))
	for _, c := range items {
		if c.ID != 0 {
			ids = append(ids, c.ID)
		}
	}
	return s.DeleteConditionsByIDTx(ctx, tx, ids)
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

// --- outbox

func (s *Store) InsertOutboxEvent(_ context.Context, item *models.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.nextID()
	s.outbox = append(s.outbox, *item)
	return nil
}

func (s *Store) ListPendingOutboxEvents(_ context.Context, limit int, maxAttempts int) ([]models.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OutboxEvent
	for _, e := range s.outbox {
		if e.Status != models.OutboxStatusPending || (maxAttempts > 0 && e.Attempts >= maxAttempts) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkOutboxEventSent(_ context.Context, id uint64, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].ID == id {
			s.outbox[i].Status = models.OutboxStatusSent
			s.outbox[i].SentAt = &sentAt
		}
	}
	return nil
}

func (s *Store) MarkOutboxEventFailed(_ context.Context, id uint64, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].ID == id {
			s.outbox[i].Attempts++
			s.outbox[i].LastError = lastError
		}
	}
	return nil
}

// --- simulation runs

func (s *Store) InsertSimulationRun(_ context.Context, item *models.SimulationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.nextID()
	item.CreatedAt = time.Now().UTC()
	s.runs = append(s.runs, *item)
	return nil
}

func (s *Store) ListSimulationRuns(_ context.Context, userID, strategyID uint64, limit int) ([]models.SimulationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SimulationRun
	for i := len(s.runs) - 1; i >= 0; i-- {
		r := s.runs[i]
		if r.UserID != userID || r.StrategyID != strategyID {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ repository.Repository = (*Store)(nil)
