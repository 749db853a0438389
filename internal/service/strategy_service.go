package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"strategyhub/internal/cache"
	"strategyhub/internal/config"
	"strategyhub/internal/events"
	"strategyhub/internal/metrics"
	"strategyhub/internal/models"
	"strategyhub/internal/repository"
	"strategyhub/internal/simulation"
	"strategyhub/internal/strategy"
)

// Owner identifies the authenticated caller.
type Owner struct {
	ID       uint64
	Username string
}

// StrategyService persists strategies for their owner. Cache invalidation and
// notifications happen after the transaction commits and never fail the call.
type StrategyService struct {
	Repo       repository.Repository
	Cache      cache.Store
	CacheTTL   time.Duration
	Events     events.Publisher
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	Simulation config.SimulationConfig

	mu sync.Mutex
	// gens counts invalidations per owner. A list read only fills the cache if
	// no write for that owner landed while it was reading.
	gens map[uint64]uint64
}

func (s *StrategyService) Create(ctx context.Context, owner Owner, in strategy.Input) (*models.Strategy, error) {
	if err := strategy.ValidateInput(in); err != nil {
		return nil, err
	}
	item := strategy.CreateStrategy(in, owner.ID)
	if err := strategy.AttachConditions(item, in.Conditions); err != nil {
		return nil, err
	}
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return s.Repo.CreateStrategyTx(ctx, tx, item)
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, owner, events.StrategyCreated(owner.Username, item.Name))
	return item, nil
}

// FindByOwnerAndID does not distinguish a missing strategy from one owned by
// someone else.
func (s *StrategyService) FindByOwnerAndID(ctx context.Context, ownerID, id uint64) (*models.Strategy, error) {
	item, err := s.Repo.GetStrategyForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !strategy.OwnedBy(item, ownerID) {
		return nil, strategy.ErrStrategyNotFound
	}
	return item, nil
}

// ListActiveForOwner returns the owner's non-closed strategies, read through
// the strategies_{user_id} cache entry.
func (s *StrategyService) ListActiveForOwner(ctx context.Context, ownerID uint64) ([]strategy.Response, error) {
	key := cache.StrategiesKey(ownerID)
	var cached []strategy.Response
	found, err := cache.GetJSON(ctx, s.Cache, key, &cached)
	if err != nil {
		s.logger().Warn("strategies cache read failed", zap.String("key", key), zap.Error(err))
	}
	if found {
		return cached, nil
	}

	gen := s.generation(ownerID)
	items, err := s.Repo.ListActiveStrategiesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := strategy.FormatResponses(strategy.ActiveOnly(items))
	if s.generation(ownerID) != gen {
		s.logger().Debug("strategies cache fill skipped", zap.String("key", key))
		return out, nil
	}
	if err := cache.SetJSON(ctx, s.Cache, key, out, s.CacheTTL); err != nil {
		s.logger().Warn("strategies cache write failed", zap.String("key", key), zap.Error(err))
	}
	return out, nil
}

func (s *StrategyService) Update(ctx context.Context, owner Owner, id uint64, p strategy.Patch) (*models.Strategy, error) {
	item, err := s.FindByOwnerAndID(ctx, owner.ID, id)
	if err != nil {
		return nil, err
	}
	if p.Empty() {
		return item, nil
	}
	changes, err := strategy.ApplyPartialUpdate(item, p)
	if err != nil {
		return nil, err
	}
	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if changes.ConditionsReplaced {
			if err := s.Repo.DeleteConditionSetTx(ctx, tx, repository.ConditionSelector{Items: changes.Removed}); err != nil {
				return err
			}
			if err := s.Repo.InsertConditionsTx(ctx, tx, item.Conditions); err != nil {
				return err
			}
		}
		return s.Repo.SaveStrategyTx(ctx, tx, item)
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, owner, events.StrategyUpdated(owner.Username, item.Name))
	return item, nil
}

func (s *StrategyService) Delete(ctx context.Context, owner Owner, id uint64) error {
	item, err := s.FindByOwnerAndID(ctx, owner.ID, id)
	if err != nil {
		return err
	}
	var deleted int64
	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		n, err := s.Repo.DeleteStrategyTx(ctx, tx, owner.ID, id)
		deleted = n
		return err
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return strategy.ErrStrategyNotFound
	}
	s.afterWrite(ctx, owner, events.StrategyDeleted(owner.Username, item.Name))
	return nil
}

// Simulate backtests the owner's strategy over rows. The momentum column is
// derived here; other indicators must already be present on the bars, which
// the HTTP surface does not provide, so they produce no trades.
func (s *StrategyService) Simulate(ctx context.Context, ownerID, id uint64, rows []simulation.PriceRow, indicator string) (simulation.Result, error) {
	if len(rows) == 0 {
		return simulation.Result{}, ErrEmptySeries
	}
	if s.Simulation.MaxRows > 0 && len(rows) > s.Simulation.MaxRows {
		return simulation.Result{}, ErrSeriesTooLong
	}
	item, err := s.FindByOwnerAndID(ctx, ownerID, id)
	if err != nil {
		return simulation.Result{}, err
	}
	if indicator == "" {
		indicator = s.Simulation.DefaultIndicator
	}
	res, err := simulation.Simulate(item, simulation.Momentum(rows), indicator)
	s.Metrics.ObserveSimulation(err)
	if err != nil {
		return simulation.Result{}, err
	}
	if s.Simulation.PersistRuns {
		s.recordRun(ctx, item, indicator, len(rows), res)
	}
	return res, nil
}

func (s *StrategyService) ListRuns(ctx context.Context, ownerID, id uint64, limit int) ([]models.SimulationRun, error) {
	if _, err := s.FindByOwnerAndID(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.Repo.ListSimulationRuns(ctx, ownerID, id, limit)
}

func (s *StrategyService) recordRun(ctx context.Context, item *models.Strategy, indicator string, rows int, res simulation.Result) {
	trades, err := json.Marshal(res.Trades)
	if err != nil {
		s.logger().Warn("encode trades failed", zap.Uint64("strategy_id", item.ID), zap.Error(err))
		trades = []byte("[]")
	}
	run := &models.SimulationRun{
		StrategyID:  item.ID,
		UserID:      item.UserID,
		Indicator:   indicator,
		Rows:        rows,
		TotalTrades: res.TotalTrades,
		ProfitLoss:  res.ProfitLoss,
		WinRate:     res.WinRate,
		MaxDrawdown: res.MaxDrawdown,
		Trades:      datatypes.JSON(trades),
	}
	if err := s.Repo.InsertSimulationRun(ctx, run); err != nil {
		s.logger().Warn("store simulation run failed", zap.Uint64("strategy_id", item.ID), zap.Error(err))
	}
}

func (s *StrategyService) afterWrite(ctx context.Context, owner Owner, message string) {
	s.invalidate(ctx, owner.ID)
	if s.Events == nil {
		return
	}
	err := s.Events.Publish(ctx, events.Event{Message: message, UserID: owner.ID, OccurredAt: time.Now().UTC()})
	s.Metrics.ObserveEvent(err)
	if err != nil {
		s.logger().Warn("strategy event dropped", zap.Uint64("user_id", owner.ID), zap.String("message", message), zap.Error(err))
	}
}

func (s *StrategyService) invalidate(ctx context.Context, ownerID uint64) {
	s.mu.Lock()
	if s.gens == nil {
		s.gens = make(map[uint64]uint64)
	}
	s.gens[ownerID]++
	s.mu.Unlock()
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, cache.StrategiesKey(ownerID)); err != nil {
		s.logger().Warn("strategies cache invalidation failed", zap.Uint64("user_id", ownerID), zap.Error(err))
	}
}

func (s *StrategyService) generation(ownerID uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[ownerID]
}

func (s *StrategyService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
