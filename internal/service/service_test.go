package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"strategyhub/internal/auth"
	"strategyhub/internal/cache"
	"strategyhub/internal/config"
	"strategyhub/internal/events"
	"strategyhub/internal/metrics"
	"strategyhub/internal/models"
	"strategyhub/internal/repository/repotest"
	"strategyhub/internal/simulation"
	"strategyhub/internal/strategy"
)

type recordingPublisher struct {
	mu  sync.Mutex
	got []events.Event
	err error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.got = append(p.got, ev)
	return nil
}

func (p *recordingPublisher) messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.got))
	for _, ev := range p.got {
		out = append(out, ev.Message)
	}
	return out
}

func newStrategyService() (*StrategyService, *repotest.Store, *recordingPublisher) {
	repo := repotest.New()
	pub := &recordingPublisher{}
	svc := &StrategyService{
		Repo:     repo,
		Cache:    cache.NewMemoryStore(),
		CacheTTL: time.Minute,
		Events:   pub,
		Metrics:  metrics.New("test"),
		Simulation: config.SimulationConfig{
			DefaultIndicator: simulation.IndicatorMomentum,
			MaxRows:          100,
			PersistRuns:      true,
		},
	}
	return svc, repo, pub
}

func cond(indicator, threshold, typ string) strategy.ConditionData {
	return strategy.ConditionData{Indicator: indicator, Threshold: decimal.RequireFromString(threshold), Type: typ}
}

func momentumInput(name string) strategy.Input {
	return strategy.Input{
		Name:      name,
		AssetType: "stock",
		Conditions: []strategy.ConditionData{
			cond("momentum", "5", models.ConditionTypeBuy),
			cond("momentum", "-5", models.ConditionTypeSell),
		},
	}
}

var alice = Owner{ID: 1, Username: "alice"}
var bob = Owner{ID: 2, Username: "bob"}

func TestStrategyService_CreateAndFind(t *testing.T) {
	svc, _, pub := newStrategyService()
	ctx := context.Background()

	item, err := svc.Create(ctx, alice, momentumInput("S1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.ID == 0 || item.Status != models.StrategyStatusActive || len(item.Conditions) != 2 {
		t.Fatalf("item=%+v", item)
	}

	got, err := svc.FindByOwnerAndID(ctx, alice.ID, item.ID)
	if err != nil || got.Name != "S1" {
		t.Fatalf("got=%+v err=%v", got, err)
	}
	if _, err := svc.FindByOwnerAndID(ctx, bob.ID, item.ID); !errors.Is(err, strategy.ErrStrategyNotFound) {
		t.Fatalf("other owner err=%v want=ErrStrategyNotFound", err)
	}
	if _, err := svc.FindByOwnerAndID(ctx, alice.ID, 999); !errors.Is(err, strategy.ErrStrategyNotFound) {
		t.Fatalf("missing err=%v want=ErrStrategyNotFound", err)
	}
	if msgs := pub.messages(); len(msgs) != 1 || msgs[0] != "User alice created strategy S1" {
		t.Fatalf("events=%v", msgs)
	}
}

func TestStrategyService_CreateRejectsBadConditionType(t *testing.T) {
	svc, repo, pub := newStrategyService()
	in := momentumInput("S1")
	in.Conditions = append(in.Conditions, cond("momentum", "1", "hold"))
	if _, err := svc.Create(context.Background(), alice, in); !errors.Is(err, strategy.ErrIncorrectConditionType) {
		t.Fatalf("err=%v want=ErrIncorrectConditionType", err)
	}
	if repo.ConditionCount() != 0 || len(pub.messages()) != 0 {
		t.Fatalf("side effects after rejected create")
	}
}

func TestStrategyService_ListUsesCacheAndInvalidates(t *testing.T) {
	svc, _, _ := newStrategyService()
	ctx := context.Background()

	first, _ := svc.Create(ctx, alice, momentumInput("S1"))
	closed := momentumInput("S2")
	closed.Status = models.StrategyStatusClosed
	_, _ = svc.Create(ctx, alice, closed)
	_, _ = svc.Create(ctx, bob, momentumInput("B1"))

	list, err := svc.ListActiveForOwner(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != first.ID {
		t.Fatalf("list=%+v", list)
	}
	var cached []strategy.Response
	if ok, _ := cache.GetJSON(ctx, svc.Cache, cache.StrategiesKey(alice.ID), &cached); !ok || len(cached) != 1 {
		t.Fatalf("expected cached list, ok=%v cached=%v", ok, cached)
	}

	_, _ = svc.Create(ctx, alice, momentumInput("S3"))
	if ok, _ := cache.GetJSON(ctx, svc.Cache, cache.StrategiesKey(alice.ID), &cached); ok {
		t.Fatalf("cache not invalidated after create")
	}
	list, _ = svc.ListActiveForOwner(ctx, alice.ID)
	if len(list) != 2 {
		t.Fatalf("list=%d want=2", len(list))
	}
}

// slowListStore runs afterList once the list query has returned, so a write can
// land between the database read and the cache fill.
type slowListStore struct {
	*repotest.Store
	afterList func()
}

func (s *slowListStore) ListActiveStrategiesByOwner(ctx context.Context, userID uint64) ([]models.Strategy, error) {
	items, err := s.Store.ListActiveStrategiesByOwner(ctx, userID)
	if s.afterList != nil {
		hook := s.afterList
		s.afterList = nil
		hook()
	}
	return items, err
}

func TestStrategyService_ListSkipsFillAfterConcurrentWrite(t *testing.T) {
	svc, repo, _ := newStrategyService()
	ctx := context.Background()
	slow := &slowListStore{Store: repo}
	svc.Repo = slow

	_, _ = svc.Create(ctx, alice, momentumInput("S1"))
	slow.afterList = func() {
		if _, err := svc.Create(ctx, alice, momentumInput("S2")); err != nil {
			t.Errorf("create during list: %v", err)
		}
	}

	list, err := svc.ListActiveForOwner(ctx, alice.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list=%+v err=%v", list, err)
	}
	var cached []strategy.Response
	if ok, _ := cache.GetJSON(ctx, svc.Cache, cache.StrategiesKey(alice.ID), &cached); ok {
		t.Fatalf("stale list cached: %+v", cached)
	}
	list, _ = svc.ListActiveForOwner(ctx, alice.ID)
	if len(list) != 2 {
		t.Fatalf("list=%d want=2", len(list))
	}
	if ok, _ := cache.GetJSON(ctx, svc.Cache, cache.StrategiesKey(alice.ID), &cached); !ok || len(cached) != 2 {
		t.Fatalf("expected cached list, ok=%v cached=%v", ok, cached)
	}
}

func TestStrategyService_UpdateReplacesConditions(t *testing.T) {
	svc, repo, pub := newStrategyService()
	ctx := context.Background()
	item, _ := svc.Create(ctx, alice, momentumInput("S1"))

	name := "S1b"
	conds := []strategy.ConditionData{cond("rsi", "30", models.ConditionTypeBuy)}
	got, err := svc.Update(ctx, alice, item.ID, strategy.Patch{Name: &name, Conditions: &conds})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "S1b" || len(got.Conditions) != 1 {
		t.Fatalf("got=%+v", got)
	}
	if repo.ConditionCount() != 1 {
		t.Fatalf("conditions=%d want=1", repo.ConditionCount())
	}
	reloaded, _ := svc.FindByOwnerAndID(ctx, alice.ID, item.ID)
	if reloaded.Name != "S1b" || reloaded.Conditions[0].Indicator != "rsi" || reloaded.AssetType != "stock" {
		t.Fatalf("reloaded=%+v", reloaded)
	}
	msgs := pub.messages()
	if msgs[len(msgs)-1] != "User alice updated strategy S1b" {
		t.Fatalf("events=%v", msgs)
	}
}

func TestStrategyService_UpdateValidationLeavesStoreUntouched(t *testing.T) {
	svc, _, _ := newStrategyService()
	ctx := context.Background()
	item, _ := svc.Create(ctx, alice, momentumInput("S1"))

	bad := "archived"
	if _, err := svc.Update(ctx, alice, item.ID, strategy.Patch{Status: &bad}); !errors.Is(err, strategy.ErrIncorrectStatusType) {
		t.Fatalf("err=%v want=ErrIncorrectStatusType", err)
	}
	if _, err := svc.Update(ctx, bob, item.ID, strategy.Patch{Status: &bad}); !errors.Is(err, strategy.ErrStrategyNotFound) {
		t.Fatalf("err=%v want=ErrStrategyNotFound", err)
	}
	reloaded, _ := svc.FindByOwnerAndID(ctx, alice.ID, item.ID)
	if reloaded.Status != models.StrategyStatusActive {
		t.Fatalf("status=%s", reloaded.Status)
	}
}

func TestStrategyService_UpdateRollsBack(t *testing.T) {
	svc, repo, _ := newStrategyService()
	ctx := context.Background()
	item, _ := svc.Create(ctx, alice, momentumInput("S1"))

	repo.FailSave = errors.New("db down")
	conds := []strategy.ConditionData{cond("rsi", "30", models.ConditionTypeBuy)}
	if _, err := svc.Update(ctx, alice, item.ID, strategy.Patch{Conditions: &conds}); err == nil {
		t.Fatalf("expected error")
	}
	repo.FailSave = nil
	reloaded, _ := svc.FindByOwnerAndID(ctx, alice.ID, item.ID)
	if len(reloaded.Conditions) != 2 || reloaded.Conditions[0].Indicator != "momentum" {
		t.Fatalf("conditions=%+v want the original two", reloaded.Conditions)
	}
}

func TestStrategyService_Delete(t *testing.T) {
	svc, repo, pub := newStrategyService()
	ctx := context.Background()
	item, _ := svc.Create(ctx, alice, momentumInput("S1"))

	if err := svc.Delete(ctx, bob, item.ID); !errors.Is(err, strategy.ErrStrategyNotFound) {
		t.Fatalf("err=%v want=ErrStrategyNotFound", err)
	}
	if err := svc.Delete(ctx, alice, item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if repo.ConditionCount() != 0 {
		t.Fatalf("conditions survived delete")
	}
	if err := svc.Delete(ctx, alice, item.ID); !errors.Is(err, strategy.ErrStrategyNotFound) {
		t.Fatalf("second delete err=%v", err)
	}
	msgs := pub.messages()
	if msgs[len(msgs)-1] != "User alice deleted strategy S1" {
		t.Fatalf("events=%v", msgs)
	}
}

func TestStrategyService_PublishFailureDoesNotFail(t *testing.T) {
	svc, _, pub := newStrategyService()
	pub.err = errors.New("broker down")
	if _, err := svc.Create(context.Background(), alice, momentumInput("S1")); err != nil {
		t.Fatalf("create failed on publish error: %v", err)
	}
}

func TestStrategyService_Simulate(t *testing.T) {
	svc, _, _ := newStrategyService()
	ctx := context.Background()
	item, _ := svc.Create(ctx, alice, momentumInput("S1"))

	rows := []simulation.PriceRow{
		{Date: "2024-01-01", Close: 100},
		{Date: "2024-01-02", Close: 110},
		{Date: "2024-01-03", Close: 95},
		{Date: "2024-01-04", Close: 120},
	}
	res, err := svc.Simulate(ctx, alice.ID, item.ID, rows, "")
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if res.StrategyID != item.ID || res.TotalTrades != 2 || res.ProfitLoss != -15 || res.WinRate != 0 || res.MaxDrawdown != -15 {
		t.Fatalf("res=%+v", res)
	}

	runs, err := svc.ListRuns(ctx, alice.ID, item.ID, 10)
	if err != nil || len(runs) != 1 || runs[0].TotalTrades != 2 || runs[0].Indicator != "momentum" {
		t.Fatalf("runs=%+v err=%v", runs, err)
	}
	if _, err := svc.ListRuns(ctx, bob.ID, item.ID, 10); !errors.Is(err, strategy.ErrStrategyNotFound) {
		t.Fatalf("err=%v want=ErrStrategyNotFound", err)
	}

	if _, err := svc.Simulate(ctx, alice.ID, item.ID, rows, "rsi"); !errors.Is(err, strategy.ErrMissingConditionForIndicator) {
		t.Fatalf("err=%v want=ErrMissingConditionForIndicator", err)
	}
	if _, err := svc.Simulate(ctx, alice.ID, item.ID, nil, ""); !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("err=%v want=ErrEmptySeries", err)
	}
	svc.Simulation.MaxRows = 2
	if _, err := svc.Simulate(ctx, alice.ID, item.ID, rows, ""); !errors.Is(err, ErrSeriesTooLong) {
		t.Fatalf("err=%v want=ErrSeriesTooLong", err)
	}
}

func newAuthService() (*AuthService, *repotest.Store) {
	repo := repotest.New()
	return &AuthService{
		Repo:       repo,
		JWT:        auth.JWT{Secret: []byte("s"), Issuer: "test", AccessTTL: time.Minute, RefreshTTL: time.Hour},
		BcryptCost: bcrypt.MinCost,
	}, repo
}

func TestAuthService_RegisterLoginRefresh(t *testing.T) {
	svc, repo := newAuthService()
	ctx := context.Background()

	pair, err := svc.Register(ctx, "alice", "pw")
	if err != nil || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("register pair=%+v err=%v", pair, err)
	}
	if _, err := svc.Register(ctx, "alice", "pw2"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("err=%v want=ErrUsernameTaken", err)
	}
	if _, err := svc.Register(ctx, "", "pw"); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err=%v want=ErrMissingCredentials", err)
	}
	if _, err := svc.Register(ctx, "a-very-long-username-indeed", "pw"); !errors.Is(err, ErrUsernameTooLong) {
		t.Fatalf("err=%v want=ErrUsernameTooLong", err)
	}
	if _, err := svc.Register(ctx, "carol", strings.Repeat("x", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("err=%v want=ErrPasswordTooLong", err)
	}
	if _, err := svc.Register(ctx, "carol", strings.Repeat("x", 72)); err != nil {
		t.Fatalf("72 byte password: %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err=%v want=ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err=%v want=ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "alice", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("access token accepted for refresh: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	user, _ := repo.GetUserByUsername(ctx, "alice")
	repo.SetUserActive(user.ID, false)
	if _, err := svc.Login(ctx, "alice", "pw"); !errors.Is(err, ErrInactiveUser) {
		t.Fatalf("err=%v want=ErrInactiveUser", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInactiveUser) {
		t.Fatalf("err=%v want=ErrInactiveUser", err)
	}

	me, err := svc.Me(ctx, user.ID)
	if err != nil || me.Username != "alice" {
		t.Fatalf("me=%+v err=%v", me, err)
	}
}
