package simulation

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"strategyhub/internal/models"
	"strategyhub/internal/strategy"
)

func momentumStrategy(buy, sell string) *models.Strategy {
	return &models.Strategy{
		ID:     42,
		Status: models.StrategyStatusActive,
		Conditions: []models.Condition{
			{Indicator: "momentum", Threshold: decimal.RequireFromString(buy), Type: models.ConditionTypeBuy},
			{Indicator: "momentum", Threshold: decimal.RequireFromString(sell), Type: models.ConditionTypeSell},
		},
	}
}

func bar(date string, close, momentum float64) Bar {
	return Bar{
		PriceRow:   PriceRow{Date: date, Close: close},
		Indicators: map[string]float64{"momentum": momentum},
	}
}

func TestSimulate_Scenario(t *testing.T) {
	series := []Bar{
		bar("2024-01-01", 100, math.NaN()),
		bar("2024-01-02", 110, 10),
		bar("2024-01-03", 95, -15),
		bar("2024-01-04", 120, 25),
	}
	res, err := Simulate(momentumStrategy("5.00", "-5.00"), series, "momentum")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.StrategyID != 42 {
		t.Fatalf("strategy_id=%d want=42", res.StrategyID)
	}
	if res.TotalTrades != 2 {
		t.Fatalf("total_trades=%d want=2", res.TotalTrades)
	}
	if res.ProfitLoss != -15 {
		t.Fatalf("profit_loss=%v want=-15", res.ProfitLoss)
	}
	if res.WinRate != 0 {
		t.Fatalf("win_rate=%v want=0", res.WinRate)
	}
	if res.MaxDrawdown != -15 {
		t.Fatalf("max_drawdown=%v want=-15", res.MaxDrawdown)
	}
	if res.Trades[0].Action != ActionBuy || res.Trades[0].Price != 110 {
		t.Fatalf("first trade=%+v", res.Trades[0])
	}
	if res.Trades[1].Action != ActionSell || res.Trades[1].Price != 95 || *res.Trades[1].Profit != -15 {
		t.Fatalf("second trade=%+v", res.Trades[1])
	}
	if len(res.Trades) != 2 {
		t.Fatalf("trades=%d want=2, the open buy at 120 is dropped", len(res.Trades))
	}
}

func TestSimulate_MissingSellCondition(t *testing.T) {
	s := &models.Strategy{
		ID: 1,
		Conditions: []models.Condition{
			{Indicator: "momentum", Threshold: decimal.NewFromInt(5), Type: models.ConditionTypeBuy},
			{Indicator: "rsi", Threshold: decimal.NewFromInt(70), Type: models.ConditionTypeSell},
		},
	}
	_, err := Simulate(s, []Bar{bar("d", 1, 1)}, "momentum")
	if !errors.Is(err, strategy.ErrMissingConditionForIndicator) {
		t.Fatalf("err=%v want=ErrMissingConditionForIndicator", err)
	}
}

func TestSimulate_MissingBuyCondition(t *testing.T) {
	s := &models.Strategy{
		Conditions: []models.Condition{
			{Indicator: "momentum", Threshold: decimal.NewFromInt(-5), Type: models.ConditionTypeSell},
		},
	}
	_, err := Simulate(s, nil, "")
	if !errors.Is(err, strategy.ErrMissingConditionForIndicator) {
		t.Fatalf("err=%v want=ErrMissingConditionForIndicator", err)
	}
}

func TestSimulate_NoConditions(t *testing.T) {
	_, err := Simulate(&models.Strategy{}, nil, "momentum")
	if !errors.Is(err, strategy.ErrMissingConditionForIndicator) {
		t.Fatalf("err=%v want=ErrMissingConditionForIndicator", err)
	}
}

func TestSimulate_FirstMatchingConditionWins(t *testing.T) {
	s := momentumStrategy("5", "-5")
	s.Conditions = append(s.Conditions,
		models.Condition{Indicator: "momentum", Threshold: decimal.NewFromInt(100), Type: models.ConditionTypeBuy},
	)
	th, err := SelectThresholds(s, "momentum")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if th.Buy != 5 || th.Sell != -5 {
		t.Fatalf("thresholds=%+v want buy=5 sell=-5", th)
	}
}

func TestSimulate_WinRateCountsAllTrades(t *testing.T) {
	series := []Bar{
		bar("d1", 100, 10),
		bar("d2", 120, -10),
		bar("d3", 130, 10),
		bar("d4", 125, -10),
	}
	res, err := Simulate(momentumStrategy("5", "-5"), series, "momentum")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	// one winning sell out of four trades
	if res.TotalTrades != 4 || res.WinRate != 25 {
		t.Fatalf("total=%d win_rate=%v want=4/25", res.TotalTrades, res.WinRate)
	}
	if res.ProfitLoss != 15 {
		t.Fatalf("profit_loss=%v want=15", res.ProfitLoss)
	}
	if res.MaxDrawdown != -5 {
		t.Fatalf("max_drawdown=%v want=-5", res.MaxDrawdown)
	}
}

func TestSimulate_OpenPositionOnly(t *testing.T) {
	series := []Bar{bar("d1", 100, math.NaN()), bar("d2", 110, 10), bar("d3", 115, 5)}
	res, err := Simulate(momentumStrategy("5", "-5"), series, "momentum")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.TotalTrades != 0 || res.ProfitLoss != 0 {
		t.Fatalf("result=%+v want no trades", res)
	}
}

func TestSimulate_NoTrades(t *testing.T) {
	series := []Bar{bar("d1", 100, 1), bar("d2", 101, 1)}
	res, err := Simulate(momentumStrategy("5", "-5"), series, "momentum")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.TotalTrades != 0 || res.WinRate != 0 || res.MaxDrawdown != 0 || res.ProfitLoss != 0 {
		t.Fatalf("result=%+v want zeros", res)
	}
}

func TestSimulate_SkipsInvalidRows(t *testing.T) {
	series := []Bar{
		bar("d1", math.NaN(), 10),
		bar("d2", 100, math.Inf(1)),
		{PriceRow: PriceRow{Date: "d3", Close: 100}},
	}
	res, err := Simulate(momentumStrategy("5", "-5"), series, "momentum")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.TotalTrades != 0 {
		t.Fatalf("total_trades=%d want=0", res.TotalTrades)
	}
}

func TestMomentum(t *testing.T) {
	bars := Momentum([]PriceRow{{Date: "a", Close: 100}, {Date: "b", Close: 110}, {Date: "c", Close: 95}})
	if !math.IsNaN(bars[0].Value(IndicatorMomentum)) {
		t.Fatalf("first momentum=%v want=NaN", bars[0].Value(IndicatorMomentum))
	}
	if bars[1].Value(IndicatorMomentum) != 10 || bars[2].Value(IndicatorMomentum) != -15 {
		t.Fatalf("momentum=%v,%v want=10,-15", bars[1].Value(IndicatorMomentum), bars[2].Value(IndicatorMomentum))
	}
	if !math.IsNaN(bars[1].Value("rsi")) {
		t.Fatalf("unknown indicator should be NaN")
	}
}
