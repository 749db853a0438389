package simulation

import (
	"fmt"
	"math"

	"strategyhub/internal/models"
	"strategyhub/internal/strategy"
)

const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

type Trade struct {
	Action string   `json:"action"`
	Date   string   `json:"date"`
	Price  float64  `json:"price"`
	Profit *float64 `json:"profit,omitempty"`
}

type Result struct {
	StrategyID  uint64  `json:"strategy_id"`
	TotalTrades int     `json:"total_trades"`
	ProfitLoss  float64 `json:"profit_loss"`
	WinRate     float64 `json:"win_rate"`
	MaxDrawdown float64 `json:"max_drawdown"`

	Trades []Trade `json:"-"`
}

// Thresholds are the buy/sell trigger levels for one indicator.
type Thresholds struct {
	Indicator string
	Buy       float64
	Sell      float64
}

// SelectThresholds picks the first buy and the first sell condition on the
// indicator. Stored thresholds are converted to float64 here so every
// comparison in the replay uses the same representation as the price data.
func SelectThresholds(s *models.Strategy, indicator string) (Thresholds, error) {
	if s == nil {
		return Thresholds{}, strategy.ErrStrategyNotFound
	}
	if indicator == "" {
		indicator = IndicatorMomentum
	}
	var buy, sell *models.Condition
	for i := range s.Conditions {
		c := &s.Conditions[i]
		if c.Indicator != indicator {
			continue
		}
		switch c.Type {
		case models.ConditionTypeBuy:
			if buy == nil {
				buy = c
			}
		case models.ConditionTypeSell:
			if sell == nil {
				sell = c
			}
		}
	}
	if buy == nil {
		return Thresholds{}, fmt.Errorf("%w: no buy condition on %q", strategy.ErrMissingConditionForIndicator, indicator)
	}
	if sell == nil {
		return Thresholds{}, fmt.Errorf("%w: no sell condition on %q", strategy.ErrMissingConditionForIndicator, indicator)
	}
	return Thresholds{
		Indicator: indicator,
		Buy:       buy.Threshold.InexactFloat64(),
		Sell:      sell.Threshold.InexactFloat64(),
	}, nil
}

// Simulate replays series against the strategy's thresholds for indicator
// (momentum when empty). It holds at most one long position at a time; a buy
// with no sell before the end of the series is dropped from the result.
func Simulate(s *models.Strategy, series []Bar, indicator string) (Result, error) {
	th, err := SelectThresholds(s, indicator)
	if err != nil {
		return Result{}, err
	}
	trades := replay(series, th)
	res := summarize(trades)
	res.StrategyID = s.ID
	return res, nil
}

func replay(series []Bar, th Thresholds) []Trade {
	var (
		long       bool
		entryPrice float64
		trades     []Trade
	)
	for _, bar := range series {
		signal := bar.Value(th.Indicator)
		price := bar.Close
		if !finite(signal) || !finite(price) {
			continue
		}
		switch {
		case !long && signal > th.Buy:
			long = true
			entryPrice = price
			trades = append(trades, Trade{Action: ActionBuy, Date: bar.Date, Price: price})
		case long && signal < th.Sell:
			profit := price - entryPrice
			long = false
			trades = append(trades, Trade{Action: ActionSell, Date: bar.Date, Price: price, Profit: &profit})
		}
	}
	if long {
		// a position still open when the series ends is unrealized and not reported
		trades = trades[:len(trades)-1]
	}
	return trades
}

func summarize(trades []Trade) Result {
	res := Result{TotalTrades: len(trades), Trades: trades}
	var (
		wins     int
		sells    int
		drawdown float64
	)
	for _, tr := range trades {
		if tr.Action != ActionSell || tr.Profit == nil {
			continue
		}
		p := *tr.Profit
		res.ProfitLoss += p
		if p > 0 {
			wins++
		}
		if sells == 0 || p < drawdown {
			drawdown = p
		}
		sells++
	}
	if res.TotalTrades > 0 {
		res.WinRate = float64(wins) / float64(res.TotalTrades) * 100
	}
	res.MaxDrawdown = drawdown
	return res
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
