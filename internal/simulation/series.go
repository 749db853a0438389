package simulation

import "math"

const IndicatorMomentum = "momentum"

// PriceRow is one OHLCV sample as supplied by the caller.
type PriceRow struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	Close  float64 `json:"close"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Volume float64 `json:"volume"`
}

// Bar is a PriceRow plus derived indicator columns.
type Bar struct {
	PriceRow
	Indicators map[string]float64
}

// Value returns the named indicator, or NaN when the bar does not carry it.
func (b Bar) Value(indicator string) float64 {
	if b.Indicators == nil {
		return math.NaN()
	}
	v, ok := b.Indicators[indicator]
	if !ok {
		return math.NaN()
	}
	return v
}

// Momentum derives close[t]-close[t-1] for every row. The first row has no
// predecessor and gets NaN.
func Momentum(rows []PriceRow) []Bar {
	out := make([]Bar, len(rows))
	for i, row := range rows {
		m := math.NaN()
		if i > 0 {
			m = row.Close - rows[i-1].Close
		}
		out[i] = Bar{PriceRow: row, Indicators: map[string]float64{IndicatorMomentum: m}}
	}
	return out
}
