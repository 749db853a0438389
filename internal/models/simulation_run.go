package models

import (
	"time"

	"gorm.io/datatypes"
)

// SimulationRun records one backtest over a caller-supplied price series.
type SimulationRun struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	StrategyID  uint64  `gorm:"not null;index" json:"strategy_id"`
	UserID      uint64  `gorm:"not null;index" json:"user_id"`
	Indicator   string  `gorm:"type:varchar(100);not null" json:"indicator"`
	Rows        int     `gorm:"not null" json:"rows"`
	TotalTrades int     `gorm:"not null" json:"total_trades"`
	ProfitLoss  float64 `gorm:"not null" json:"profit_loss"`
	WinRate     float64 `gorm:"not null" json:"win_rate"`
	MaxDrawdown float64 `gorm:"not null" json:"max_drawdown"`

	Trades datatypes.JSON `gorm:"type:jsonb" json:"trades,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (SimulationRun) TableName() string {
	return "simulation_runs"
}
