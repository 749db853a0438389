package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StrategyStatusActive = "active"
	StrategyStatusClosed = "closed"
	StrategyStatusPaused = "paused"

	ConditionTypeBuy  = "buy_conditions"
	ConditionTypeSell = "sell_conditions"
)

// Strategy is a user-owned rule set; its conditions are removed with it.
type Strategy struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement"`
	Name        string  `gorm:"type:varchar(100);not null"`
	Description *string `gorm:"type:varchar(250)"`
	AssetType   string  `gorm:"type:varchar(50);not null"`
	Status      string  `gorm:"type:varchar(10);not null;default:'active';index"`
	UserID      uint64  `gorm:"not null;index"`

	Conditions []Condition `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Strategy) TableName() string {
	return "strategies"
}

type Condition struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement"`
	Indicator  string          `gorm:"type:varchar(100);not null"`
	Threshold  decimal.Decimal `gorm:"type:numeric(6,2);not null"`
	Type       string          `gorm:"type:varchar(20);not null"`
	StrategyID uint64          `gorm:"not null;index"`
}

func (Condition) TableName() string {
	return "conditions"
}
