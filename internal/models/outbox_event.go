package models

import "time"

const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
)

// OutboxEvent holds a notification that could not be published right away.
type OutboxEvent struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    uint64 `gorm:"not null;index"`
	Message   string `gorm:"type:text;not null"`
	Status    string `gorm:"type:varchar(10);not null;default:'pending';index"`
	Attempts  int    `gorm:"not null;default:0"`
	LastError string `gorm:"type:text"`

	OccurredAt time.Time  `gorm:"type:timestamptz;not null"`
	SentAt     *time.Time `gorm:"type:timestamptz"`
	CreatedAt  time.Time  `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt  time.Time  `gorm:"type:timestamptz;autoUpdateTime"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}
