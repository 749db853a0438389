package models

import "time"

type User struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	Username string `gorm:"type:varchar(20);uniqueIndex;not null"`
	Password string `gorm:"type:varchar(100);not null"`
	IsActive bool   `gorm:"not null;default:true"`

	Strategies []Strategy `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
