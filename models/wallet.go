package models

import (
	"time"
)

type Wallet struct {
	ID                    uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                uint      `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	AvailableBalanceCents int64     `gorm:"column:available_balance_cents;not null;default:0" json:"available_balance_cents"`
	Currency              string    `gorm:"column:currency;size:3;not null;default:'USD'" json:"currency"`
	Version               int64     `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt             time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt             time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}
