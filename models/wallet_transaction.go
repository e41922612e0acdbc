package models

import (
	"time"
)

// WalletTransactionType тип записи в журнале кошелька
type WalletTransactionType string

const (
	WalletTransactionAutopayPayment WalletTransactionType = "autopay_payment"
)

// Direction направление движения средств. Автоплатеж только списывает.
type Direction string

const DirectionOut Direction = "out"

const ReferenceTypePaymentObligation = "payment_obligation"

// WalletTransaction неизменяемая запись журнала кошелька. Записи только добавляются.
type WalletTransaction struct {
	ID                 uint                  `gorm:"primaryKey;autoIncrement" json:"id"`
	WalletID           uint                  `gorm:"column:wallet_id;not null;index" json:"wallet_id"`
	UserID             uint                  `gorm:"column:user_id;not null;index" json:"user_id"`
	Type               WalletTransactionType `gorm:"column:type;type:varchar(30);not null" json:"type"`
	Direction          Direction             `gorm:"column:direction;type:varchar(3);not null" json:"direction"`
	AmountCents        int64                 `gorm:"column:amount_cents;not null" json:"amount_cents"`
	BalanceBeforeCents int64                 `gorm:"column:balance_before_cents;not null" json:"balance_before_cents"`
	BalanceAfterCents  int64                 `gorm:"column:balance_after_cents;not null" json:"balance_after_cents"`
	ReferenceType      string                `gorm:"column:reference_type;size:40;not null" json:"reference_type"`
	ReferenceID        uint                  `gorm:"column:reference_id;not null;index" json:"reference_id"`
	IdempotencyKey     string                `gorm:"column:idempotency_key;size:128;not null;uniqueIndex" json:"idempotency_key"`
	Description        string                `gorm:"column:description;size:255" json:"description"`
	CreatedAt          time.Time             `gorm:"column:created_at" json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
