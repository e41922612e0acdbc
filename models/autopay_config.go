package models

import (
	"time"
)

// AutopayType определяет стратегию расчета суммы автоплатежа
type AutopayType string

const (
	AutopayTypeMinimum     AutopayType = "minimum"      // Минимальный платеж
	AutopayTypeScheduled   AutopayType = "scheduled"    // Плановая сумма взноса
	AutopayTypeFixed       AutopayType = "fixed"        // Фиксированная сумма
	AutopayTypeFullBalance AutopayType = "full_balance" // Полное погашение кредита
)

// AutopayStatus представляет статус настройки автоплатежа
type AutopayStatus string

const (
	AutopayStatusActive   AutopayStatus = "active"
	AutopayStatusDisabled AutopayStatus = "disabled"
)

// AutopayConfig представляет настройку автоплатежа по кредиту
type AutopayConfig struct {
	ID                     uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	LoanID                 uint          `gorm:"column:loan_id;not null;index" json:"loan_id"`
	Loan                   Loan          `gorm:"foreignKey:LoanID" json:"-"`
	AutopayType            AutopayType   `gorm:"column:autopay_type;type:varchar(20);not null" json:"autopay_type" validate:"required,oneof=minimum scheduled fixed full_balance"`
	FixedAmountCents       *int64        `gorm:"column:fixed_amount_cents" json:"fixed_amount_cents,omitempty"`
	MaxAmountCents         *int64        `gorm:"column:max_amount_cents" json:"max_amount_cents,omitempty"`
	Status                 AutopayStatus `gorm:"column:status;type:varchar(20);not null;default:'active'" json:"status"`
	ConsecutiveFailures    int           `gorm:"column:consecutive_failures;not null;default:0" json:"consecutive_failures"`
	LastFailureReason      *string       `gorm:"column:last_failure_reason;size:500" json:"last_failure_reason,omitempty"`
	LastFailureAt          *time.Time    `gorm:"column:last_failure_at" json:"last_failure_at,omitempty"`
	LastSuccessAt          *time.Time    `gorm:"column:last_success_at" json:"last_success_at,omitempty"`
	LastPaymentAmountCents *int64        `gorm:"column:last_payment_amount_cents" json:"last_payment_amount_cents,omitempty"`
	DisabledAt             *time.Time    `gorm:"column:disabled_at" json:"disabled_at,omitempty"`
	CreatedAt              time.Time     `gorm:"column:created_at" json:"created_at"`
	UpdatedAt              time.Time     `gorm:"column:updated_at" json:"updated_at"`
}

// TableName возвращает имя таблицы для модели AutopayConfig
func (AutopayConfig) TableName() string {
	return "autopay_configs"
}
