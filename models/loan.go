package models

import (
	"time"
)

// LoanStatus представляет статус кредита
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusClosed    LoanStatus = "closed"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// Loan представляет кредит пользователя
type Loan struct {
	ID                        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                    uint       `gorm:"column:user_id;not null;index" json:"user_id"`
	Status                    LoanStatus `gorm:"column:status;type:varchar(20);not null;default:'active'" json:"status"`
	OutstandingPrincipalCents int64      `gorm:"column:outstanding_principal_cents;not null;default:0" json:"outstanding_principal_cents"`
	ClosedAt                  *time.Time `gorm:"column:closed_at" json:"closed_at,omitempty"`
	CreatedAt                 time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt                 time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

// TableName возвращает имя таблицы для модели Loan
func (Loan) TableName() string {
	return "loans"
}

// ApplyPayment уменьшает остаток основного долга, не опуская его ниже нуля.
// Кредит с нулевым остатком закрывается.
func (l *Loan) ApplyPayment(amount int64, now time.Time) {
	l.OutstandingPrincipalCents -= amount
	if l.OutstandingPrincipalCents <= 0 {
		l.OutstandingPrincipalCents = 0
		l.Status = LoanStatusClosed
		l.ClosedAt = &now
	}
}
