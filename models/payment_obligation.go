package models

import (
	"time"
)

// ObligationStatus представляет статус обязательства по платежу
type ObligationStatus string

const (
	ObligationStatusUpcoming ObligationStatus = "upcoming" // Срок еще не наступил
	ObligationStatusDue      ObligationStatus = "due"      // Срок наступил сегодня
	ObligationStatusOverdue  ObligationStatus = "overdue"  // Просрочен
	ObligationStatusPartial  ObligationStatus = "partial"  // Оплачен частично
	ObligationStatusPaid     ObligationStatus = "paid"     // Оплачен полностью
)

// PayableObligationStatuses статусы, по которым автоплатеж может списывать средства
var PayableObligationStatuses = []ObligationStatus{
	ObligationStatusDue,
	ObligationStatusUpcoming,
	ObligationStatusOverdue,
}

// PaymentObligation представляет очередной взнос по кредиту
type PaymentObligation struct {
	ID                  uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	LoanID              uint             `gorm:"column:loan_id;not null;index:idx_obligations_loan_due,priority:1" json:"loan_id"`
	DueDate             time.Time        `gorm:"column:due_date;type:date;not null;index:idx_obligations_loan_due,priority:2" json:"due_date"`
	TotalDueCents       int64            `gorm:"column:total_due_cents;not null" json:"total_due_cents"`
	TotalPaidCents      int64            `gorm:"column:total_paid_cents;not null;default:0" json:"total_paid_cents"`
	MinimumPaymentCents *int64           `gorm:"column:minimum_payment_cents" json:"minimum_payment_cents,omitempty"`
	Status              ObligationStatus `gorm:"column:status;type:varchar(20);not null;default:'upcoming'" json:"status"`
	PaidAt              *time.Time       `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt           time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

// TableName возвращает имя таблицы для модели PaymentObligation
func (PaymentObligation) TableName() string {
	return "payment_obligations"
}

// RemainingDue возвращает остаток к оплате по обязательству
func (o *PaymentObligation) RemainingDue() int64 {
	remaining := o.TotalDueCents - o.TotalPaidCents
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsPayable сообщает, может ли автоплатеж списывать средства по обязательству
func (o *PaymentObligation) IsPayable() bool {
	for _, s := range PayableObligationStatuses {
		if o.Status == s {
			return true
		}
	}
	return false
}

// ObligationStatusFor вычисляет статус обязательства по оплаченной сумме и сроку.
// today должен быть началом текущих суток в часовом поясе процессора.
func ObligationStatusFor(totalDue, totalPaid int64, dueDate, today time.Time) ObligationStatus {
	switch {
	case totalPaid >= totalDue:
		return ObligationStatusPaid
	case totalPaid > 0:
		return ObligationStatusPartial
	}

	due := time.Date(dueDate.Year(), dueDate.Month(), dueDate.Day(), 0, 0, 0, 0, today.Location())
	switch {
	case due.Before(today):
		return ObligationStatusOverdue
	case due.Equal(today):
		return ObligationStatusDue
	default:
		return ObligationStatusUpcoming
	}
}

// ApplyPayment зачисляет платеж на обязательство. Зачтенная сумма не превышает
// остаток к оплате; возвращается фактически зачтенная сумма.
func (o *PaymentObligation) ApplyPayment(amount int64, now, today time.Time) int64 {
	applied := amount
	if remaining := o.RemainingDue(); applied > remaining {
		applied = remaining
	}
	o.TotalPaidCents += applied
	o.Status = ObligationStatusFor(o.TotalDueCents, o.TotalPaidCents, o.DueDate, today)
	if o.Status == ObligationStatusPaid {
		o.PaidAt = &now
	}
	return applied
}
