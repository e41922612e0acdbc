package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"autopay/models"
	"github.com/sirupsen/logrus"
)

const maxFailureReasonLength = 500

// FailureTracker ведет счетчик последовательных ошибок автоплатежа и
// отключает конфигурацию после достижения порога
type FailureTracker struct {
	store       LedgerStore
	maxFailures int
	log         *logrus.Logger
}

// NewFailureTracker создает новый экземпляр FailureTracker
func NewFailureTracker(store LedgerStore, maxFailures int, log *logrus.Logger) *FailureTracker {
	return &FailureTracker{
		store:       store,
		maxFailures: maxFailures,
		log:         log,
	}
}

// MaxFailures возвращает порог отключения
func (t *FailureTracker) MaxFailures() int {
	return t.maxFailures
}

// RecordFailure увеличивает счетчик ошибок и сохраняет причину.
// Вызывается вне транзакции расчетов, чтобы запись пережила ее откат.
func (t *FailureTracker) RecordFailure(ctx context.Context, cfg *models.AutopayConfig, cause error, at time.Time) (*models.AutopayConfig, error) {
	reason := truncateReason(cause.Error(), maxFailureReasonLength)

	updated, err := t.store.RecordFailure(ctx, cfg.ID, reason, at, t.maxFailures)
	if err != nil {
		return nil, fmt.Errorf("failed to record failure for autopay config %d: %w", cfg.ID, err)
	}

	if updated.Status == models.AutopayStatusDisabled {
		t.log.WithFields(logrus.Fields{
			"config_id":            cfg.ID,
			"loan_id":              cfg.LoanID,
			"consecutive_failures": updated.ConsecutiveFailures,
		}).Warn("autopay config disabled after consecutive failures")
	}
	return updated, nil
}

// RecordSuccess сбрасывает счетчик ошибок внутри транзакции расчетов
func (t *FailureTracker) RecordSuccess(tx LedgerTx, configID uint, amount int64, at time.Time) error {
	if err := tx.MarkConfigSucceeded(configID, amount, at); err != nil {
		return fmt.Errorf("failed to reset failures for autopay config %d: %w", configID, err)
	}
	return nil
}

// truncateReason обрезает строку до limit байт, не разрывая символ UTF-8
func truncateReason(reason string, limit int) string {
	if len(reason) <= limit {
		return reason
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
