package services

import (
	"context"
	"fmt"
	"time"

	"autopay/models"
)

// ObligationSelector находит самое раннее неоплаченное обязательство по кредиту
type ObligationSelector struct {
	store LedgerStore
}

// NewObligationSelector создает новый экземпляр ObligationSelector
func NewObligationSelector(store LedgerStore) *ObligationSelector {
	return &ObligationSelector{store: store}
}

// Select возвращает обязательство со сроком не позже today или ErrNoDueObligation.
// При равных датах выбирается обязательство с меньшим ID.
func (s *ObligationSelector) Select(ctx context.Context, cfg *models.AutopayConfig, today time.Time) (*models.PaymentObligation, error) {
	obligation, err := s.store.FindOldestPayableObligation(ctx, cfg.LoanID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to find due obligation for loan %d: %w", cfg.LoanID, err)
	}
	if obligation == nil {
		return nil, ErrNoDueObligation
	}
	return obligation, nil
}
