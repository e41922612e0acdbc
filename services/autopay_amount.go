package services

import (
	"fmt"

	"autopay/models"
)

// Strategy стратегия расчета суммы автоплатежа. Набор стратегий закрыт:
// реализации существуют только внутри пакета.
type Strategy interface {
	Type() models.AutopayType
	amount(obligation *models.PaymentObligation, loan *models.Loan, cfg *models.AutopayConfig) int64
}

type minimumStrategy struct{}

func (minimumStrategy) Type() models.AutopayType { return models.AutopayTypeMinimum }

func (minimumStrategy) amount(obligation *models.PaymentObligation, _ *models.Loan, _ *models.AutopayConfig) int64 {
	remaining := obligation.RemainingDue()
	if obligation.MinimumPaymentCents == nil {
		return remaining
	}
	return min(*obligation.MinimumPaymentCents, remaining)
}

type scheduledStrategy struct{}

func (scheduledStrategy) Type() models.AutopayType { return models.AutopayTypeScheduled }

func (scheduledStrategy) amount(obligation *models.PaymentObligation, _ *models.Loan, _ *models.AutopayConfig) int64 {
	return obligation.RemainingDue()
}

type fixedStrategy struct{}

func (fixedStrategy) Type() models.AutopayType { return models.AutopayTypeFixed }

func (fixedStrategy) amount(obligation *models.PaymentObligation, _ *models.Loan, cfg *models.AutopayConfig) int64 {
	remaining := obligation.RemainingDue()
	if cfg.FixedAmountCents == nil {
		return remaining
	}
	return min(*cfg.FixedAmountCents, remaining)
}

// fullBalanceStrategy погашает весь остаток основного долга, а не только текущий взнос
type fullBalanceStrategy struct{}

func (fullBalanceStrategy) Type() models.AutopayType { return models.AutopayTypeFullBalance }

func (fullBalanceStrategy) amount(_ *models.PaymentObligation, loan *models.Loan, _ *models.AutopayConfig) int64 {
	return loan.OutstandingPrincipalCents
}

var strategies = map[models.AutopayType]Strategy{
	models.AutopayTypeMinimum:     minimumStrategy{},
	models.AutopayTypeScheduled:   scheduledStrategy{},
	models.AutopayTypeFixed:       fixedStrategy{},
	models.AutopayTypeFullBalance: fullBalanceStrategy{},
}

// StrategyFor возвращает стратегию для типа автоплатежа
func StrategyFor(t models.AutopayType) (Strategy, error) {
	s, ok := strategies[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAutopayType, t)
	}
	return s, nil
}

// CalculateAmount рассчитывает сумму списания в минимальных единицах валюты.
// Результат ограничивается max_amount_cents конфигурации. Значение <= 0 означает,
// что списывать нечего.
func CalculateAmount(cfg *models.AutopayConfig, obligation *models.PaymentObligation, loan *models.Loan) (int64, error) {
	strategy, err := StrategyFor(cfg.AutopayType)
	if err != nil {
		return 0, err
	}

	amount := strategy.amount(obligation, loan, cfg)
	if cfg.MaxAmountCents != nil && amount > *cfg.MaxAmountCents {
		amount = *cfg.MaxAmountCents
	}
	return amount, nil
}
