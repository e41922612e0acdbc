package services

import (
	"context"
	"fmt"
	"time"

	"autopay/models"
	"autopay/utils"
	"github.com/sirupsen/logrus"
)

const defaultAwardTimeout = 5 * time.Second

// AwardOutcome результат попытки начисления репутации после расчета
type AwardOutcome string

const (
	AwardNotRequested AwardOutcome = "not_requested"
	AwardGranted      AwardOutcome = "awarded"
	AwardFailed       AwardOutcome = "failed"
)

// SettlementRequest данные для списания по одной конфигурации автоплатежа
type SettlementRequest struct {
	Config     models.AutopayConfig
	Loan       models.Loan
	Obligation models.PaymentObligation
	Now        time.Time
	// Today начало текущих суток расчетов; входит в ключ идемпотентности
	Today time.Time
}

// SettlementReceipt результат успешного расчета
type SettlementReceipt struct {
	Transaction         models.WalletTransaction
	Obligation          models.PaymentObligation
	Loan                models.Loan
	AppliedToObligation int64
	Award               AwardOutcome
}

// SettlementService списывает средства с кошелька и погашает обязательство
type SettlementService struct {
	store        LedgerStore
	tracker      *FailureTracker
	awarder      ReputationAwarder
	awardTimeout time.Duration
	log          *logrus.Logger
	metrics      *utils.Metrics
}

// NewSettlementService создает новый экземпляр SettlementService
func NewSettlementService(store LedgerStore, tracker *FailureTracker, awarder ReputationAwarder, awardTimeout time.Duration, log *logrus.Logger, metrics *utils.Metrics) *SettlementService {
	if awarder == nil {
		awarder = NoopAwarder{}
	}
	if awardTimeout <= 0 {
		awardTimeout = defaultAwardTimeout
	}
	return &SettlementService{
		store:        store,
		tracker:      tracker,
		awarder:      awarder,
		awardTimeout: awardTimeout,
		log:          log,
		metrics:      metrics,
	}
}

// IdempotencyKey ключ расчета: одно списание на обязательство за сутки запуска
func IdempotencyKey(configID, obligationID uint, dueDate, today time.Time) string {
	return fmt.Sprintf("autopay:%d:%d:%s:%s", configID, obligationID, dueDate.Format(time.DateOnly), today.Format(time.DateOnly))
}

// Settle выполняет списание и обновление кошелька, журнала, обязательства и кредита
// в одной транзакции. Сумма рассчитывается по заблокированным строкам.
// Начисление репутации выполняется после фиксации.
func (s *SettlementService) Settle(ctx context.Context, req SettlementRequest) (*SettlementReceipt, error) {
	key := IdempotencyKey(req.Config.ID, req.Obligation.ID, req.Obligation.DueDate, req.Today)
	receipt := &SettlementReceipt{Award: AwardNotRequested}

	err := s.store.Transaction(ctx, func(tx LedgerTx) error {
		// Блокируем кошелек первым: все расчеты одного пользователя выполняются по очереди
		wallet, err := tx.LockWalletByUserID(req.Loan.UserID)
		if err != nil {
			return fmt.Errorf("failed to load wallet: %w", err)
		}
		if wallet == nil {
			return fmt.Errorf("%w: user %d", ErrWalletNotFound, req.Loan.UserID)
		}

		existing, err := tx.FindTransactionByIdempotencyKey(key)
		if err != nil {
			return fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("%w: wallet transaction %d", ErrAlreadySettled, existing.ID)
		}

		obligation, err := tx.LockObligation(req.Obligation.ID)
		if err != nil {
			return fmt.Errorf("failed to load obligation %d: %w", req.Obligation.ID, err)
		}
		if !obligation.IsPayable() {
			return fmt.Errorf("%w: obligation %d is %s", ErrObligationNotPayable, obligation.ID, obligation.Status)
		}

		loan, err := tx.LockLoan(req.Loan.ID)
		if err != nil {
			return fmt.Errorf("failed to load loan %d: %w", req.Loan.ID, err)
		}
		if loan.Status != models.LoanStatusActive {
			return fmt.Errorf("%w: loan %d is %s", ErrLoanNotActive, loan.ID, loan.Status)
		}

		amount, err := CalculateAmount(&req.Config, obligation, loan)
		if err != nil {
			return err
		}
		if amount <= 0 {
			return fmt.Errorf("%w: obligation %d", ErrNothingOwed, obligation.ID)
		}

		if wallet.AvailableBalanceCents < amount {
			return fmt.Errorf("%w: available %d, required %d", ErrInsufficientBalance, wallet.AvailableBalanceCents, amount)
		}

		debited, err := tx.DebitWallet(wallet.ID, amount, wallet.Version)
		if err != nil {
			return fmt.Errorf("failed to debit wallet %d: %w", wallet.ID, err)
		}
		if !debited {
			return fmt.Errorf("%w: wallet %d changed during settlement", ErrInsufficientBalance, wallet.ID)
		}

		txn := &models.WalletTransaction{
			WalletID:           wallet.ID,
			UserID:             loan.UserID,
			Type:               models.WalletTransactionAutopayPayment,
			Direction:          models.DirectionOut,
			AmountCents:        amount,
			BalanceBeforeCents: wallet.AvailableBalanceCents,
			BalanceAfterCents:  wallet.AvailableBalanceCents - amount,
			ReferenceType:      models.ReferenceTypePaymentObligation,
			ReferenceID:        obligation.ID,
			IdempotencyKey:     key,
			Description:        fmt.Sprintf("Autopay (%s) for loan %d", req.Config.AutopayType, loan.ID),
			CreatedAt:          req.Now,
		}
		if err := tx.AppendWalletTransaction(txn); err != nil {
			return fmt.Errorf("failed to append wallet transaction: %w", err)
		}

		// Переплата по full_balance не увеличивает total_paid выше total_due,
		// но целиком уменьшает основной долг
		applied := obligation.ApplyPayment(amount, req.Now, req.Today)
		if err := tx.SaveObligation(obligation); err != nil {
			return fmt.Errorf("failed to update obligation %d: %w", obligation.ID, err)
		}

		loan.ApplyPayment(amount, req.Now)
		if err := tx.SaveLoan(loan); err != nil {
			return fmt.Errorf("failed to update loan %d: %w", loan.ID, err)
		}

		if err := s.tracker.RecordSuccess(tx, req.Config.ID, amount, req.Now); err != nil {
			return err
		}

		receipt.Transaction = *txn
		receipt.Obligation = *obligation
		receipt.Loan = *loan
		receipt.AppliedToObligation = applied
		return nil
	})
	if err != nil {
		return nil, err
	}

	if receipt.Obligation.Status == models.ObligationStatusPaid {
		receipt.Award = s.requestAward(ctx, receipt)
	}
	return receipt, nil
}

// requestAward запрашивает начисление XnScore. Ошибка только логируется.
// Зависший вызов не задерживает расчеты дольше awardTimeout.
func (s *SettlementService) requestAward(ctx context.Context, receipt *SettlementReceipt) AwardOutcome {
	awardCtx, cancel := context.WithTimeout(ctx, s.awardTimeout)
	defer cancel()

	req := AwardRequest{
		UserID:       receipt.Loan.UserID,
		LoanID:       receipt.Loan.ID,
		ObligationID: receipt.Obligation.ID,
		AmountCents:  receipt.Transaction.AmountCents,
		PaidAt:       receipt.Transaction.CreatedAt,
	}

	done := make(chan error, 1)
	go func() {
		done <- s.awarder.AwardOnTimePayment(awardCtx, req)
	}()

	var err error
	select {
	case err = <-done:
	case <-awardCtx.Done():
		err = fmt.Errorf("award timed out: %w", awardCtx.Err())
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"user_id":       receipt.Loan.UserID,
			"obligation_id": receipt.Obligation.ID,
		}).WithError(err).Warn("xnscore award failed")
		s.metrics.RecordAwardFailure()
		return AwardFailed
	}
	return AwardGranted
}
