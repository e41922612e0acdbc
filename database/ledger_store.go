package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autopay/models"
	"autopay/services"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerStore реализация хранилища автоплатежей на gorm
type LedgerStore struct {
	db *gorm.DB
}

// NewLedgerStore создает новый экземпляр LedgerStore
func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

var _ services.LedgerStore = (*LedgerStore)(nil)

// ListEligibleConfigs возвращает страницу активных конфигураций с активным кредитом
func (s *LedgerStore) ListEligibleConfigs(ctx context.Context, afterID uint, limit, maxFailures int) ([]models.AutopayConfig, error) {
	var configs []models.AutopayConfig
	err := s.db.WithContext(ctx).
		Joins("JOIN loans ON loans.id = autopay_configs.loan_id").
		Where("autopay_configs.status = ?", models.AutopayStatusActive).
		Where("autopay_configs.consecutive_failures < ?", maxFailures).
		Where("loans.status = ?", models.LoanStatusActive).
		Where("autopay_configs.id > ?", afterID).
		Order("autopay_configs.id ASC").
		Limit(limit).
		Preload("Loan").
		Find(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

// FindOldestPayableObligation возвращает самое раннее обязательство со сроком не позже today
func (s *LedgerStore) FindOldestPayableObligation(ctx context.Context, loanID uint, today time.Time) (*models.PaymentObligation, error) {
	var obligation models.PaymentObligation
	err := s.db.WithContext(ctx).
		Where("loan_id = ? AND status IN ? AND due_date <= ?", loanID, models.PayableObligationStatuses, today).
		Order("due_date ASC, id ASC").
		Take(&obligation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &obligation, nil
}

// RecordFailure увеличивает счетчик ошибок одним UPDATE и отключает конфигурацию на пороге
func (s *LedgerStore) RecordFailure(ctx context.Context, configID uint, reason string, at time.Time, maxFailures int) (*models.AutopayConfig, error) {
	var cfg models.AutopayConfig
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.AutopayConfig{}).
			Where("id = ?", configID).
			UpdateColumns(map[string]interface{}{
				"consecutive_failures": gorm.Expr("consecutive_failures + 1"),
				"last_failure_reason":  reason,
				"last_failure_at":      at,
				"status":               gorm.Expr("CASE WHEN consecutive_failures + 1 >= ? THEN ? ELSE status END", maxFailures, models.AutopayStatusDisabled),
				"disabled_at":          gorm.Expr("CASE WHEN consecutive_failures + 1 >= ? THEN ? ELSE disabled_at END", maxFailures, at),
				"updated_at":           at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("autopay config %d: %w", configID, gorm.ErrRecordNotFound)
		}
		return tx.Take(&cfg, configID).Error
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CreateJobRunLog сохраняет сводку запуска
func (s *LedgerStore) CreateJobRunLog(ctx context.Context, log *models.JobRunLog) error {
	return s.db.WithContext(ctx).Create(log).Error
}

// Transaction выполняет fn в транзакции базы данных
func (s *LedgerStore) Transaction(ctx context.Context, fn func(tx services.LedgerTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerTx{db: tx})
	})
}

// ledgerTx операции внутри транзакции расчетов
type ledgerTx struct {
	db *gorm.DB
}

func (t *ledgerTx) forUpdate() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *ledgerTx) LockWalletByUserID(userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := t.forUpdate().Where("user_id = ?", userID).Take(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (t *ledgerTx) FindTransactionByIdempotencyKey(key string) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := t.db.Where("idempotency_key = ?", key).Take(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (t *ledgerTx) LockObligation(id uint) (*models.PaymentObligation, error) {
	var obligation models.PaymentObligation
	if err := t.forUpdate().Take(&obligation, id).Error; err != nil {
		return nil, err
	}
	return &obligation, nil
}

func (t *ledgerTx) LockLoan(id uint) (*models.Loan, error) {
	var loan models.Loan
	if err := t.forUpdate().Take(&loan, id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

// DebitWallet выполняет условное списание: баланс не уходит в минус,
// версия защищает от параллельного изменения
func (t *ledgerTx) DebitWallet(walletID uint, amount, expectedVersion int64) (bool, error) {
	res := t.db.Model(&models.Wallet{}).
		Where("id = ? AND version = ? AND available_balance_cents >= ?", walletID, expectedVersion, amount).
		UpdateColumns(map[string]interface{}{
			"available_balance_cents": gorm.Expr("available_balance_cents - ?", amount),
			"version":                 gorm.Expr("version + 1"),
			"updated_at":              time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *ledgerTx) AppendWalletTransaction(txn *models.WalletTransaction) error {
	return t.db.Create(txn).Error
}

func (t *ledgerTx) SaveObligation(obligation *models.PaymentObligation) error {
	return t.db.Model(obligation).
		Select("total_paid_cents", "status", "paid_at", "updated_at").
		Updates(obligation).Error
}

func (t *ledgerTx) SaveLoan(loan *models.Loan) error {
	return t.db.Model(loan).
		Select("outstanding_principal_cents", "status", "closed_at", "updated_at").
		Updates(loan).Error
}

func (t *ledgerTx) MarkConfigSucceeded(configID uint, amount int64, at time.Time) error {
	return t.db.Model(&models.AutopayConfig{}).
		Where("id = ?", configID).
		UpdateColumns(map[string]interface{}{
			"consecutive_failures":      0,
			"last_success_at":           at,
			"last_payment_amount_cents": amount,
			"updated_at":                at,
		}).Error
}
