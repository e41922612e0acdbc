package services

import (
	"context"
	"time"

	"autopay/models"
)

// LedgerStore описывает хранилище, с которым работает процессор автоплатежей.
// Сервисный слой зависит от интерфейса, а не от конкретной реализации.
type LedgerStore interface {
	// ListEligibleConfigs возвращает активные конфигурации с активным кредитом и
	// числом ошибок меньше maxFailures, с ID больше afterID, по возрастанию ID.
	// Поле Loan должно быть заполнено.
	ListEligibleConfigs(ctx context.Context, afterID uint, limit, maxFailures int) ([]models.AutopayConfig, error)
	// FindOldestPayableObligation возвращает nil, nil, если подходящего обязательства нет.
	FindOldestPayableObligation(ctx context.Context, loanID uint, today time.Time) (*models.PaymentObligation, error)
	RecordFailure(ctx context.Context, configID uint, reason string, at time.Time, maxFailures int) (*models.AutopayConfig, error)
	CreateJobRunLog(ctx context.Context, log *models.JobRunLog) error
	// Transaction выполняет fn в одной транзакции. Ошибка fn откатывает все изменения.
	Transaction(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerTx операции, доступные внутри транзакции расчетов.
// Методы Lock* блокируют строку до конца транзакции.
type LedgerTx interface {
	// LockWalletByUserID возвращает nil, nil, если у пользователя нет кошелька.
	LockWalletByUserID(userID uint) (*models.Wallet, error)
	// FindTransactionByIdempotencyKey возвращает nil, nil, если записи нет.
	FindTransactionByIdempotencyKey(key string) (*models.WalletTransaction, error)
	LockObligation(id uint) (*models.PaymentObligation, error)
	LockLoan(id uint) (*models.Loan, error)
	// DebitWallet списывает amount, только если версия не изменилась и баланс
	// не станет отрицательным. false означает, что условие не выполнено.
	DebitWallet(walletID uint, amount, expectedVersion int64) (bool, error)
	AppendWalletTransaction(txn *models.WalletTransaction) error
	SaveObligation(obligation *models.PaymentObligation) error
	SaveLoan(loan *models.Loan) error
	MarkConfigSucceeded(configID uint, amount int64, at time.Time) error
}
