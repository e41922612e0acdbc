package services_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"autopay/models"
	"autopay/services"
)

// fakeStore хранилище в памяти для тестов сервисного слоя.
// Transaction откатывает все изменения, если fn вернула ошибку.
type fakeStore struct {
	mu sync.Mutex

	configs      map[uint]models.AutopayConfig
	loans        map[uint]models.Loan
	obligations  map[uint]models.PaymentObligation
	wallets      map[uint]models.Wallet
	transactions []models.WalletTransaction
	runLogs      []models.JobRunLog

	// failOn задает ошибку для операции внутри транзакции по имени метода
	failOn     map[string]error
	listErr    error
	runLogErr  error
	recordErr  error
	listCalls  int
	onList     func(call int)
	onFind     func(loanID uint)
	nextWallet uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		configs:     make(map[uint]models.AutopayConfig),
		loans:       make(map[uint]models.Loan),
		obligations: make(map[uint]models.PaymentObligation),
		wallets:     make(map[uint]models.Wallet),
		failOn:      make(map[string]error),
	}
}

func (s *fakeStore) addWallet(userID uint, balance int64) models.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextWallet++
	w := models.Wallet{ID: s.nextWallet, UserID: userID, AvailableBalanceCents: balance, Currency: "USD"}
	s.wallets[w.ID] = w
	return w
}

func (s *fakeStore) addLoan(loan models.Loan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loan.Status == "" {
		loan.Status = models.LoanStatusActive
	}
	s.loans[loan.ID] = loan
}

func (s *fakeStore) addObligation(o models.PaymentObligation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Status == "" {
		o.Status = models.ObligationStatusDue
	}
	s.obligations[o.ID] = o
}

func (s *fakeStore) addConfig(cfg models.AutopayConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Status == "" {
		cfg.Status = models.AutopayStatusActive
	}
	s.configs[cfg.ID] = cfg
}

func (s *fakeStore) wallet(userID uint) models.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.wallets {
		if w.UserID == userID {
			return w
		}
	}
	return models.Wallet{}
}

func (s *fakeStore) setBalance(userID uint, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range s.wallets {
		if w.UserID == userID {
			w.AvailableBalanceCents = balance
			s.wallets[id] = w
		}
	}
}

func (s *fakeStore) config(id uint) models.AutopayConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configs[id]
}

func (s *fakeStore) loan(id uint) models.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loans[id]
}

func (s *fakeStore) obligation(id uint) models.PaymentObligation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.obligations[id]
}

func (s *fakeStore) transactionsFor(obligationID uint) []models.WalletTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WalletTransaction
	for _, txn := range s.transactions {
		if txn.ReferenceID == obligationID {
			out = append(out, txn)
		}
	}
	return out
}

func (s *fakeStore) ListEligibleConfigs(_ context.Context, afterID uint, limit, maxFailures int) ([]models.AutopayConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.onList != nil {
		s.onList(s.listCalls)
	}
	if s.listErr != nil {
		return nil, s.listErr
	}

	ids := make([]uint, 0, len(s.configs))
	for id := range s.configs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []models.AutopayConfig
	for _, id := range ids {
		cfg := s.configs[id]
		loan, ok := s.loans[cfg.LoanID]
		if id <= afterID || cfg.Status != models.AutopayStatusActive ||
			cfg.ConsecutiveFailures >= maxFailures || !ok || loan.Status != models.LoanStatusActive {
			continue
		}
		cfg.Loan = loan
		out = append(out, cfg)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) FindOldestPayableObligation(_ context.Context, loanID uint, today time.Time) (*models.PaymentObligation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onFind != nil {
		s.onFind(loanID)
	}

	var candidates []models.PaymentObligation
	for _, o := range s.obligations {
		if o.LoanID == loanID && o.IsPayable() && !o.DueDate.After(today) {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].DueDate.Equal(candidates[j].DueDate) {
			return candidates[i].DueDate.Before(candidates[j].DueDate)
		}
		return candidates[i].ID < candidates[j].ID
	})
	return &candidates[0], nil
}

func (s *fakeStore) RecordFailure(_ context.Context, configID uint, reason string, at time.Time, maxFailures int) (*models.AutopayConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return nil, s.recordErr
	}

	cfg, ok := s.configs[configID]
	if !ok {
		return nil, fmt.Errorf("autopay config %d not found", configID)
	}
	cfg.ConsecutiveFailures++
	cfg.LastFailureReason = &reason
	cfg.LastFailureAt = &at
	if cfg.ConsecutiveFailures >= maxFailures {
		cfg.Status = models.AutopayStatusDisabled
		cfg.DisabledAt = &at
	}
	s.configs[configID] = cfg
	return &cfg, nil
}

func (s *fakeStore) CreateJobRunLog(_ context.Context, log *models.JobRunLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runLogErr != nil {
		return s.runLogErr
	}
	s.runLogs = append(s.runLogs, *log)
	return nil
}

func (s *fakeStore) Transaction(_ context.Context, fn func(tx services.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot()
	if err := fn(&fakeTx{s: s}); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type storeSnapshot struct {
	configs      map[uint]models.AutopayConfig
	loans        map[uint]models.Loan
	obligations  map[uint]models.PaymentObligation
	wallets      map[uint]models.Wallet
	transactions []models.WalletTransaction
}

func (s *fakeStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		configs:      make(map[uint]models.AutopayConfig, len(s.configs)),
		loans:        make(map[uint]models.Loan, len(s.loans)),
		obligations:  make(map[uint]models.PaymentObligation, len(s.obligations)),
		wallets:      make(map[uint]models.Wallet, len(s.wallets)),
		transactions: append([]models.WalletTransaction(nil), s.transactions...),
	}
	for k, v := range s.configs {
		snap.configs[k] = v
	}
	for k, v := range s.loans {
		snap.loans[k] = v
	}
	for k, v := range s.obligations {
		snap.obligations[k] = v
	}
	for k, v := range s.wallets {
		snap.wallets[k] = v
	}
	return snap
}

func (s *fakeStore) restore(snap storeSnapshot) {
	s.configs = snap.configs
	s.loans = snap.loans
	s.obligations = snap.obligations
	s.wallets = snap.wallets
	s.transactions = snap.transactions
}

// fakeTx работает с данными fakeStore под уже захваченной блокировкой
type fakeTx struct {
	s *fakeStore
}

func (t *fakeTx) LockWalletByUserID(userID uint) (*models.Wallet, error) {
	if err := t.s.failOn["LockWalletByUserID"]; err != nil {
		return nil, err
	}
	for _, w := range t.s.wallets {
		if w.UserID == userID {
			return &w, nil
		}
	}
	return nil, nil
}

func (t *fakeTx) FindTransactionByIdempotencyKey(key string) (*models.WalletTransaction, error) {
	for _, txn := range t.s.transactions {
		if txn.IdempotencyKey == key {
			return &txn, nil
		}
	}
	return nil, nil
}

func (t *fakeTx) LockObligation(id uint) (*models.PaymentObligation, error) {
	o, ok := t.s.obligations[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return &o, nil
}

func (t *fakeTx) LockLoan(id uint) (*models.Loan, error) {
	l, ok := t.s.loans[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return &l, nil
}

func (t *fakeTx) DebitWallet(walletID uint, amount, expectedVersion int64) (bool, error) {
	if err := t.s.failOn["DebitWallet"]; err != nil {
		return false, err
	}
	w, ok := t.s.wallets[walletID]
	if !ok || w.Version != expectedVersion || w.AvailableBalanceCents < amount {
		return false, nil
	}
	w.AvailableBalanceCents -= amount
	w.Version++
	t.s.wallets[walletID] = w
	return true, nil
}

func (t *fakeTx) AppendWalletTransaction(txn *models.WalletTransaction) error {
	for _, existing := range t.s.transactions {
		if existing.IdempotencyKey == txn.IdempotencyKey {
			return fmt.Errorf("duplicate idempotency key %s", txn.IdempotencyKey)
		}
	}
	txn.ID = uint(len(t.s.transactions) + 1)
	t.s.transactions = append(t.s.transactions, *txn)
	return nil
}

func (t *fakeTx) SaveObligation(obligation *models.PaymentObligation) error {
	if err := t.s.failOn["SaveObligation"]; err != nil {
		return err
	}
	t.s.obligations[obligation.ID] = *obligation
	return nil
}

func (t *fakeTx) SaveLoan(loan *models.Loan) error {
	if err := t.s.failOn["SaveLoan"]; err != nil {
		return err
	}
	t.s.loans[loan.ID] = *loan
	return nil
}

func (t *fakeTx) MarkConfigSucceeded(configID uint, amount int64, at time.Time) error {
	cfg, ok := t.s.configs[configID]
	if !ok {
		return fmt.Errorf("autopay config %d not found", configID)
	}
	cfg.ConsecutiveFailures = 0
	cfg.LastSuccessAt = &at
	cfg.LastPaymentAmountCents = &amount
	t.s.configs[configID] = cfg
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
