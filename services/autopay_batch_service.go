package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"autopay/models"
	"autopay/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// JobName имя задачи в журнале запусков
const JobName = "autopay-processor"

// AutopayResult итог обработки одной конфигурации
type AutopayResult struct {
	ConfigID     uint   `json:"config_id"`
	LoanID       uint   `json:"loan_id"`
	UserID       uint   `json:"user_id"`
	ObligationID *uint  `json:"obligation_id"`
	AmountPaid   int64  `json:"amount_paid"`
	AutopayType  string `json:"autopay_type"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

// AutopayStats сводная статистика пакетного запуска
type AutopayStats struct {
	TotalAutopays        int             `json:"total_autopays"`
	Successful           int             `json:"successful"`
	Failed               int             `json:"failed"`
	Skipped              int             `json:"skipped"`
	TotalAmountProcessed int64           `json:"total_amount_processed"`
	ProcessingTimeMs     int64           `json:"processing_time_ms"`
	Results              []AutopayResult `json:"results"`
}

// RunStatus вычисляет итоговый статус запуска для журнала
func (s *AutopayStats) RunStatus() models.JobRunStatus {
	switch {
	case s.Failed == 0:
		return models.JobRunStatusSuccess
	case s.Successful > 0:
		return models.JobRunStatusPartial
	default:
		return models.JobRunStatusFailed
	}
}

// BatchOptions параметры пакетного запуска
type BatchOptions struct {
	PageSize     int
	MaxFailures  int
	Location     *time.Location
	AwardTimeout time.Duration
	// Now источник текущего времени; по умолчанию time.Now
	Now func() time.Time
}

// AutopayBatchService обходит подходящие конфигурации автоплатежей и выполняет списания
type AutopayBatchService struct {
	store      LedgerStore
	selector   *ObligationSelector
	settlement *SettlementService
	tracker    *FailureTracker
	validator  *validator.Validate
	log        *logrus.Logger
	metrics    *utils.Metrics
	pageSize   int
	location   *time.Location
	now        func() time.Time

	running sync.Mutex
}

// NewAutopayBatchService создает новый экземпляр AutopayBatchService
func NewAutopayBatchService(store LedgerStore, awarder ReputationAwarder, log *logrus.Logger, metrics *utils.Metrics, opts BatchOptions) *AutopayBatchService {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 3
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	tracker := NewFailureTracker(store, opts.MaxFailures, log)
	return &AutopayBatchService{
		store:      store,
		selector:   NewObligationSelector(store),
		settlement: NewSettlementService(store, tracker, awarder, opts.AwardTimeout, log, metrics),
		tracker:    tracker,
		validator:  validator.New(),
		log:        log,
		metrics:    metrics,
		pageSize:   opts.PageSize,
		location:   opts.Location,
		now:        opts.Now,
	}
}

// Run выполняет один пакетный запуск. Ошибка возвращается только при сбое,
// не позволяющем продолжить обход; ошибки отдельных конфигураций попадают в статистику.
func (s *AutopayBatchService) Run(ctx context.Context) (*AutopayStats, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	startedAt := s.now()
	runID := uuid.New()
	log := s.log.WithField("run_id", runID.String())
	today := startOfDay(startedAt, s.location)

	stats := &AutopayStats{Results: []AutopayResult{}}
	log.WithField("date", today.Format(time.DateOnly)).Info("autopay run started")

	runErr := s.processAll(ctx, log, today, stats)

	stats.ProcessingTimeMs = s.now().Sub(startedAt).Milliseconds()
	s.writeRunLog(ctx, log, runID, startedAt, stats, runErr)
	s.metrics.RecordRun(time.Duration(stats.ProcessingTimeMs)*time.Millisecond, stats.Successful, stats.Failed, stats.Skipped, stats.TotalAmountProcessed, runErr)

	if runErr != nil {
		log.WithError(runErr).Error("autopay run aborted")
		return stats, runErr
	}

	log.WithFields(logrus.Fields{
		"total":        stats.TotalAutopays,
		"successful":   stats.Successful,
		"failed":       stats.Failed,
		"skipped":      stats.Skipped,
		"total_amount": stats.TotalAmountProcessed,
		"duration_ms":  stats.ProcessingTimeMs,
	}).Info("autopay run completed")
	return stats, nil
}

// processAll читает конфигурации страницами по возрастанию ID
func (s *AutopayBatchService) processAll(ctx context.Context, log *logrus.Entry, today time.Time, stats *AutopayStats) error {
	var cursor uint
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("autopay run interrupted: %w", err)
		}

		configs, err := s.store.ListEligibleConfigs(ctx, cursor, s.pageSize, s.tracker.MaxFailures())
		if err != nil {
			return fmt.Errorf("failed to load eligible autopay configs: %w", err)
		}

		for i := range configs {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("autopay run interrupted: %w", err)
			}
			s.processConfig(ctx, log, &configs[i], today, stats)
		}

		if len(configs) < s.pageSize {
			return nil
		}
		cursor = configs[len(configs)-1].ID
	}
}

// processConfig обрабатывает одну конфигурацию и учитывает результат в статистике
func (s *AutopayBatchService) processConfig(ctx context.Context, log *logrus.Entry, cfg *models.AutopayConfig, today time.Time, stats *AutopayStats) {
	stats.TotalAutopays++

	result := AutopayResult{
		ConfigID:    cfg.ID,
		LoanID:      cfg.LoanID,
		UserID:      cfg.Loan.UserID,
		AutopayType: string(cfg.AutopayType),
	}
	entry := log.WithFields(logrus.Fields{
		"config_id": cfg.ID,
		"loan_id":   cfg.LoanID,
	})

	err := s.settleConfig(ctx, cfg, today, &result)
	switch {
	case err == nil:
		result.Success = true
		stats.Successful++
		stats.TotalAmountProcessed += result.AmountPaid
		stats.Results = append(stats.Results, result)
		entry.WithField("amount", result.AmountPaid).Info("autopay settled")

	case IsSkip(err):
		stats.Skipped++
		entry.WithField("reason", err.Error()).Debug("autopay skipped")

	default:
		result.Error = err.Error()
		stats.Failed++
		stats.Results = append(stats.Results, result)
		entry.WithError(err).Warn("autopay failed")

		if _, trackErr := s.tracker.RecordFailure(ctx, cfg, err, s.now()); trackErr != nil {
			entry.WithError(trackErr).Error("failed to record autopay failure")
		}
	}
}

// settleConfig выбирает обязательство и выполняет списание.
// Паника внутри обработки превращается в ошибку этой конфигурации.
func (s *AutopayBatchService) settleConfig(ctx context.Context, cfg *models.AutopayConfig, today time.Time, result *AutopayResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	if err := s.validator.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	obligation, err := s.selector.Select(ctx, cfg, today)
	if err != nil {
		return err
	}
	obligationID := obligation.ID
	result.ObligationID = &obligationID

	receipt, err := s.settlement.Settle(ctx, SettlementRequest{
		Config:     *cfg,
		Loan:       cfg.Loan,
		Obligation: *obligation,
		Now:        s.now(),
		Today:      today,
	})
	if err != nil {
		return err
	}

	result.AmountPaid = receipt.Transaction.AmountCents
	return nil
}

// writeRunLog сохраняет сводку запуска. Ошибка записи журнала не влияет на результат.
func (s *AutopayBatchService) writeRunLog(ctx context.Context, log *logrus.Entry, runID uuid.UUID, startedAt time.Time, stats *AutopayStats, runErr error) {
	status := stats.RunStatus()
	var errorMessage *string
	if runErr != nil {
		status = models.JobRunStatusFailed
		msg := runErr.Error()
		errorMessage = &msg
	}

	details, err := json.Marshal(stats.Results)
	if err != nil {
		log.WithError(err).Warn("failed to encode run details")
		details = nil
	}

	runLog := &models.JobRunLog{
		ID:               runID.String(),
		JobName:          JobName,
		Status:           status,
		StartedAt:        startedAt,
		CompletedAt:      s.now(),
		TotalCount:       stats.TotalAutopays,
		SuccessCount:     stats.Successful,
		FailedCount:      stats.Failed,
		SkippedCount:     stats.Skipped,
		TotalAmountCents: stats.TotalAmountProcessed,
		ProcessingTimeMs: stats.ProcessingTimeMs,
		ErrorMessage:     errorMessage,
		Details:          datatypes.JSON(details),
	}

	// Журнал пишется и после отмены контекста запуска
	if err := s.store.CreateJobRunLog(context.WithoutCancel(ctx), runLog); err != nil {
		log.WithError(err).Error("failed to write job run log")
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
