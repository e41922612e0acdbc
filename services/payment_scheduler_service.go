package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// BatchRunner выполняет один пакетный запуск автоплатежей
type BatchRunner interface {
	Run(ctx context.Context) (*AutopayStats, error)
}

// PaymentSchedulerService запускает обработку автоплатежей по расписанию
type PaymentSchedulerService struct {
	cron   *cron.Cron
	runner BatchRunner
	spec   string
	log    *logrus.Logger
}

// NewPaymentSchedulerService создает планировщик с расписанием в формате cron
// (пять полей, например "0 6 * * *" означает ежедневно в 06:00)
func NewPaymentSchedulerService(runner BatchRunner, spec string, loc *time.Location, log *logrus.Logger) (*PaymentSchedulerService, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid autopay schedule %q: %w", spec, err)
	}

	cronLogger := cron.PrintfLogger(log)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &PaymentSchedulerService{
		cron:   c,
		runner: runner,
		spec:   spec,
		log:    log,
	}, nil
}

// Start регистрирует задачу и запускает планировщик
func (s *PaymentSchedulerService) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runScheduled); err != nil {
		return fmt.Errorf("failed to schedule autopay run: %w", err)
	}
	s.cron.Start()
	s.log.WithField("schedule", s.spec).Info("autopay scheduler started")
	return nil
}

// Stop останавливает планировщик и ждет завершения текущего запуска
func (s *PaymentSchedulerService) Stop() context.Context {
	ctx := s.cron.Stop()
	s.log.Info("autopay scheduler stopped")
	return ctx
}

// NextRun возвращает время следующего запуска
func (s *PaymentSchedulerService) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunNow выполняет запуск немедленно
func (s *PaymentSchedulerService) RunNow(ctx context.Context) (*AutopayStats, error) {
	return s.runner.Run(ctx)
}

func (s *PaymentSchedulerService) runScheduled() {
	if _, err := s.runner.Run(context.Background()); err != nil {
		s.log.WithError(err).Error("scheduled autopay run failed")
	}
}
