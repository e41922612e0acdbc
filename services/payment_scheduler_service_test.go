package services_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"autopay/services"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	calls atomic.Int32
}

func (r *countingRunner) Run(context.Context) (*services.AutopayStats, error) {
	r.calls.Add(1)
	return &services.AutopayStats{Results: []services.AutopayResult{}}, nil
}

func TestNewPaymentSchedulerService_InvalidSchedule(t *testing.T) {
	log, _ := test.NewNullLogger()

	_, err := services.NewPaymentSchedulerService(&countingRunner{}, "every morning", time.UTC, log)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid autopay schedule")
}

func TestPaymentSchedulerService_StartStop(t *testing.T) {
	log, _ := test.NewNullLogger()
	loc := time.FixedZone("UTC-5", -5*60*60)

	scheduler, err := services.NewPaymentSchedulerService(&countingRunner{}, "0 6 * * *", loc, log)
	require.NoError(t, err)

	require.NoError(t, scheduler.Start())
	next := scheduler.NextRun().In(loc)
	<-scheduler.Stop().Done()

	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))
}

func TestPaymentSchedulerService_RunNow(t *testing.T) {
	log, _ := test.NewNullLogger()
	runner := &countingRunner{}

	scheduler, err := services.NewPaymentSchedulerService(runner, "0 6 * * *", time.UTC, log)
	require.NoError(t, err)

	stats, err := scheduler.RunNow(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, stats)
	assert.Equal(t, int32(1), runner.calls.Load())
}
