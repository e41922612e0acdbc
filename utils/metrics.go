package utils

import (
	"sync"
	"time"
)

// Metrics содержит метрики процессора автоплатежей
type Metrics struct {
	mu sync.RWMutex

	// Метрики запросов
	TotalRequests   int64
	FailedRequests  int64
	RequestLatency  time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time

	// Метрики запусков
	TotalRuns        int64
	FailedRuns       int64
	LastRunTime      time.Time
	LastRunDuration  time.Duration
	Settlements      int64
	SettlementErrors int64
	Skipped          int64
	AmountSettled    int64
	AwardFailures    int64

	// Метрики ошибок
	ErrorCount    int64
	LastErrorTime time.Time
	ErrorTypes    map[string]int64
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// NewMetrics создает пустой набор метрик
func NewMetrics() *Metrics {
	return &Metrics{
		ErrorTypes: make(map[string]int64),
	}
}

// GetMetrics возвращает общий экземпляр метрик процесса
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics()
	})
	return metrics
}

// RecordRequest записывает метрики HTTP-запроса
func (m *Metrics) RecordRequest(duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	m.RequestLatency += duration
	m.AverageLatency = m.RequestLatency / time.Duration(m.TotalRequests)
	m.LastRequestTime = time.Now()
	if failed {
		m.FailedRequests++
	}
}

// RecordRun записывает итоги пакетного запуска
func (m *Metrics) RecordRun(duration time.Duration, successful, failed, skipped int, amount int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRuns++
	m.LastRunTime = time.Now()
	m.LastRunDuration = duration
	m.Settlements += int64(successful)
	m.SettlementErrors += int64(failed)
	m.Skipped += int64(skipped)
	m.AmountSettled += amount
	if err != nil {
		m.FailedRuns++
		m.recordError(err)
	}
}

// RecordAwardFailure учитывает неудачный запрос начисления репутации
func (m *Metrics) RecordAwardFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AwardFailures++
}

func (m *Metrics) recordError(err error) {
	m.ErrorCount++
	m.LastErrorTime = time.Now()

	errorType := "unknown"
	if err != nil {
		errorType = err.Error()
	}
	m.ErrorTypes[errorType]++
}

// GetMetricsSnapshot возвращает снимок текущих метрик
func (m *Metrics) GetMetricsSnapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errorTypes := make(map[string]int64, len(m.ErrorTypes))
	for k, v := range m.ErrorTypes {
		errorTypes[k] = v
	}

	return map[string]interface{}{
		"total_requests":       m.TotalRequests,
		"failed_requests":      m.FailedRequests,
		"average_latency_ms":   m.AverageLatency.Milliseconds(),
		"total_runs":           m.TotalRuns,
		"failed_runs":          m.FailedRuns,
		"last_run_time":        m.LastRunTime,
		"last_run_duration_ms": m.LastRunDuration.Milliseconds(),
		"settlements":          m.Settlements,
		"settlement_errors":    m.SettlementErrors,
		"skipped":              m.Skipped,
		"amount_settled":       m.AmountSettled,
		"award_failures":       m.AwardFailures,
		"error_count":          m.ErrorCount,
		"last_error_time":      m.LastErrorTime,
		"error_types":          errorTypes,
	}
}

// ResetMetrics сбрасывает все метрики
func (m *Metrics) ResetMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests = 0
	m.FailedRequests = 0
	m.RequestLatency = 0
	m.AverageLatency = 0
	m.TotalRuns = 0
	m.FailedRuns = 0
	m.Settlements = 0
	m.SettlementErrors = 0
	m.Skipped = 0
	m.AmountSettled = 0
	m.AwardFailures = 0
	m.ErrorCount = 0
	m.ErrorTypes = make(map[string]int64)
}
