package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"autopay/services"
	"autopay/utils"
	"github.com/sirupsen/logrus"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// AutopayController обрабатывает запросы запуска автоплатежей
type AutopayController struct {
	runner  services.BatchRunner
	store   Pinger
	metrics *utils.Metrics
	log     *logrus.Logger
}

// NewAutopayController создает новый экземпляр AutopayController
func NewAutopayController(runner services.BatchRunner, store Pinger, metrics *utils.Metrics, log *logrus.Logger) *AutopayController {
	return &AutopayController{
		runner:  runner,
		store:   store,
		metrics: metrics,
		log:     log,
	}
}

// ProcessResponse ответ успешного запуска
type ProcessResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Stats   *services.AutopayStats `json:"stats"`
}

// ErrorResponse ответ при сбое запуска
type ErrorResponse struct {
	Success          bool   `json:"success"`
	Error            string `json:"error"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// ProcessAutopays запускает пакетную обработку автоплатежей
func (c *AutopayController) ProcessAutopays(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// Запуск не прерывается при отключении клиента
	ctx := context.WithoutCancel(r.Context())
	stats, err := c.runner.Run(ctx)
	utils.LogOperation(c.log, "process_autopays", start, err)

	if err != nil {
		processingTime := time.Since(start).Milliseconds()
		if stats != nil {
			processingTime = stats.ProcessingTimeMs
		}

		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrRunInProgress) {
			status = http.StatusConflict
		}
		writeJSON(w, status, ErrorResponse{
			Success:          false,
			Error:            err.Error(),
			ProcessingTimeMs: processingTime,
		})
		return
	}

	writeJSON(w, http.StatusOK, ProcessResponse{
		Success: true,
		Message: "Autopay processing completed",
		Stats:   stats,
	})
}

// GetMetrics возвращает снимок метрик процессора
func (c *AutopayController) GetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.metrics.GetMetricsSnapshot())
}

// Health проверяет доступность базы данных
func (c *AutopayController) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		c.log.WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
