package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

//go:generate mockgen -destination=mocks/mock_reputation_service.go -package=mocks -source=reputation_service.go

// AwardRequest данные о своевременном погашении для начисления XnScore
type AwardRequest struct {
	UserID       uint      `json:"user_id"`
	LoanID       uint      `json:"loan_id"`
	ObligationID uint      `json:"obligation_id"`
	AmountCents  int64     `json:"amount_cents"`
	PaidAt       time.Time `json:"paid_at"`
}

// ReputationAwarder начисляет баллы репутации. Вызов выполняется по возможности:
// его ошибка не влияет на результат расчетов.
type ReputationAwarder interface {
	AwardOnTimePayment(ctx context.Context, req AwardRequest) error
}

// XnScoreClient HTTP-клиент сервиса XnScore
type XnScoreClient struct {
	url        string
	serviceKey string
	client     *http.Client
	log        *logrus.Logger
}

// NewXnScoreClient создает клиента XnScore с ограничением времени запроса
func NewXnScoreClient(url, serviceKey string, timeout time.Duration, log *logrus.Logger) *XnScoreClient {
	return &XnScoreClient{
		url:        url,
		serviceKey: serviceKey,
		client: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type awardPayload struct {
	Event string `json:"event"`
	AwardRequest
}

// AwardOnTimePayment отправляет событие своевременного платежа
func (c *XnScoreClient) AwardOnTimePayment(ctx context.Context, req AwardRequest) error {
	body, err := json.Marshal(awardPayload{Event: "on_time_payment", AwardRequest: req})
	if err != nil {
		return fmt.Errorf("failed to encode award request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create award request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("award request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("award request failed: unexpected status code %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	c.log.WithFields(logrus.Fields{
		"user_id":       req.UserID,
		"obligation_id": req.ObligationID,
	}).Debug("xnscore award accepted")
	return nil
}

// NoopAwarder используется, когда адрес XnScore не настроен
type NoopAwarder struct{}

func (NoopAwarder) AwardOnTimePayment(context.Context, AwardRequest) error {
	return nil
}
