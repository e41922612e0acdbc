package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"autopay/controllers"
	"autopay/middleware"
	"autopay/services"
	"autopay/utils"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serviceKey = []byte("test-service-role-key")

type stubRunner struct {
	calls int
}

func (r *stubRunner) Run(context.Context) (*services.AutopayStats, error) {
	r.calls++
	return &services.AutopayStats{Results: []services.AutopayResult{}}, nil
}

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

func newTestRouter(runner *stubRunner) http.Handler {
	log, _ := test.NewNullLogger()
	metrics := utils.NewMetrics()
	controller := controllers.NewAutopayController(runner, stubPinger{}, metrics, log)
	return newRouter(controller, serviceKey, utils.NewRateLimiter(100, time.Minute), log, metrics)
}

func TestRouter_PreflightNeedsNoAuth(t *testing.T) {
	runner := &stubRunner{}
	req := httptest.NewRequest(http.MethodOptions, "/api/autopay/process", nil)

	rr := httptest.NewRecorder()
	newTestRouter(runner).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, runner.calls)
}

func TestRouter_ProcessRequiresServiceToken(t *testing.T) {
	runner := &stubRunner{}
	req := httptest.NewRequest(http.MethodPost, "/api/autopay/process", nil)

	rr := httptest.NewRecorder()
	newTestRouter(runner).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, runner.calls)
}

func TestRouter_ProcessWithServiceToken(t *testing.T) {
	runner := &stubRunner{}
	token, err := middleware.IssueServiceToken(serviceKey, "scheduler", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/autopay/process", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	newTestRouter(runner).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":true`)
	assert.Equal(t, 1, runner.calls)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	token, err := middleware.IssueServiceToken(serviceKey, "scheduler", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/autopay/process", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	newTestRouter(&stubRunner{}).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRouter_Healthz(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(&stubRunner{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://autopay@localhost:5432/autopay?sslmode=disable")
	t.Setenv("SERVICE_ROLE_KEY", string(serviceKey))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--subject", "cron-job", "--ttl", "5m"})
	require.NoError(t, cmd.Execute())

	claims, err := middleware.ParseServiceToken(serviceKey, strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, middleware.ServiceRole, claims.Role)
	assert.Equal(t, "cron-job", claims.Subject)
}

func TestTokenCommand_MissingConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SERVICE_ROLE_KEY", "")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"token"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is required")
}
