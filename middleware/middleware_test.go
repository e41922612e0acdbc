package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autopay/middleware"
	"autopay/utils"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"success":true}`))
})

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	handler := middleware.CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/autopay/process", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.False(t, called)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "authorization")
}

func TestCORSMiddleware_PassesThrough(t *testing.T) {
	rr := httptest.NewRecorder()
	middleware.CORSMiddleware(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/autopay/process", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, `{"success":true}`, rr.Body.String())
}

func TestRateLimit(t *testing.T) {
	limiter := utils.NewRateLimiter(2, time.Minute)
	handler := middleware.RateLimit(limiter)(okHandler)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/autopay/process", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
	}

	req := httptest.NewRequest(http.MethodPost, "/api/autopay/process", nil)
	req.RemoteAddr = "10.0.0.1:5001"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// Другой клиент не затронут
	other := httptest.NewRequest(http.MethodPost, "/api/autopay/process", nil)
	other.Header.Set("X-Forwarded-For", "192.168.1.7, 10.0.0.1")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, other)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRecovery(t *testing.T) {
	log, hook := test.NewNullLogger()
	handler := middleware.Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/autopay/process", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, rr.Body.String())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "boom", hook.LastEntry().Data["panic"])
}

func TestLoggingMiddleware(t *testing.T) {
	log, hook := test.NewNullLogger()
	metrics := utils.NewMetrics()

	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	rr := httptest.NewRecorder()
	middleware.LoggingMiddleware(log, metrics)(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, http.StatusOK, hook.LastEntry().Data["status"])
	assert.Equal(t, "/healthz", hook.LastEntry().Data["path"])

	rr = httptest.NewRecorder()
	middleware.LoggingMiddleware(log, metrics)(failing).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/autopay/process", nil))
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	snapshot := metrics.GetMetricsSnapshot()
	assert.Equal(t, int64(2), snapshot["total_requests"])
	assert.Equal(t, int64(1), snapshot["failed_requests"])
}
