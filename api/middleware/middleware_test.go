package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nospicy/possync/pkg/config"
	"github.com/nospicy/possync/pkg/logger"
)

func triggerConfig() config.TriggerConfig {
	return config.TriggerConfig{
		Secret:               "s3cret",
		SchedulerHeader:      "X-Vercel-Cron",
		SchedulerHeaderValue: "1",
		UserAgentContains:    "vercel-cron",
	}
}

func serveTrigger(cfg config.TriggerConfig, req *http.Request) (*httptest.ResponseRecorder, string, bool) {
	var (
		reached bool
		via     string
	)
	h := TriggerAuth(cfg, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		via = TriggerAuthFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, via, reached
}

func TestTriggerAuth(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TriggerConfig
		target  string
		header  map[string]string
		status  int
		via     string
		reached bool
	}{
		{name: "secret", cfg: triggerConfig(), target: "/sync?secret=s3cret", status: http.StatusNoContent, via: AuthSecret, reached: true},
		{name: "wrong secret", cfg: triggerConfig(), target: "/sync?secret=nope", status: http.StatusForbidden},
		{
			name:   "wrong secret beats scheduler header",
			cfg:    triggerConfig(),
			target: "/sync?secret=nope",
			header: map[string]string{"X-Vercel-Cron": "1"},
			status: http.StatusForbidden,
		},
		{
			name:   "secret supplied but none configured",
			cfg:    config.TriggerConfig{SchedulerHeader: "X-Vercel-Cron", SchedulerHeaderValue: "1"},
			target: "/sync?secret=",
			status: http.StatusForbidden,
		},
		{
			name:    "scheduler header",
			cfg:     triggerConfig(),
			target:  "/sync",
			header:  map[string]string{"X-Vercel-Cron": "1"},
			status:  http.StatusNoContent,
			via:     AuthScheduler,
			reached: true,
		},
		{
			name:   "scheduler header with wrong value",
			cfg:    triggerConfig(),
			target: "/sync",
			header: map[string]string{"X-Vercel-Cron": "0"},
			status: http.StatusUnauthorized,
		},
		{
			name:    "user agent",
			cfg:     triggerConfig(),
			target:  "/sync",
			header:  map[string]string{"User-Agent": "vercel-cron/1.0"},
			status:  http.StatusNoContent,
			via:     AuthUserAgent,
			reached: true,
		},
		{
			name:   "user agent check disabled",
			cfg:    config.TriggerConfig{Secret: "s3cret"},
			target: "/sync",
			header: map[string]string{"User-Agent": "vercel-cron/1.0"},
			status: http.StatusUnauthorized,
		},
		{name: "nothing", cfg: triggerConfig(), target: "/sync", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec, via, reached := serveTrigger(tt.cfg, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.reached, reached)
			assert.Equal(t, tt.via, via)
		})
	}
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	h := RateLimit(2, time.Minute, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/sync", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitDisabled(t *testing.T) {
	h := RateLimit(0, time.Minute, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sync", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRequestIDEchoesOrGenerates(t *testing.T) {
	h := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc")
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRecovererTurnsPanicInto500(t *testing.T) {
	h := Recoverer(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
