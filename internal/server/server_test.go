package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kadrisk/internal/check"
	"kadrisk/internal/config"
	"kadrisk/internal/constants"
	"kadrisk/internal/enrichment"
	"kadrisk/internal/logger"
	"kadrisk/internal/signals"
	"kadrisk/pkg/health"
	"kadrisk/pkg/models"
)

type stubRunner struct {
	got []models.CheckRequest
}

func (r *stubRunner) Run(_ context.Context, req models.CheckRequest) check.Result {
	r.got = append(r.got, req)
	return check.Result{
		Facts:   enrichment.Facts{Status: constants.StatusOK, Participant: req.Participant},
		Signals: []signals.Signal{{Code: signals.CodeNoCases, SeverityLabel: "info"}},
	}
}

func newTestServer(t *testing.T, cfg config.ServerConfig, registry *health.CheckerRegistry) (*Server, *stubRunner) {
	t.Helper()
	runner := &stubRunner{}
	s := New(Options{Config: cfg, Health: registry, Checks: runner, Logger: logger.NopLogger()})
	return s, runner
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:1234"
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestCreateCheck(t *testing.T) {
	s, runner := newTestServer(t, config.ServerConfig{}, nil)

	w := do(s, http.MethodPost, "/api/v1/checks", `{"participant":" 7701234567 ","participant_type":"defendant","max_pages":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res check.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "7701234567", res.Facts.Participant)
	require.Len(t, res.Signals, 1)

	require.Len(t, runner.got, 1)
	assert.Equal(t, 2, runner.got[0].MaxPages)
	assert.NotEmpty(t, runner.got[0].ID)
	assert.Equal(t, runner.got[0].ID, w.Header().Get("X-Check-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), runner.got[0].ID)
}

func TestCreateCheckValidation(t *testing.T) {
	s, runner := newTestServer(t, config.ServerConfig{}, nil)

	tests := map[string]string{
		"bad json":       `{"participant":`,
		"blank":          `{"participant":"  "}`,
		"bad type":       `{"participant":"x","participant_type":"judge"}`,
		"negative pages": `{"participant":"x","max_pages":-1}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			w := do(s, http.MethodPost, "/api/v1/checks", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error_code":"VALIDATION_ERROR"`)
		})
	}
	assert.Empty(t, runner.got)
}

func TestHealth(t *testing.T) {
	registry := health.NewCheckerRegistry()
	registry.Register(health.BreakerChecker("kad_site", func() bool { return true }))
	s, _ := newTestServer(t, config.ServerConfig{}, registry)

	w := do(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)

	registry.Register(health.NewFuncChecker("down", func(context.Context) error { return errors.New("down") }))
	w = do(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{}, nil)
	w := do(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := config.ServerConfig{RateLimit: config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}}
	s, _ := newTestServer(t, cfg, nil)

	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/api/v1/checks", `{"participant":"x"}`).Code)
	w := do(s, http.MethodPost, "/api/v1/checks", `{"participant":"x"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/health", "").Code, "ops routes are not limited")
}
