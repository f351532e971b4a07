package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gps-report/internal/api"
	"gps-report/internal/app"
	"gps-report/internal/config"
	"gps-report/internal/middleware"
)

func TestCurlHostForListenAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		listenAddr string
		want       string
	}{
		{name: "port only", listenAddr: ":8080", want: "localhost:8080"},
		{name: "ipv4 host and port", listenAddr: "127.0.0.1:8080", want: "127.0.0.1:8080"},
		{name: "wildcard ipv4", listenAddr: "0.0.0.0:8080", want: "localhost:8080"},
		{name: "wildcard ipv6", listenAddr: "[::]:8080", want: "localhost:8080"},
		{name: "ipv6 loopback", listenAddr: "[::1]:8080", want: "[::1]:8080"},
		{name: "trim host and port", listenAddr: " localhost:9090 ", want: "localhost:9090"},
		{name: "empty falls back", listenAddr: "", want: "localhost:8080"},
		{name: "malformed passes through", listenAddr: "localhost", want: "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, curlHostForListenAddr(tt.listenAddr))
		})
	}
}

func TestRouter_MiddlewareStack(t *testing.T) {
	cfg := &config.Config{
		DBPath:             filepath.Join(t.TempDir(), "gps_data.db"),
		MetricsPath:        filepath.Join(t.TempDir(), "metrics.json"),
		CORSAllowedOrigins: []string{"https://dash.example"},
		Sync:               config.SyncConfig{Backend: config.SyncNone},
	}
	logger := slog.New(slog.DiscardHandler)
	a, err := app.New(t.Context(), app.Deps{Cfg: cfg, Logger: logger})
	require.NoError(t, err)

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	r := newRouter(cfg, logger, limiter, api.NewHandler(a.Reports, a.Store, a.Syncer, logger))

	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	req.Header.Set("Origin", "https://dash.example")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "https://dash.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
