package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nutriplan/engine/pkg/healthcheck"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		http     int
		status   healthcheck.Status
		degraded bool
		want     int
	}{
		{"healthy", http.StatusOK, healthcheck.StatusHealthy, false, exitCodeSuccess},
		{"degraded allowed", http.StatusOK, healthcheck.StatusDegraded, true, exitCodeSuccess},
		{"degraded strict", http.StatusOK, healthcheck.StatusDegraded, false, exitCodeFailure},
		{"unhealthy", http.StatusServiceUnavailable, healthcheck.StatusUnhealthy, true, exitCodeFailure},
		{"ready body", http.StatusOK, healthcheck.Status("ready"), true, exitCodeSuccess},
		{"not ready body", http.StatusServiceUnavailable, healthcheck.Status("not_ready"), true, exitCodeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.http, tt.status, tt.degraded))
		})
	}
}

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"degraded","checks":[{"name":"price_feed","status":"degraded"}]}`))
	}))
	defer srv.Close()

	opts := Options{URL: srv.URL, Timeout: time.Second, AllowDegrade: true}
	assert.Equal(t, exitCodeSuccess, run(opts))

	opts.AllowDegrade = false
	assert.Equal(t, exitCodeFailure, run(opts))

	assert.Equal(t, exitCodeError, run(Options{URL: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond}))
}
