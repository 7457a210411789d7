package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSessions int

func (s stubSessions) Len() int { return int(s) }

func setupHealthRouter(h *HealthHandler) *gin.Engine {
	router := gin.New()
	router.GET("/health", h.Health)
	router.GET("/health/ready", h.Ready)
	router.GET("/api/v1/info", h.Info)
	return router
}

func TestHealthHandler_Health(t *testing.T) {
	router := setupHealthRouter(NewHealthHandler(stubPinger{}, nil, "memory", "test"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name     string
		pingErr  error
		status   int
		database string
	}{
		{"database connected", nil, http.StatusOK, "connected"},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable, "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupHealthRouter(NewHealthHandler(stubPinger{err: tt.pingErr}, nil, "memory", "test"))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.status, w.Code)
			var resp ReadyResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.database, resp.Database)
		})
	}
}

func TestHealthHandler_Info(t *testing.T) {
	h := NewHealthHandler(stubPinger{}, stubSessions(3), "s3", "production")
	h.startTime = time.Now().Add(-26 * time.Hour)
	router := setupHealthRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/info", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp InfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, APIVersion, resp.Version)
	assert.Equal(t, "production", resp.Environment)
	assert.Equal(t, "s3", resp.StorageBackend)
	assert.Equal(t, 3, resp.Sessions)
	assert.Contains(t, resp.Uptime, "1d 2h")
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{30 * time.Second, "0h 0m 30s"},
		{time.Hour + 5*time.Minute, "1h 5m 0s"},
		{49*time.Hour + 61*time.Second, "2d 1h 1m 1s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatUptime(tt.d))
	}
}
