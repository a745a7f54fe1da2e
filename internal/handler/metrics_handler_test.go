package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-ledger-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(nil, func(context.Context) error { return errors.New("database: connection refused") })
	c, w := newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	h = NewMetricsHandler(nil, nil)
	c, w = newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordEnrollment("select", "ok", 0)
	h := NewMetricsHandler(metrics, nil)

	c, w := newGinContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "enrollment_operations_total")

	c, w = newGinContext(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(nil, nil).Prometheus(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
