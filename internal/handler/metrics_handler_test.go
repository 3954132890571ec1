package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-agent-api/internal/service"
)

type readyBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func probe(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func TestReadyReportsEveryCheck(t *testing.T) {
	h := NewMetricsHandler(nil,
		ReadinessCheck{Name: "postgres", Probe: probe(nil)},
		ReadinessCheck{Name: "redis", Optional: true, Probe: probe(errors.New("refused"))},
	)
	c, w := newGinContext(http.MethodGet, "/ready", nil)

	h.Ready(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body readyBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, map[string]string{"postgres": "up", "redis": "degraded"}, body.Checks)
}

func TestReadyFailsOnRequiredCheck(t *testing.T) {
	h := NewMetricsHandler(nil, ReadinessCheck{Name: "postgres", Probe: probe(errors.New("timeout"))})
	c, w := newGinContext(http.MethodGet, "/ready", nil)

	h.Ready(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body readyBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "down", body.Checks["postgres"])
}

func TestSummaryReturnsSnapshot(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.TrackQueueDepth(func() int { return 3 })
	h := NewMetricsHandler(metrics)
	c, w := newGinContext(http.MethodGet, "/admin/metrics", nil)

	h.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.EqualValues(t, 3, envelope.Data["analyzer_queue_depth"])
}

func TestPrometheusWithoutServiceIsUnavailable(t *testing.T) {
	h := NewMetricsHandler(nil)
	c, w := newGinContext(http.MethodGet, "/metrics", nil)

	h.Prometheus(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
