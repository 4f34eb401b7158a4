package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/courses", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/courses", http.StatusOK, 40*time.Millisecond)
	m.ObserveRemoteCall("rest.select", 10*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordReconcile(ReconcileOutcomeResolved)
	m.RecordReconcile(ReconcileOutcomeDiscarded)

	snapshot := m.Snapshot()
	assert.Equal(t, uint64(2), snapshot.RequestsTotal)
	assert.InDelta(t, 30, snapshot.AverageRequestMs, 0.001)
	assert.Equal(t, uint64(1), snapshot.RemoteCalls)
	assert.InDelta(t, 10, snapshot.AverageRemoteCallMs, 0.001)
	assert.InDelta(t, 2.0/3.0, snapshot.CacheHitRatio, 0.001)
	assert.Equal(t, uint64(1), snapshot.ReconcileResolved)
	assert.Equal(t, uint64(0), snapshot.ReconcileUnresolved)
	assert.Equal(t, uint64(1), snapshot.ReconcileDiscarded)
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObserveRemoteCall("auth.refresh", 5*time.Millisecond)
	m.RecordReconcile(ReconcileOutcomeUnresolved)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `backend_call_duration_seconds_count{operation="auth.refresh"} 1`))
	assert.True(t, strings.Contains(body, `profile_reconcile_total{outcome="unresolved"} 1`))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService

	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordReconcile(ReconcileOutcomeResolved)
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
