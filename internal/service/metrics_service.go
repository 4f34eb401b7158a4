package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot is a compact view of the gateway counters for the health endpoint.
type MetricsSnapshot struct {
	RequestsTotal       uint64    `json:"requests_total"`
	AverageRequestMs    float64   `json:"average_request_ms"`
	RemoteCalls         uint64    `json:"remote_calls"`
	AverageRemoteCallMs float64   `json:"average_remote_call_ms"`
	CacheHitRatio       float64   `json:"cache_hit_ratio"`
	ReconcileResolved   uint64    `json:"reconcile_resolved"`
	ReconcileUnresolved uint64    `json:"reconcile_unresolved"`
	ReconcileDiscarded  uint64    `json:"reconcile_discarded"`
	Goroutines          int       `json:"goroutines"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// Reconcile outcomes recorded by the session provider.
const (
	ReconcileOutcomeResolved   = "resolved"
	ReconcileOutcomeUnresolved = "unresolved"
	ReconcileOutcomeDiscarded  = "discarded"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	remoteCallDuration *prometheus.HistogramVec
	reconcileTotal     *prometheus.CounterVec
	cacheLatency       prometheus.Observer
	cacheWrite         prometheus.Observer
	cacheHitRatio      prometheus.Gauge

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	remoteCount          uint64
	remoteDurationTotal  uint64
	reconcileResolved    uint64
	reconcileUnresolved  uint64
	reconcileDiscarded   uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	remoteCallDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_call_duration_seconds",
		Help:    "Duration of calls to the hosted auth and data API",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	reconcileTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "profile_reconcile_total",
		Help: "Profile reconciliations by outcome",
	}, []string{"outcome"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, remoteCallDuration, reconcileTotal, cacheLatency, cacheWrite, cacheHitRatio, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		remoteCallDuration: remoteCallDuration,
		reconcileTotal:     reconcileTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveRemoteCall records the latency of one backend call. Its signature
// matches baas.Observer.
func (m *MetricsService) ObserveRemoteCall(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.remoteCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
	atomic.AddUint64(&m.remoteCount, 1)
	atomic.AddUint64(&m.remoteDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordReconcile counts a reconciliation outcome.
func (m *MetricsService) RecordReconcile(outcome string) {
	if m == nil {
		return
	}
	m.reconcileTotal.WithLabelValues(outcome).Inc()
	switch outcome {
	case ReconcileOutcomeResolved:
		atomic.AddUint64(&m.reconcileResolved, 1)
	case ReconcileOutcomeUnresolved:
		atomic.AddUint64(&m.reconcileUnresolved, 1)
	case ReconcileOutcomeDiscarded:
		atomic.AddUint64(&m.reconcileDiscarded, 1)
	}
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	if ratio, ok := m.hitRatio(); ok {
		m.cacheHitRatio.Set(ratio)
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

func (m *MetricsService) hitRatio() (float64, bool) {
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total == 0 {
		return 0, false
	}
	return float64(hits) / float64(total), true
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	remote := atomic.LoadUint64(&m.remoteCount)
	ratio, _ := m.hitRatio()

	return MetricsSnapshot{
		RequestsTotal:       requests,
		AverageRequestMs:    averageMs(atomic.LoadUint64(&m.requestDurationTotal), requests),
		RemoteCalls:         remote,
		AverageRemoteCallMs: averageMs(atomic.LoadUint64(&m.remoteDurationTotal), remote),
		CacheHitRatio:       ratio,
		ReconcileResolved:   atomic.LoadUint64(&m.reconcileResolved),
		ReconcileUnresolved: atomic.LoadUint64(&m.reconcileUnresolved),
		ReconcileDiscarded:  atomic.LoadUint64(&m.reconcileDiscarded),
		Goroutines:          runtime.NumGoroutine(),
		GeneratedAt:         time.Now().UTC(),
	}
}

func averageMs(totalNanos, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNanos) / float64(count) / float64(time.Millisecond)
}
