package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/admission-agent-api/internal/models"
)

const metricsNamespace = "admission"

// MetricsService owns the Prometheus registry and keeps running totals for
// the admin metrics snapshot.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	stageTotal      *prometheus.CounterVec
	walletTotal     *prometheus.CounterVec
	runsActive      prometheus.Gauge
	circularsTotal  *prometheus.CounterVec
	remindersTotal  prometheus.Counter

	mu           sync.Mutex
	walletCounts map[string]int64
	queueDepth   func() int

	activeRuns           atomic.Int64
	cacheHitCount        atomic.Uint64
	cacheMissCount       atomic.Uint64
	requestCount         atomic.Uint64
	requestDurationTotal atomic.Uint64
	remindersSent        atomic.Uint64
}

// NewMetricsService registers the API's collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry:     prometheus.NewRegistry(),
		walletCounts: make(map[string]int64),
	}

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	m.cacheLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "cache_read_seconds",
		Help:      "Latency of cache lookups.",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5},
	})
	m.cacheWrite = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "cache_write_seconds",
		Help:      "Latency of cache writes.",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5},
	})
	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by result.",
	}, []string{"result"})
	m.stageTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "workflow_stage_transitions_total",
		Help:      "Agent workflow stages reached.",
	}, []string{"stage"})
	m.walletTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "wallet_transactions_total",
		Help:      "Wallet ledger entries written.",
	}, []string{"type"})
	m.runsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "workflow_runs_active",
		Help:      "Agent workflow runs currently in flight.",
	})
	m.circularsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "circulars_analyzed_total",
		Help:      "Circular URLs processed by the analyzer.",
	}, []string{"status"})
	m.remindersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "deadline_reminders_total",
		Help:      "Deadline reminder notifications emitted.",
	})
	queueDepth := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "analyzer_queue_depth",
		Help:      "Analyzer jobs buffered or running.",
	}, func() float64 { return float64(m.currentQueueDepth()) })

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestDuration,
		m.cacheLatency,
		m.cacheWrite,
		m.cacheLookups,
		m.stageTotal,
		m.walletTotal,
		m.runsActive,
		m.circularsTotal,
		m.remindersTotal,
		queueDepth,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// TrackQueueDepth makes fn the source of the analyzer queue depth gauge.
func (m *MetricsService) TrackQueueDepth(fn func() int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.queueDepth = fn
	m.mu.Unlock()
}

func (m *MetricsService) currentQueueDepth() int {
	m.mu.Lock()
	fn := m.queueDepth
	m.mu.Unlock()
	if fn == nil {
		return 0
	}
	return fn()
}

// ObserveHTTPRequest records one served request under its route template.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
	m.requestCount.Add(1)
	m.requestDurationTotal.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup and its latency.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.cacheHitCount.Add(1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	m.cacheMissCount.Add(1)
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveStage counts a workflow stage transition.
func (m *MetricsService) ObserveStage(stage string) {
	if m == nil {
		return
	}
	m.stageTotal.WithLabelValues(stage).Inc()
}

// ObserveWalletTransaction counts a ledger entry by type.
func (m *MetricsService) ObserveWalletTransaction(txnType models.TransactionType) {
	if m == nil {
		return
	}
	m.walletTotal.WithLabelValues(string(txnType)).Inc()
	m.mu.Lock()
	m.walletCounts[string(txnType)]++
	m.mu.Unlock()
}

// RunStarted marks a workflow run as in flight.
func (m *MetricsService) RunStarted() {
	if m == nil {
		return
	}
	m.runsActive.Inc()
	m.activeRuns.Add(1)
}

// RunFinished releases an in-flight workflow run.
func (m *MetricsService) RunFinished() {
	if m == nil {
		return
	}
	m.runsActive.Dec()
	m.activeRuns.Add(-1)
}

// ObserveCircular counts an analyzed circular by outcome.
func (m *MetricsService) ObserveCircular(status models.CircularStatus) {
	if m == nil {
		return
	}
	m.circularsTotal.WithLabelValues(string(status)).Inc()
}

// ObserveReminders counts emitted deadline reminders.
func (m *MetricsService) ObserveReminders(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.remindersTotal.Add(float64(n))
	m.remindersSent.Add(uint64(n))
}

// Snapshot returns aggregated metrics for the admin metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := m.cacheHitCount.Load()
	misses := m.cacheMissCount.Load()
	requests := m.requestCount.Load()

	var cacheRatio float64
	if lookups := hits + misses; lookups > 0 {
		cacheRatio = float64(hits) / float64(lookups)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(m.requestDurationTotal.Load()) / float64(requests) / float64(time.Millisecond)
	}

	m.mu.Lock()
	wallet := make(map[string]int64, len(m.walletCounts))
	for k, v := range m.walletCounts {
		wallet[k] = v
	}
	m.mu.Unlock()

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		WorkflowRunsActive:       m.activeRuns.Load(),
		AnalyzerQueueDepth:       m.currentQueueDepth(),
		RemindersSent:            m.remindersSent.Load(),
		WalletTransactions:       wallet,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
