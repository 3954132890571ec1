package models

import "time"

// SystemMetrics is a point-in-time summary of process instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64          `json:"cache_hit_ratio"`
	CacheHits                uint64           `json:"cache_hits"`
	CacheMisses              uint64           `json:"cache_misses"`
	RequestsTotal            uint64           `json:"requests_total"`
	AverageRequestDurationMs float64          `json:"average_request_duration_ms"`
	WorkflowRunsActive       int64            `json:"workflow_runs_active"`
	AnalyzerQueueDepth       int              `json:"analyzer_queue_depth"`
	RemindersSent            uint64           `json:"reminders_sent"`
	WalletTransactions       map[string]int64 `json:"wallet_transactions"`
	Goroutines               int              `json:"goroutines"`
	GeneratedAt              time.Time        `json:"generated_at"`
}
