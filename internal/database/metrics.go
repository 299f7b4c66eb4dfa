package database

import (
	"database/sql"
	"sync/atomic"
	"time"
)

// Metrics collects query counters for the pool
type Metrics struct {
	queryCount     int64
	queryDuration  int64 // nanoseconds
	errorCount     int64
	slowQueryCount int64
	txCount        int64

	slowQueryThreshold time.Duration
}

// MetricsSnapshot provides a point-in-time view of metrics
type MetricsSnapshot struct {
	QueryCount       int64         `json:"query_count"`
	ErrorCount       int64         `json:"error_count"`
	SlowQueryCount   int64         `json:"slow_query_count"`
	TransactionCount int64         `json:"transaction_count"`
	AvgQueryDuration time.Duration `json:"avg_query_duration"`
	OpenConnections  int           `json:"open_connections"`
	InUse            int           `json:"in_use"`
	WaitCount        int64         `json:"wait_count"`
	Timestamp        time.Time     `json:"timestamp"`
}

// NewMetrics creates a collector; a zero threshold defaults to 100ms
func NewMetrics(slowQueryThreshold time.Duration) *Metrics {
	if slowQueryThreshold <= 0 {
		slowQueryThreshold = 100 * time.Millisecond
	}
	return &Metrics{slowQueryThreshold: slowQueryThreshold}
}

// RecordQuery records one statement
func (m *Metrics) RecordQuery(queryType string, duration time.Duration, err error) {
	if queryType == "begin_tx" {
		atomic.AddInt64(&m.txCount, 1)
	} else {
		atomic.AddInt64(&m.queryCount, 1)
		atomic.AddInt64(&m.queryDuration, int64(duration))
	}

	if err != nil && err != sql.ErrNoRows {
		atomic.AddInt64(&m.errorCount, 1)
	}

	if m.IsSlow(duration) {
		atomic.AddInt64(&m.slowQueryCount, 1)
	}
}

// IsSlow reports whether duration exceeds the slow query threshold
func (m *Metrics) IsSlow(duration time.Duration) bool {
	return duration > m.slowQueryThreshold
}

// Snapshot returns the current counters combined with pool stats
func (m *Metrics) Snapshot(stats sql.DBStats) *MetricsSnapshot {
	queryCount := atomic.LoadInt64(&m.queryCount)
	totalDuration := atomic.LoadInt64(&m.queryDuration)

	var avg time.Duration
	if queryCount > 0 {
		avg = time.Duration(totalDuration / queryCount)
	}

	return &MetricsSnapshot{
		QueryCount:       queryCount,
		ErrorCount:       atomic.LoadInt64(&m.errorCount),
		SlowQueryCount:   atomic.LoadInt64(&m.slowQueryCount),
		TransactionCount: atomic.LoadInt64(&m.txCount),
		AvgQueryDuration: avg,
		OpenConnections:  stats.OpenConnections,
		InUse:            stats.InUse,
		WaitCount:        stats.WaitCount,
		Timestamp:        time.Now(),
	}
}
