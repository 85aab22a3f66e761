package services

import (
	"sync/atomic"
	"time"

	"ALZHEIMER_MRI/go-frontend/internal/assessment"
)

type Metrics struct {
	startedAt time.Time

	totalSubmissions atomic.Int64
	totalErrors      atomic.Int64
	totalPositive    atomic.Int64
	totalLatency     atomic.Int64
	lastSubmission   atomic.Int64
	totalUploads     atomic.Int64
	rejectedUploads  atomic.Int64

	wsConnections atomic.Int64
	wsMessages    atomic.Int64
	wsErrors      atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

// RecordOutcome counts one settled submission.
func (m *Metrics) RecordOutcome(o assessment.Outcome) {
	m.totalSubmissions.Add(1)
	m.totalLatency.Add(o.Latency.Milliseconds())
	m.lastSubmission.Store(time.Now().Unix())
	if o.Err != nil {
		m.totalErrors.Add(1)
		return
	}
	if o.Result.IsPositive() {
		m.totalPositive.Add(1)
	}
}

func (m *Metrics) IncrementUploads() {
	m.totalUploads.Add(1)
}

func (m *Metrics) IncrementRejectedUploads() {
	m.rejectedUploads.Add(1)
}

func (m *Metrics) GetTotalSubmissions() int64 {
	return m.totalSubmissions.Load()
}

func (m *Metrics) GetTotalErrors() int64 {
	return m.totalErrors.Load()
}

func (m *Metrics) GetAvgLatency() float64 {
	n := m.totalSubmissions.Load()
	if n == 0 {
		return 0
	}
	return float64(m.totalLatency.Load()) / float64(n)
}

// GetPositiveRate is the share of successful submissions classified positive.
func (m *Metrics) GetPositiveRate() float64 {
	ok := m.totalSubmissions.Load() - m.totalErrors.Load()
	if ok <= 0 {
		return 0
	}
	return float64(m.totalPositive.Load()) / float64(ok)
}

func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startedAt)
}

func (m *Metrics) IncrementWebSocketConnections() {
	m.wsConnections.Add(1)
}

func (m *Metrics) DecrementWebSocketConnections() {
	m.wsConnections.Add(-1)
}

func (m *Metrics) GetWebSocketConnections() int64 {
	return m.wsConnections.Load()
}

func (m *Metrics) IncrementWebSocketMessages() {
	m.wsMessages.Add(1)
}

func (m *Metrics) IncrementWebSocketErrors() {
	m.wsErrors.Add(1)
}

// Snapshot returns all counters keyed the way /api/metrics reports them.
func (m *Metrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"total_submissions":  m.totalSubmissions.Load(),
		"total_errors":       m.totalErrors.Load(),
		"positive_rate":      m.GetPositiveRate(),
		"avg_latency_ms":     m.GetAvgLatency(),
		"last_submission":    m.lastSubmission.Load(),
		"total_uploads":      m.totalUploads.Load(),
		"rejected_uploads":   m.rejectedUploads.Load(),
		"system_uptime_sec":  int(m.Uptime().Seconds()),
		"websocket_clients":  m.wsConnections.Load(),
		"websocket_messages": m.wsMessages.Load(),
		"websocket_errors":   m.wsErrors.Load(),
	}
}
