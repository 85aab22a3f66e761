package services

import (
	"errors"
	"testing"
	"time"

	"ALZHEIMER_MRI/go-frontend/internal/assessment"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordOutcome(t *testing.T) {
	m := NewMetrics()
	assert.Zero(t, m.GetAvgLatency())
	assert.Zero(t, m.GetPositiveRate())

	m.RecordOutcome(assessment.Outcome{
		Result:  &assessment.Result{Severity: assessment.SeverityHigh},
		Latency: 100 * time.Millisecond,
	})
	m.RecordOutcome(assessment.Outcome{
		Result:  &assessment.Result{Severity: assessment.SeverityLow},
		Latency: 300 * time.Millisecond,
	})
	m.RecordOutcome(assessment.Outcome{Err: errors.New("boom"), Latency: 200 * time.Millisecond})

	assert.EqualValues(t, 3, m.GetTotalSubmissions())
	assert.EqualValues(t, 1, m.GetTotalErrors())
	assert.InDelta(t, 200.0, m.GetAvgLatency(), 0.001)
	assert.InDelta(t, 0.5, m.GetPositiveRate(), 0.001)
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.IncrementUploads()
	m.IncrementRejectedUploads()
	m.IncrementWebSocketConnections()
	m.IncrementWebSocketConnections()
	m.DecrementWebSocketConnections()
	m.IncrementWebSocketMessages()

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap["total_uploads"])
	assert.EqualValues(t, 1, snap["rejected_uploads"])
	assert.EqualValues(t, 1, snap["websocket_clients"])
	assert.EqualValues(t, 1, snap["websocket_messages"])
	assert.EqualValues(t, 0, snap["total_submissions"])
}
