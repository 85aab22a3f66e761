package models

import "time"

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Outcome is one settled submission as stored in the outcome log. Clinical
// inputs are deliberately absent.
type Outcome struct {
	ID             int64     `json:"id"`
	Status         string    `json:"status"`
	Classification string    `json:"classification,omitempty"`
	Probability    *float64  `json:"probability,omitempty"`
	LatencyMs      int64     `json:"latency_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

type OutcomeStats struct {
	Total            int64            `json:"total"`
	Failed           int64            `json:"failed"`
	ByClassification map[string]int64 `json:"by_classification"`
	AvgProbability   float64          `json:"avg_probability"`
}
