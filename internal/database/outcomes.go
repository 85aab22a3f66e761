package database

import (
	"context"
	"database/sql"
	"fmt"

	"ALZHEIMER_MRI/go-frontend/internal/assessment"
	"ALZHEIMER_MRI/go-frontend/internal/models"
)

// Recorder persists submission outcomes.
type Recorder interface {
	Record(ctx context.Context, o models.Outcome) error
	Stats(ctx context.Context) (*models.OutcomeStats, error)
}

// FromAssessment converts a settled submission into a storable outcome.
func FromAssessment(o assessment.Outcome) models.Outcome {
	out := models.Outcome{
		Status:    models.OutcomeOK,
		LatencyMs: o.Latency.Milliseconds(),
	}
	if o.Err != nil || o.Result == nil {
		out.Status = models.OutcomeFailed
		return out
	}
	prob := o.Probability
	out.Classification = o.Result.Classification
	out.Probability = &prob
	return out
}

type OutcomeStore struct {
	db *sql.DB
}

func NewOutcomeStore(db *sql.DB) *OutcomeStore {
	return &OutcomeStore{db: db}
}

func (s *OutcomeStore) Record(ctx context.Context, o models.Outcome) error {
	var classification sql.NullString
	if o.Classification != "" {
		classification = sql.NullString{String: o.Classification, Valid: true}
	}
	var prob sql.NullFloat64
	if o.Probability != nil {
		prob = sql.NullFloat64{Float64: *o.Probability, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO assessment_outcomes (status, classification, probability, latency_ms) VALUES ($1, $2, $3, $4)",
		o.Status, classification, prob, o.LatencyMs,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

func (s *OutcomeStore) Stats(ctx context.Context) (*models.OutcomeStats, error) {
	stats := &models.OutcomeStats{ByClassification: make(map[string]int64)}

	err := s.db.QueryRowContext(ctx,
		`SELECT count(*),
		        count(*) FILTER (WHERE status = 'failed'),
		        coalesce(avg(probability), 0)
		   FROM assessment_outcomes`,
	).Scan(&stats.Total, &stats.Failed, &stats.AvgProbability)
	if err != nil {
		return nil, fmt.Errorf("query outcome totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT classification, count(*) FROM assessment_outcomes WHERE status = 'ok' GROUP BY classification",
	)
	if err != nil {
		return nil, fmt.Errorf("query outcome classes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			class sql.NullString
			n     int64
		)
		if err := rows.Scan(&class, &n); err != nil {
			return nil, fmt.Errorf("scan outcome class: %w", err)
		}
		stats.ByClassification[class.String] = n
	}
	return stats, rows.Err()
}

// NopRecorder is used when no database is configured.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, models.Outcome) error { return nil }

func (NopRecorder) Stats(context.Context) (*models.OutcomeStats, error) {
	return &models.OutcomeStats{ByClassification: map[string]int64{}}, nil
}
