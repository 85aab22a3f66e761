package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"ALZHEIMER_MRI/go-frontend/internal/assessment"
	"ALZHEIMER_MRI/go-frontend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFromAssessment(t *testing.T) {
	ok := FromAssessment(assessment.Outcome{
		Result:      &assessment.Result{Classification: "Positive", Severity: assessment.SeverityHigh},
		Probability: 0.885,
		Latency:     1500 * time.Millisecond,
	})
	assert.Equal(t, models.OutcomeOK, ok.Status)
	assert.Equal(t, "Positive", ok.Classification)
	require.NotNil(t, ok.Probability)
	assert.Equal(t, 0.885, *ok.Probability)
	assert.EqualValues(t, 1500, ok.LatencyMs)

	failed := FromAssessment(assessment.Outcome{Err: errors.New("refused"), Latency: time.Second})
	assert.Equal(t, models.OutcomeFailed, failed.Status)
	assert.Empty(t, failed.Classification)
	assert.Nil(t, failed.Probability)
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = NopRecorder{}
	require.NoError(t, r.Record(context.Background(), models.Outcome{Status: models.OutcomeOK}))

	stats, err := r.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.NotNil(t, stats.ByClassification)
}

// TestOutcomeStorePostgres runs against a real database when
// TEST_DATABASE_URL is set.
func TestOutcomeStorePostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, "TRUNCATE assessment_outcomes")
	require.NoError(t, err)

	store := NewOutcomeStore(db)
	prob := 0.9
	require.NoError(t, store.Record(ctx, models.Outcome{Status: models.OutcomeOK, Classification: "Positive", Probability: &prob, LatencyMs: 12}))
	require.NoError(t, store.Record(ctx, models.Outcome{Status: models.OutcomeFailed, LatencyMs: 30}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.Failed)
	assert.EqualValues(t, 1, stats.ByClassification["Positive"])
	assert.InDelta(t, 0.9, stats.AvgProbability, 0.0001)
}
