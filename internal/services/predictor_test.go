package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ALZHEIMER_MRI/go-frontend/internal/assessment"
	"ALZHEIMER_MRI/go-frontend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPredictClinicalPostsPayload(t *testing.T) {
	var got map[string]float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict/clinical", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prediction":1,"diagnosis":"Positive","probability":0.885}`))
	}))
	defer srv.Close()

	pc := NewPredictionClient(srv.URL, 0, zaptest.NewLogger(t))
	resp, err := pc.PredictClinical(context.Background(), assessment.StepData{Step1: "6", Step4: "19"}.Input())
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"FunctionalAssessment": 6,
		"ADL":                  0,
		"MemoryComplaints":     0,
		"MMSE":                 19,
		"BehavioralProblems":   0,
	}, got)
	assert.True(t, resp.IsPositive())
	assert.Equal(t, 0.885, *resp.Probability)
}

func TestPredictClinicalNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"validation"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	pc := NewPredictionClient(srv.URL, 0, nil)
	_, err := pc.PredictClinical(context.Background(), assessment.ClinicalInput{})
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "422")
}

func TestPredictClinicalMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	pc := NewPredictionClient(srv.URL, 0, nil)
	_, err := pc.PredictClinical(context.Background(), assessment.ClinicalInput{})
	assert.ErrorIs(t, err, assessment.ErrMalformedResponse)
}

func TestPredictClinicalNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	pc := NewPredictionClient(url, 0, nil)
	_, err := pc.PredictClinical(context.Background(), assessment.ClinicalInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call prediction service")
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"message":"Alzheimer's Classification API"}`))
	}))

	pc := NewPredictionClient(srv.URL, 0, nil)
	assert.True(t, pc.HealthCheck(context.Background()))

	srv.Close()
	assert.False(t, pc.HealthCheck(context.Background()))
}

func TestNewPredictorDefaultsAvoidOwnPage(t *testing.T) {
	var selfHits atomic.Int32
	self := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		selfHits.Add(1)
		_, _ = w.Write([]byte("<html>assessment page</html>"))
	}))
	defer self.Close()

	var upstreamPaths []string
	var mu sync.Mutex
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		upstreamPaths = append(upstreamPaths, r.URL.Path)
		mu.Unlock()
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"prediction":0,"probability":0.1}`))
	}))
	defer upstream.Close()

	u, err := url.Parse(self.URL)
	require.NoError(t, err)
	cfg := &config.Config{
		HTTPPort:      u.Port(),
		PredictorMode: "live",
		Environment:   "production",
		ProxyTarget:   upstream.URL,
	}

	p := NewPredictor(cfg, zaptest.NewLogger(t))
	assert.False(t, p.HealthCheck(context.Background()), "an unhealthy service must not look healthy")

	resp, err := p.PredictClinical(context.Background(), assessment.ClinicalInput{})
	require.NoError(t, err)
	assert.False(t, resp.IsPositive())

	assert.Zero(t, selfHits.Load())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/", "/predict/clinical"}, upstreamPaths)
}

func TestSimulatedPredictor(t *testing.T) {
	sp := NewSimulatedPredictor(time.Millisecond)
	resp, err := sp.PredictClinical(context.Background(), assessment.ClinicalInput{})
	require.NoError(t, err)

	res, err := assessment.BuildResult(*resp)
	require.NoError(t, err)
	assert.Equal(t, "88.5", res.Confidence)
	assert.Equal(t, assessment.SeverityHigh, res.Severity)
	assert.True(t, sp.HealthCheck(context.Background()))
}

func TestSimulatedPredictorHonoursContext(t *testing.T) {
	sp := NewSimulatedPredictor(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sp.PredictClinical(ctx, assessment.ClinicalInput{})
	assert.ErrorIs(t, err, context.Canceled)
}
