package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ALZHEIMER_MRI/go-frontend/internal/assessment"
	"ALZHEIMER_MRI/go-frontend/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const clinicalPath = "/predict/clinical"

var ErrUnexpectedStatus = errors.New("unexpected status from prediction service")

var tracer = otel.Tracer("ALZHEIMER_MRI/go-frontend/internal/services")

// PredictionClient talks to the clinical prediction service over HTTP.
type PredictionClient struct {
	baseURL   string
	healthURL string
	client    *http.Client
	logger    *zap.Logger
}

// NewPredictionClient returns a client for baseURL. A zero timeout leaves
// requests unbounded apart from the caller's context.
func NewPredictionClient(baseURL string, timeout time.Duration, logger *zap.Logger) *PredictionClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictionClient{
		baseURL:   baseURL,
		healthURL: baseURL,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// WithHealthURL points the liveness probe at a different base, for when
// predictions go through a proxy that is not itself the service.
func (pc *PredictionClient) WithHealthURL(base string) *PredictionClient {
	pc.healthURL = base
	return pc
}

func (pc *PredictionClient) BaseURL() string {
	return pc.baseURL
}

func (pc *PredictionClient) PredictClinical(ctx context.Context, in assessment.ClinicalInput) (*assessment.PredictionResponse, error) {
	ctx, span := tracer.Start(ctx, "PredictionClient.PredictClinical",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("server.address", pc.baseURL)))
	defer span.End()

	resp, err := pc.predict(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prediction failed")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("assessment.positive", resp.IsPositive()))
	return resp, nil
}

func (pc *PredictionClient) predict(ctx context.Context, in assessment.ClinicalInput) (*assessment.PredictionResponse, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode clinical input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+clinicalPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := pc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call prediction service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	pc.logger.Debug("prediction service responded",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, truncate(body, 256))
	}

	return assessment.DecodePredictionResponse(body)
}

// HealthCheck reports whether the service root answers with a 2xx status.
// The root of the health base is probed, which defaults to the predict base.
func (pc *PredictionClient) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pc.healthURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := pc.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// SimulatedPredictor stands in for the service with a fixed positive result
// after a delay. It is the offline variant of the page.
type SimulatedPredictor struct {
	Delay    time.Duration
	Response assessment.PredictionResponse
}

func NewSimulatedPredictor(delay time.Duration) *SimulatedPredictor {
	prediction, probability := 1.0, 0.885
	return &SimulatedPredictor{
		Delay: delay,
		Response: assessment.PredictionResponse{
			Prediction:  &prediction,
			Diagnosis:   assessment.DiagnosisPositive,
			Probability: &probability,
		},
	}
}

func (sp *SimulatedPredictor) PredictClinical(ctx context.Context, _ assessment.ClinicalInput) (*assessment.PredictionResponse, error) {
	timer := time.NewTimer(sp.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	resp := sp.Response
	return &resp, nil
}

func (sp *SimulatedPredictor) HealthCheck(context.Context) bool {
	return true
}

// HealthChecker is implemented by predictors that can report reachability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// Predictor is a prediction backend that can also report its health.
type Predictor interface {
	assessment.Predictor
	HealthChecker
}

// NewPredictor picks the live client or the simulated stand-in from cfg.
func NewPredictor(cfg *config.Config, logger *zap.Logger) Predictor {
	if cfg.IsSimulated() {
		logger.Info("using simulated predictor", zap.Duration("delay", cfg.SimulatedDelay))
		return NewSimulatedPredictor(cfg.SimulatedDelay)
	}
	logger.Info("using prediction service",
		zap.String("base_url", cfg.PredictBaseURL()),
		zap.String("health_url", cfg.HealthBaseURL()))
	return NewPredictionClient(cfg.PredictBaseURL(), cfg.PredictTimeout, logger).
		WithHealthURL(cfg.HealthBaseURL())
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
