package assessment

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

const (
	SeverityHigh = "high"
	SeverityLow  = "low"

	DiagnosisPositive = "Positive"
	DiagnosisNegative = "Negative"

	ExplanationHigh = "The analysis indicates a high likelihood of Alzheimer's based on the provided clinical metrics. Please consult a specialist."
	ExplanationLow  = "The analysis indicates a low likelihood of Alzheimer's based on the provided clinical metrics. Regular monitoring is advised."

	// FailureNotice is the only message users see for any failed submission.
	FailureNotice = "Failed to connect to analysis server. Please try again."
)

var ErrMalformedResponse = errors.New("malformed prediction response")

// PredictionResponse is the body returned by POST /predict/clinical.
// Prediction and Diagnosis are both optional; either may decide the outcome.
type PredictionResponse struct {
	Prediction  *float64 `json:"prediction,omitempty"`
	Diagnosis   string   `json:"diagnosis,omitempty"`
	Probability *float64 `json:"probability"`
}

type Result struct {
	Classification string   `json:"classification"`
	Confidence     string   `json:"confidence"`
	Prediction     *float64 `json:"prediction,omitempty"`
	Explanation    string   `json:"explanation"`
	Severity       string   `json:"severity"`
}

func (r *Result) IsPositive() bool {
	return r.Severity == SeverityHigh
}

// DecodePredictionResponse parses a prediction service body.
func DecodePredictionResponse(body []byte) (*PredictionResponse, error) {
	var resp PredictionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &resp, nil
}

func (p PredictionResponse) IsPositive() bool {
	return (p.Prediction != nil && *p.Prediction == 1) || p.Diagnosis == DiagnosisPositive
}

// BuildResult maps a prediction response to the result panel contents.
func BuildResult(resp PredictionResponse) (*Result, error) {
	if resp.Probability == nil {
		return nil, fmt.Errorf("%w: missing probability", ErrMalformedResponse)
	}
	prob := *resp.Probability
	if math.IsNaN(prob) || math.IsInf(prob, 0) {
		return nil, fmt.Errorf("%w: probability is not finite", ErrMalformedResponse)
	}

	positive := resp.IsPositive()
	res := &Result{
		Classification: resp.Diagnosis,
		Confidence:     FormatConfidence(prob),
		Prediction:     resp.Prediction,
		Explanation:    ExplanationLow,
		Severity:       SeverityLow,
	}
	if positive {
		res.Explanation = ExplanationHigh
		res.Severity = SeverityHigh
	}
	if res.Classification == "" {
		res.Classification = DiagnosisNegative
		if positive {
			res.Classification = DiagnosisPositive
		}
	}
	return res, nil
}

// FormatConfidence renders probability as a percentage with one decimal.
// Exact ties round away from zero, so 1.25 shows as "1.3".
func FormatConfidence(prob float64) string {
	pct := prob * 100
	scaled := pct * 10
	tie := math.Abs(scaled-math.Trunc(scaled)) == 0.5 && math.FMA(pct, 10, -scaled) == 0
	if tie {
		pct = math.Round(scaled) / 10
	}
	return strconv.FormatFloat(pct, 'f', 1, 64)
}
