package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"ALZHEIMER_MRI/go-frontend/internal/assessment"
	"ALZHEIMER_MRI/go-frontend/internal/models"

	"go.uber.org/zap"
)

func stepDataFromRequest(req models.AssessmentRequest) assessment.StepData {
	data := assessment.StepData{
		Step1: req.Step1,
		Step2: req.Step2,
		Step3: req.Step3,
		Step4: req.Step4,
		Step5: req.Step5,
	}
	for n, v := range []string{req.FunctionalAssessment, req.ADL, req.MemoryComplaints, req.MMSE, req.BehavioralProblems} {
		if v != "" {
			data.Set(n+1, v)
		}
	}
	return data
}

// Assess runs one synchronous submission for API clients.
func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed")
		return
	}

	var req models.AssessmentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "invalid_request")
		return
	}

	flow := assessment.NewFlow(h.predictor,
		assessment.WithLogger(h.logger.With(zap.String("source", "api"))),
		assessment.WithOutcomeHook(h.recordOutcome),
	)
	res, err := flow.Submit(r.Context(), stepDataFromRequest(req))
	if err != nil {
		writeError(w, http.StatusBadGateway, assessment.FailureNotice, "prediction_failed")
		return
	}

	writeJSON(w, http.StatusOK, models.AssessmentResponse{
		Classification: res.Classification,
		Confidence:     res.Confidence,
		Prediction:     res.Prediction,
		Explanation:    res.Explanation,
		Severity:       res.Severity,
		Timestamp:      time.Now().Unix(),
	})
}
