package models

import "time"

// AssessmentRequest is the JSON body of POST /api/assessment. Values are kept
// as text so blank or non-numeric entries follow the form's parsing rules.
// Either the step keys or the clinical field names may be used; field names
// win when both are set.
type AssessmentRequest struct {
	Step1 string `json:"step1,omitempty"`
	Step2 string `json:"step2,omitempty"`
	Step3 string `json:"step3,omitempty"`
	Step4 string `json:"step4,omitempty"`
	Step5 string `json:"step5,omitempty"`

	FunctionalAssessment string `json:"FunctionalAssessment,omitempty"`
	ADL                  string `json:"ADL,omitempty"`
	MemoryComplaints     string `json:"MemoryComplaints,omitempty"`
	MMSE                 string `json:"MMSE,omitempty"`
	BehavioralProblems   string `json:"BehavioralProblems,omitempty"`
}

type AssessmentResponse struct {
	Classification string   `json:"classification"`
	Confidence     string   `json:"confidence"`
	Prediction     *float64 `json:"prediction,omitempty"`
	Explanation    string   `json:"explanation"`
	Severity       string   `json:"severity"`
	Timestamp      int64    `json:"timestamp"`
}

type UploadResponse struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	Display     string `json:"display"`
	Fingerprint string `json:"fingerprint"`
	Status      string `json:"status"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp int64  `json:"timestamp"`
	Code      string `json:"code,omitempty"`
}

type HealthStatus struct {
	Status           string `json:"status"`
	PredictorMode    string `json:"predictor_mode"`
	PredictorHealthy bool   `json:"predictor_healthy"`
	ActiveClients    int    `json:"active_clients"`
	ActiveSessions   int    `json:"active_sessions"`
	UptimeSec        int    `json:"uptime_sec"`
	Timestamp        string `json:"timestamp"`
}

type WebSocketMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	ClientID  string      `json:"client_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func NewWebSocketMessage(kind, clientID string, payload interface{}) WebSocketMessage {
	return WebSocketMessage{
		Type:      kind,
		Payload:   payload,
		ClientID:  clientID,
		Timestamp: time.Now().Unix(),
	}
}
