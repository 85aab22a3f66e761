package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"sync"
	"time"

	"ALZHEIMER_MRI/go-frontend/internal/assessment"
	"ALZHEIMER_MRI/go-frontend/internal/config"
	"ALZHEIMER_MRI/go-frontend/internal/database"
	"ALZHEIMER_MRI/go-frontend/internal/models"
	"ALZHEIMER_MRI/go-frontend/internal/services"

	"go.uber.org/zap"
)

const sessionCookie = "session_id"

type Deps struct {
	Config    *config.Config
	Predictor services.Predictor
	Metrics   *services.Metrics
	Recorder  database.Recorder
	Logger    *zap.Logger
}

// Handler serves the assessment page, its form actions and the JSON API.
type Handler struct {
	cfg       *config.Config
	predictor services.Predictor
	metrics   *services.Metrics
	recorder  database.Recorder
	logger    *zap.Logger

	sessions *assessment.Store
	hub      *Hub
	page     *template.Template

	// ctx bounds background submissions started from the page.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	bgMu   sync.Mutex
	closed bool
}

func New(d Deps) *Handler {
	if d.Recorder == nil {
		d.Recorder = database.NopRecorder{}
	}
	if d.Metrics == nil {
		d.Metrics = services.NewMetrics()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		cfg:       d.Config,
		predictor: d.Predictor,
		metrics:   d.Metrics,
		recorder:  d.Recorder,
		logger:    d.Logger,
		hub:       NewHub(d.Metrics, d.Logger),
		page:      pageTemplate,
		ctx:       ctx,
		cancel:    cancel,
	}
	h.sessions = assessment.NewStore(h.newFlow)
	return h
}

func (h *Handler) newFlow(sessionID string) *assessment.Flow {
	return assessment.NewFlow(h.predictor,
		assessment.WithLogger(h.logger.With(zap.String("session", sessionID))),
		assessment.WithObserver(func(s assessment.Snapshot) {
			h.hub.Broadcast(sessionID, models.NewWebSocketMessage("STATE", "", s))
		}),
		assessment.WithOutcomeHook(h.recordOutcome),
	)
}

func (h *Handler) recordOutcome(o assessment.Outcome) {
	h.metrics.RecordOutcome(o)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.recorder.Record(ctx, database.FromAssessment(o)); err != nil {
		h.logger.Warn("failed to record outcome", zap.Error(err))
	}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.Index)
	mux.HandleFunc("/assessment/step", h.Step)
	mux.HandleFunc("/assessment/upload", h.UploadForm)

	mux.HandleFunc("/api/assessment", h.Assess)
	mux.HandleFunc("/api/upload", h.UploadAPI)
	mux.HandleFunc("/api/health", h.Health)
	mux.HandleFunc("/api/metrics", h.Metrics)
	mux.HandleFunc("/api/outcomes/stats", h.OutcomeStats)

	mux.HandleFunc("/ws", h.WebSocket)
}

// SweepSessions drops idle sessions every interval until ctx is done.
func (h *Handler) SweepSessions(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.sessions.Sweep(maxIdle); n > 0 {
				h.logger.Debug("expired sessions", zap.Int("count", n))
			}
		}
	}
}

// Close stops new background submissions, cancels the in-flight ones,
// waits for them and disconnects websocket clients.
func (h *Handler) Close() {
	h.bgMu.Lock()
	h.closed = true
	h.bgMu.Unlock()

	h.cancel()
	h.wg.Wait()
	h.hub.Close()
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) *assessment.Session {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	s, created := h.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    s.ID,
			Path:     "/",
			MaxAge:   86400,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed")
		return
	}

	healthy := h.predictor.HealthCheck(r.Context())
	status := "healthy"
	if !healthy {
		status = "degraded"
	}
	mode := "live"
	if h.cfg.IsSimulated() {
		mode = "simulated"
	}

	writeJSON(w, http.StatusOK, models.HealthStatus{
		Status:           status,
		PredictorMode:    mode,
		PredictorHealthy: healthy,
		ActiveClients:    h.hub.Count(),
		ActiveSessions:   h.sessions.Len(),
		UptimeSec:        int(h.metrics.Uptime().Seconds()),
		Timestamp:        time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed")
		return
	}

	snap := h.metrics.Snapshot()
	snap["active_sessions"] = h.sessions.Len()
	snap["timestamp"] = time.Now().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) OutcomeStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed")
		return
	}

	stats, err := h.recorder.Stats(r.Context())
	if err != nil {
		h.logger.Error("outcome stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", "stats_failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, models.ErrorResponse{
		Error:     msg,
		Timestamp: time.Now().Unix(),
		Code:      code,
	})
}
