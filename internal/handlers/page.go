package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"ALZHEIMER_MRI/go-frontend/internal/assessment"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	Form            assessment.Form
	FieldName       string
	Value           string
	StepCount       int
	IsFinal         bool
	AnalyzeDisabled bool
	Busy            bool
	Result          *assessment.Result
	Notices         []string
	Upload          *assessment.UploadReference
	UploadAccept    string
}

// Index renders the page for the caller's session. Pending notices are
// consumed here, so each is shown once.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s := h.session(w, r)
	form := s.Form()
	snap := s.Flow().Snapshot()

	data := pageData{
		Form:            form,
		FieldName:       form.FieldName(),
		Value:           form.Current(),
		StepCount:       assessment.StepCount,
		IsFinal:         form.IsFinal(),
		AnalyzeDisabled: form.AnalyzeDisabled(),
		Busy:            snap.Busy,
		Result:          snap.Result,
		Notices:         s.Flow().TakeNotifications(),
		Upload:          s.Upload(),
		UploadAccept:    uploadAccept,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.page.ExecuteTemplate(w, "index.html", data); err != nil {
		h.logger.Error("render page failed", zap.Error(err))
	}
}

// Step handles the form buttons: next, back and analyze. The value typed
// into the current step is saved before moving.
func (h *Handler) Step(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	s := h.session(w, r)
	action := r.PostFormValue("action")

	var analyze bool
	form := s.UpdateForm(func(f *assessment.Form) {
		if _, ok := r.PostForm["value"]; ok {
			f.SetCurrent(r.PostFormValue("value"))
		}
		switch action {
		case "next":
			f.Next()
		case "back":
			f.Back()
		case "analyze":
			analyze = f.IsFinal() && !f.AnalyzeDisabled()
		}
	})

	if analyze && !h.submitInBackground(s, form.Data) {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	http.Redirect(w, r, "/#assessment", http.StatusSeeOther)
}

// submitInBackground marks the flow pending and settles it on a goroutine
// that Close waits for. After Close nothing new is started.
func (h *Handler) submitInBackground(s *assessment.Session, data assessment.StepData) bool {
	h.bgMu.Lock()
	defer h.bgMu.Unlock()
	if h.closed {
		return false
	}

	settle := s.Flow().Begin(data)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		_, _ = settle(h.ctx)
	}()
	return true
}
