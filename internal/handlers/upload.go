package handlers

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"ALZHEIMER_MRI/go-frontend/internal/assessment"
	"ALZHEIMER_MRI/go-frontend/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

const uploadAccept = "image/*,.dcm"

var (
	ErrNoFile          = errors.New("no file uploaded")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)

var mriExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp", ".dcm"}

func isValidMRIFile(filename, contentType string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range mriExtensions {
		if ext == e {
			return true
		}
	}
	return strings.HasPrefix(contentType, "image/")
}

// acceptUpload reads the "file" part to completion and fingerprints it. The
// bytes are discarded; only the reference survives.
func (h *Handler) acceptUpload(w http.ResponseWriter, r *http.Request) (assessment.UploadReference, error) {
	limit := h.cfg.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return assessment.UploadReference{}, ErrFileTooLarge
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return assessment.UploadReference{}, ErrNoFile
		}
		return assessment.UploadReference{}, fmt.Errorf("read upload: %w", err)
	}
	defer file.Close()

	ref := assessment.UploadReference{Name: filepath.Base(header.Filename)}
	if header.Filename == "" {
		return ref, ErrNoFile
	}
	if !isValidMRIFile(header.Filename, header.Header.Get("Content-Type")) {
		return ref, ErrUnsupportedFile
	}

	hasher, err := blake2b.New256(nil)
	if err != nil {
		return ref, fmt.Errorf("init hash: %w", err)
	}
	n, err := io.Copy(hasher, io.LimitReader(file, limit+1))
	if err != nil {
		return ref, fmt.Errorf("read upload: %w", err)
	}
	if n > limit {
		return ref, ErrFileTooLarge
	}

	ref.Size = n
	ref.Fingerprint = hex.EncodeToString(hasher.Sum(nil))[:16]
	ref.Status = assessment.UploadAccepted
	return ref, nil
}

func uploadErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNoFile):
		return http.StatusBadRequest, "No file uploaded"
	case errors.Is(err, ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType, "Invalid file type"
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "File too large"
	}
	return http.StatusInternalServerError, "Failed to read file"
}

// UploadForm handles the page's MRI upload widget.
func (h *Handler) UploadForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s := h.session(w, r)
	ref, err := h.acceptUpload(w, r)
	switch {
	case errors.Is(err, ErrNoFile):
		// nothing selected
	case err != nil:
		h.metrics.IncrementRejectedUploads()
		h.logger.Info("upload rejected", zap.String("file", ref.Name), zap.Error(err))
		_, msg := uploadErrorStatus(err)
		s.SetUpload(assessment.UploadReference{Name: ref.Name, Status: msg + "."})
	default:
		h.metrics.IncrementUploads()
		h.logger.Info("upload accepted", zap.String("file", ref.Name), zap.Int64("size", ref.Size))
		s.SetUpload(ref)
	}
	http.Redirect(w, r, "/#assessment", http.StatusSeeOther)
}

// UploadAPI is the JSON variant of UploadForm. It does not touch any session.
func (h *Handler) UploadAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed")
		return
	}

	ref, err := h.acceptUpload(w, r)
	if err != nil {
		h.metrics.IncrementRejectedUploads()
		status, msg := uploadErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("upload failed", zap.Error(err))
		}
		writeError(w, status, msg, "upload_rejected")
		return
	}

	h.metrics.IncrementUploads()
	writeJSON(w, http.StatusOK, models.UploadResponse{
		Name:        ref.Name,
		Size:        ref.Size,
		Display:     ref.Describe(),
		Fingerprint: ref.Fingerprint,
		Status:      ref.Status,
	})
}
