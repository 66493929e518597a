package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/interviewace/interviewace/internal/i18n"
	"github.com/interviewace/interviewace/internal/model"
	"github.com/interviewace/interviewace/internal/session"
	"github.com/interviewace/interviewace/internal/store"
)

// Config holds handler-level settings.
type Config struct {
	SecureCookies bool
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	sessions *session.Manager
	config   Config
}

// New creates a new Handler.
func New(s *store.Store, m *session.Manager, cfg Config) *Handler {
	return &Handler{store: s, sessions: m, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/auth/signup", h.handleSignup)
	r.Post("/api/auth/login", h.handleLogin)
	r.Post("/api/auth/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/api/auth/me", h.handleMe)

		r.Post("/api/assessments", h.handleCreateAssessment)
		r.Get("/api/assessments/{assessmentID}", h.handleGetAssessment)
		r.Post("/api/assessments/{assessmentID}/answer", h.handleAnswer)
		r.Post("/api/assessments/{assessmentID}/next", h.handleNext)
		r.Post("/api/assessments/{assessmentID}/previous", h.handlePrevious)
		r.Post("/api/assessments/{assessmentID}/capture", h.handleCapture)
		r.Post("/api/assessments/{assessmentID}/submit", h.handleSubmit)
		r.Post("/api/assessments/{assessmentID}/retry", h.handleRetry)
		r.Post("/api/assessments/{assessmentID}/retake", h.handleRetake)
		r.Get("/api/assessments/{assessmentID}/result", h.handleResult)

		r.Get("/api/history", h.handleHistory)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Post("/api/admin/bank", h.handleUploadBank)
		})
	})
}

// apiError is the JSON error envelope. Code is stable for clients, Message
// is localized for display.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, code string) {
	respondJSON(w, status, map[string]apiError{"error": {
		Code:    code,
		Message: i18n.T(r.Context(), "error."+code),
	}})
}

// respondSessionError translates session state machine errors into API
// responses.
func (h *Handler) respondSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrWrongPhase):
		h.respondError(w, r, http.StatusConflict, "wrong_phase")
	case errors.Is(err, session.ErrUnknownQuestion):
		h.respondError(w, r, http.StatusBadRequest, "unknown_question")
	case errors.Is(err, session.ErrBusy):
		h.respondError(w, r, http.StatusConflict, "busy")
	default:
		slog.Error("session operation failed", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "internal")
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v)
}
