package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/interviewace/interviewace/internal/capture"
	"github.com/interviewace/interviewace/internal/model"
	"github.com/interviewace/interviewace/internal/session"
)

// assessmentView is the JSON shape of a session snapshot.
type assessmentView struct {
	ID        string                 `json:"id"`
	Phase     model.Phase            `json:"phase"`
	Config    model.SessionConfig    `json:"config"`
	Questions []model.Question       `json:"questions"`
	Answers   model.AnswerMap        `json:"answers"`
	Index     int                    `json:"index"`
	Remaining int                    `json:"remainingSec"`
	Elapsed   int                    `json:"elapsedSec"`
	Capture   capture.Mode           `json:"capture"`
	ErrorCode string                 `json:"errorCode,omitempty"`
	Result    *model.AggregateResult `json:"result,omitempty"`
}

func viewSnapshot(snap session.Snapshot) assessmentView {
	return assessmentView{
		ID:        snap.ID,
		Phase:     snap.Phase,
		Config:    snap.Config,
		Questions: snap.Questions,
		Answers:   snap.Answers,
		Index:     snap.Index,
		Remaining: snap.Remaining,
		Elapsed:   snap.Elapsed,
		Capture:   snap.Capture,
		ErrorCode: snap.ErrorCode,
		Result:    snap.Result,
	}
}

// sessionFromRequest resolves the URL's assessment ID to a session owned by
// the authenticated user.
func (h *Handler) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	user := model.UserFromContext(r.Context())
	s, ok := h.sessions.Get(chi.URLParam(r, "assessmentID"), user.ID)
	if !ok {
		h.respondError(w, r, http.StatusNotFound, "not_found")
		return nil, false
	}
	return s, true
}

func (h *Handler) handleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	var cfg model.SessionConfig
	if err := decodeJSON(r, &cfg); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "bad_request")
		return
	}

	user := model.UserFromContext(r.Context())
	s, err := h.sessions.Create(user.ID, cfg)
	if err != nil {
		slog.Warn("rejected assessment config", "user", user.ID, "error", err)
		h.respondError(w, r, http.StatusBadRequest, "invalid_config")
		return
	}
	respondJSON(w, http.StatusCreated, viewSnapshot(s.Snapshot()))
}

func (h *Handler) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, viewSnapshot(s.Snapshot()))
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		QuestionID string `json:"questionId"`
		Answer     string `json:"answer"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "bad_request")
		return
	}
	if err := s.RecordAnswer(req.QuestionID, req.Answer); err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewSnapshot(s.Snapshot()))
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	h.handleMove(w, r, (*session.Session).Next)
}

func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request) {
	h.handleMove(w, r, (*session.Session).Previous)
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request, move func(*session.Session) error) {
	s, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}
	if err := move(s); err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewSnapshot(s.Snapshot()))
}

func (h *Handler) handleCapture(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		Mode capture.Mode `json:"mode"`
	}
	if err := decodeJSON(r, &req); err != nil || !req.Mode.Valid() {
		h.respondError(w, r, http.StatusBadRequest, "bad_request")
		return
	}
	stopped, err := s.SetCapture(req.Mode)
	if err != nil {
		h.respondError(w, r, http.StatusConflict, "capture_unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]capture.Mode{
		"stopped": stopped,
		"active":  s.Snapshot().Capture,
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}
	if err := s.Submit(); err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, viewSnapshot(s.Snapshot()))
}

// handleRetry recovers a failed session: back to active when the questions
// survived an evaluation failure, otherwise a fresh generation attempt.
func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}
	err := s.Resume()
	if errors.Is(err, session.ErrWrongPhase) {
		err = s.Retry()
	}
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewSnapshot(s.Snapshot()))
}

func (h *Handler) handleRetake(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		Fresh bool `json:"fresh"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.respondError(w, r, http.StatusBadRequest, "bad_request")
			return
		}
	}
	if err := s.Retake(req.Fresh); err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewSnapshot(s.Snapshot()))
}

func (h *Handler) handleResult(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}
	snap := s.Snapshot()
	if snap.Phase != model.PhaseResults {
		h.respondError(w, r, http.StatusConflict, "wrong_phase")
		return
	}
	respondJSON(w, http.StatusOK, snap.Result)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	records, err := h.store.ListResultsForUser(user.ID)
	if err != nil {
		slog.Error("failed to list results", "user", user.ID, "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "internal")
		return
	}
	if records == nil {
		records = []model.ResultRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}
