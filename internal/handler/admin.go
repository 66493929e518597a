package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/interviewace/interviewace/internal/i18n"
	"github.com/interviewace/interviewace/internal/model"
)

// handleUploadBank imports a JSON file of fallback questions into the bank.
// The file's content hash is recorded so re-uploading the same file is a
// no-op.
func (h *Handler) handleUploadBank(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "bad_request")
		return
	}

	file, header, err := r.FormFile("questions_file")
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "bad_request")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "internal")
		return
	}

	hashBytes := sha256.Sum256(data)
	hash := hex.EncodeToString(hashBytes[:])

	storedHash, err := h.store.GetImportedFileHash(header.Filename)
	if err != nil {
		slog.Error("failed to check import status", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "internal")
		return
	}
	if storedHash == hash {
		respondJSON(w, http.StatusOK, map[string]any{"imported": 0, "duplicate": true})
		return
	}

	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]apiError{"error": {
			Code:    "import_failed",
			Message: i18n.Td(r.Context(), "error.import_failed", map[string]any{"Reason": err.Error()}),
		}})
		return
	}

	count, err := h.store.ImportBank(questions)
	if err != nil {
		slog.Error("bank import failed", "filename", header.Filename, "error", err)
		respondJSON(w, http.StatusBadRequest, map[string]apiError{"error": {
			Code:    "import_failed",
			Message: i18n.Td(r.Context(), "error.import_failed", map[string]any{"Reason": err.Error()}),
		}})
		return
	}

	if err := h.store.SetImportedFileHash(header.Filename, hash); err != nil {
		slog.Error("failed to record import", "error", err)
	}

	slog.Info("imported bank questions", "filename", header.Filename, "count", count)
	respondJSON(w, http.StatusOK, map[string]any{"imported": count})
}
