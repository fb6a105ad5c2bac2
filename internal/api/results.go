package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatscopehq/chatscope/internal/db"
	"github.com/chatscopehq/chatscope/internal/logger"
)

// handleGetResult returns a persisted analysis by ID.
func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		respondError(w, http.StatusServiceUnavailable, "Result storage not configured")
		return
	}

	id := chi.URLParam(r, "id")
	result, err := s.db.GetResult(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrResultNotFound) {
			respondError(w, http.StatusNotFound, "Result not found")
			return
		}
		logger.Ctx(r.Context()).Error("failed to load result", "result_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load result")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
