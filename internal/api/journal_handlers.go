package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yegors/live-facts/pkg/logger"
)

// GetJournalSessions returns journaled sessions with pagination
func (h *Handler) GetJournalSessions(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}

	limit, offset := parsePaginationParams(r)
	sessions, err := h.journal.GetSessions(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to retrieve sessions", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve sessions")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp": time.Now(),
		"count":     len(sessions),
		"sessions":  sessions,
	})
}

// GetJournalStatements returns journaled statements across sessions
func (h *Handler) GetJournalStatements(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}

	limit, offset := parsePaginationParams(r)
	statements, err := h.journal.GetStatements(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to retrieve statements", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve statements")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp":  time.Now(),
		"count":      len(statements),
		"statements": statements,
	})
}

// GetJournalSessionStatements returns one journaled session's statements
func (h *Handler) GetJournalSessionStatements(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing session ID")
		return
	}

	limit, offset := parsePaginationParams(r)
	statements, err := h.journal.GetStatementsBySession(r.Context(), id, limit, offset)
	if err != nil {
		h.logger.Error("Failed to retrieve statements by session", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve statements")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp":  time.Now(),
		"session_id": id,
		"count":      len(statements),
		"statements": statements,
	})
}
