package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/yegors/live-facts/internal/segmenter"
	"github.com/yegors/live-facts/internal/session"
	"github.com/yegors/live-facts/pkg/logger"
)

// StartSession begins a new listening session
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Start()
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	snap, err := c.Snapshot()
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	h.logger.Info("Session started over HTTP", logger.String("session_id", c.ID()))
	WriteJSON(w, http.StatusCreated, snap)
}

// GetSession returns the current session snapshot
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Current()
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	snap, err := c.Snapshot()
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, snap)
}

// PauseSession pauses the current session
func (h *Handler) PauseSession(w http.ResponseWriter, r *http.Request) {
	h.control(w, (*session.Controller).Pause)
}

// ResumeSession resumes the current session
func (h *Handler) ResumeSession(w http.ResponseWriter, r *http.Request) {
	h.control(w, (*session.Controller).Resume)
}

// StopSession ends the current session
func (h *Handler) StopSession(w http.ResponseWriter, r *http.Request) {
	h.control(w, (*session.Controller).Stop)
}

func (h *Handler) control(w http.ResponseWriter, op func(*session.Controller) error) {
	c, err := h.sessions.Current()
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	if err := op(c); err != nil {
		h.writeSessionError(w, err)
		return
	}

	snap, err := c.Snapshot()
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, snap)
}

// PushFragment feeds a transcript fragment into the current session
func (h *Handler) PushFragment(w http.ResponseWriter, r *http.Request) {
	var fragment segmenter.Fragment
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxStatementBody)).Decode(&fragment); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(fragment.Text) == "" {
		writeError(w, http.StatusBadRequest, "fragment has no text")
		return
	}

	c, err := h.sessions.Current()
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	if err := c.Fragment(fragment); err != nil {
		h.writeSessionError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// GetSessionStatements returns the current session's statements in order
func (h *Handler) GetSessionStatements(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Current()
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	statements := c.Statements()
	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp":  time.Now(),
		"session_id": c.ID(),
		"count":      len(statements),
		"statements": statements,
	})
}

// HandleWebSocket handles WebSocket connections
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsServer == nil {
		writeError(w, http.StatusServiceUnavailable, "websocket not available")
		return
	}
	h.logger.Debug("WebSocket connection request received")
	h.wsServer.HandleConnection(w, r)
}

func (h *Handler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNoSession):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrSessionActive),
		errors.Is(err, session.ErrSessionEnded),
		errors.Is(err, session.ErrNotListening),
		errors.Is(err, session.ErrLoopStopped):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("Session operation failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
