package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/yegors/live-facts/internal/config"
	"github.com/yegors/live-facts/internal/factcheck"
	"github.com/yegors/live-facts/internal/session"
	"github.com/yegors/live-facts/internal/storage/sqlite"
	"github.com/yegors/live-facts/internal/websocket"
	"github.com/yegors/live-facts/pkg/logger"
)

// JournalReader serves the statement journal's queries
type JournalReader interface {
	GetSessions(ctx context.Context, limit, offset int) ([]*sqlite.SessionRecord, error)
	GetStatements(ctx context.Context, limit, offset int) ([]*sqlite.StatementRecord, error)
	GetStatementsBySession(ctx context.Context, sessionID string, limit, offset int) ([]*sqlite.StatementRecord, error)
}

// Handler contains the API handlers
type Handler struct {
	checker   factcheck.Checker
	sessions  *session.Manager
	journal   JournalReader
	wsServer  *websocket.Server
	config    *config.Config
	logger    *logger.Logger
	startedAt time.Time
}

// NewHandler creates a new API handler. journal and wsServer may be nil.
func NewHandler(checker factcheck.Checker, sessions *session.Manager, journal JournalReader, wsServer *websocket.Server, config *config.Config, logger *logger.Logger) *Handler {
	return &Handler{
		checker:   checker,
		sessions:  sessions,
		journal:   journal,
		wsServer:  wsServer,
		config:    config,
		logger:    logger.Named("api-handler"),
		startedAt: time.Now(),
	}
}

// GetHealth returns the service status
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"session_state":  session.StateNotStarted,
	}

	if c, err := h.sessions.Current(); err == nil {
		response["session_id"] = c.ID()
		response["session_state"] = c.State()
	}
	if h.wsServer != nil {
		response["websocket_clients"] = h.wsServer.ClientCount()
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetConfig returns the public configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	// Create a sanitized config with only public values
	publicConfig := map[string]any{
		"session": map[string]any{
			"quiet_interval_ms":     h.config.Session.QuietIntervalMs,
			"hard_cap_seconds":      h.config.Session.HardCapSeconds,
			"keep_alive_seconds":    h.config.Session.KeepAliveSeconds,
			"check_timeout_seconds": h.config.Session.CheckTimeoutSecs,
		},
		"factcheck": map[string]any{
			"classifier_provider": h.config.FactCheck.ClassifierProvider,
			"search_provider":     h.config.FactCheck.SearchProvider,
		},
		"transcription": map[string]any{
			"provider": h.config.Transcription.Provider,
			"model":    h.config.Transcription.Model,
			"language": h.config.Transcription.Language,
		},
		"storage": map[string]any{
			"type": h.config.Storage.Type,
		},
	}

	WriteJSON(w, http.StatusOK, publicConfig)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// parsePaginationParams parses limit and offset query parameters
func parsePaginationParams(r *http.Request) (int, int) {
	limit := 100 // Default limit
	offset := 0  // Default offset

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	return limit, offset
}
