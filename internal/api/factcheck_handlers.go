package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yegors/live-facts/internal/factcheck"
	"github.com/yegors/live-facts/pkg/logger"
)

// maxStatementBody bounds validate-statement request bodies
const maxStatementBody = 1 << 20

// validateResponse echoes the statement alongside its result
type validateResponse struct {
	Statement string               `json:"statement"`
	Type      factcheck.ResultType `json:"type"`
	Accuracy  factcheck.Accuracy   `json:"accuracy,omitempty"`
	Reasoning string               `json:"reasoning,omitempty"`
}

// ValidateStatement runs the classification pipeline synchronously
func (h *Handler) ValidateStatement(w http.ResponseWriter, r *http.Request) {
	var req factcheck.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxStatementBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.checker.Check(r.Context(), req)
	if err != nil {
		var upstream *factcheck.UpstreamError
		switch {
		case errors.Is(err, factcheck.ErrEmptyStatement):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &upstream):
			h.logger.Error("Statement validation failed",
				logger.String("stage", string(upstream.Stage)),
				logger.Error(err))
			writeError(w, http.StatusBadGateway, "Error validating statement")
		default:
			h.logger.Error("Statement validation failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "Error validating statement")
		}
		return
	}

	WriteJSON(w, http.StatusOK, validateResponse{
		Statement: req.Statement,
		Type:      result.Type,
		Accuracy:  result.Accuracy,
		Reasoning: result.Reasoning,
	})
}
