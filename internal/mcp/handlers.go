package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/yegors/live-facts/internal/factcheck"
	"github.com/yegors/live-facts/internal/segmenter"
	"github.com/yegors/live-facts/pkg/logger"
)

// Handlers contains the handler functions for the MCP tools
type Handlers struct {
	checker factcheck.Checker
	logger  *logger.Logger
}

type checkResult struct {
	Statement     string               `json:"statement"`
	Type          factcheck.ResultType `json:"type"`
	Accuracy      factcheck.Accuracy   `json:"accuracy,omitempty"`
	Reasoning     string               `json:"reasoning,omitempty"`
	UsedContext   bool                 `json:"used_context"`
	ObviouslyFake bool                 `json:"obviously_fake"`
}

// CheckStatement handles the check_statement tool
func (h *Handlers) CheckStatement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	statement, err := request.RequireString("statement")
	if err != nil {
		return mcp.NewToolResultError("statement argument is required and must be a string"), nil
	}

	req := factcheck.Request{
		Statement:  statement,
		Transcript: request.GetString("transcript", ""),
	}

	result, err := h.checker.Check(ctx, req)
	if err != nil {
		if errors.Is(err, factcheck.ErrEmptyStatement) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		h.logger.Error("check_statement failed", logger.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Error validating statement: %v", err)), nil
	}

	return jsonResult(checkResult{
		Statement:     statement,
		Type:          result.Type,
		Accuracy:      result.Accuracy,
		Reasoning:     result.Reasoning,
		UsedContext:   factcheck.ContextFor(req) != "",
		ObviouslyFake: result.Alert(),
	})
}

// SplitStatements handles the split_statements tool
func (h *Handlers) SplitStatements(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}

	completed, remainder := segmenter.Split(text)
	if completed == nil {
		completed = []string{}
	}

	return jsonResult(map[string]any{
		"statements": completed,
		"remainder":  remainder,
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
