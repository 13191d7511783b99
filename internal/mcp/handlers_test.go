package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/yegors/live-facts/internal/factcheck"
	"github.com/yegors/live-facts/pkg/logger"
)

type stubChecker struct {
	got    factcheck.Request
	result *factcheck.Result
	err    error
}

func (s *stubChecker) Check(_ context.Context, req factcheck.Request) (*factcheck.Result, error) {
	s.got = req
	if strings.TrimSpace(req.Statement) == "" {
		return nil, factcheck.ErrEmptyStatement
	}
	return s.result, s.err
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("got %d content items, want 1", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want mcp.TextContent", result.Content[0])
	}
	return text.Text
}

func newHandlers(checker factcheck.Checker) *Handlers {
	return &Handlers{checker: checker, logger: logger.NewNop()}
}

func TestCheckStatement(t *testing.T) {
	checker := &stubChecker{result: &factcheck.Result{
		Type:      factcheck.Checkable,
		Accuracy:  factcheck.AccuracyObviouslyFake,
		Reasoning: "The earth is round.",
	}}
	h := newHandlers(checker)

	result, err := h.CheckStatement(context.Background(), callRequest("check_statement", map[string]any{
		"statement":  "He says the earth is flat.",
		"transcript": "Let me tell you about my uncle.",
	}))
	if err != nil {
		t.Fatalf("CheckStatement() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var decoded checkResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Accuracy != factcheck.AccuracyObviouslyFake || !decoded.ObviouslyFake {
		t.Errorf("result = %+v", decoded)
	}
	if !decoded.UsedContext {
		t.Error("expected context to be used for a pronoun statement")
	}
	if checker.got.Transcript != "Let me tell you about my uncle." {
		t.Errorf("transcript passed = %q", checker.got.Transcript)
	}
}

func TestCheckStatement_Errors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		err  error
	}{
		{"missing statement", map[string]any{}, nil},
		{"blank statement", map[string]any{"statement": " "}, nil},
		{"upstream failure", map[string]any{"statement": "x"}, &factcheck.UpstreamError{Stage: factcheck.StageEvidence, Err: errors.New("timeout")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandlers(&stubChecker{err: tt.err})
			result, err := h.CheckStatement(context.Background(), callRequest("check_statement", tt.args))
			if err != nil {
				t.Fatalf("CheckStatement() error = %v", err)
			}
			if !result.IsError {
				t.Error("expected a tool error result")
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	h := newHandlers(&stubChecker{})

	result, err := h.SplitStatements(context.Background(), callRequest("split_statements", map[string]any{
		"text": "The earth is flat. Water is wet! And then",
	}))
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Statements []string `json:"statements"`
		Remainder  string   `json:"remainder"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Statements) != 2 || decoded.Remainder != "And then" {
		t.Errorf("split = %+v", decoded)
	}
}

func TestNewServer_RegistersTools(t *testing.T) {
	server := NewServer(&stubChecker{}, logger.NewNop())
	if server == nil {
		t.Fatal("NewServer() returned nil")
	}
}
