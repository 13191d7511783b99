package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yegors/live-facts/internal/clock"
	"github.com/yegors/live-facts/internal/config"
	"github.com/yegors/live-facts/internal/factcheck"
	"github.com/yegors/live-facts/internal/session"
	"github.com/yegors/live-facts/internal/storage/sqlite"
	"github.com/yegors/live-facts/pkg/logger"
)

type stubChecker struct {
	result *factcheck.Result
	err    error
}

func (s *stubChecker) Check(_ context.Context, req factcheck.Request) (*factcheck.Result, error) {
	if strings.TrimSpace(req.Statement) == "" {
		return nil, factcheck.ErrEmptyStatement
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type testServer struct {
	server  *httptest.Server
	manager *session.Manager
	journal *sqlite.StatementStorage
	checker *stubChecker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.NewNop()

	db, err := sqlite.Open(sqlite.MemoryPath, log)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	journal, err := sqlite.NewStatementStorage(db, log)
	if err != nil {
		t.Fatal(err)
	}

	checker := &stubChecker{result: &factcheck.Result{
		Type:      factcheck.Checkable,
		Accuracy:  factcheck.AccuracyObviouslyFake,
		Reasoning: "The earth is round.",
	}}
	manager := session.NewManager(context.Background(), session.Config{}, session.Deps{
		Clock:   clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		Checker: checker,
		Journal: journal,
	}, nil, log)
	t.Cleanup(manager.Close)

	handler := NewHandler(checker, manager, journal, nil, config.Default(), log)
	server := httptest.NewServer(NewRouter(handler, []string{"*"}).Routes())
	t.Cleanup(server.Close)

	return &testServer{server: server, manager: manager, journal: journal, checker: checker}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, ts.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestValidateStatement(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/validate-statement", `{"statement":"The earth is flat."}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["statement"] != "The earth is flat." || body["type"] != "checkable" || body["accuracy"] != "obviously-fake" {
		t.Errorf("body = %v", body)
	}
}

func TestValidateStatement_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		checkerErr error
		wantStatus int
	}{
		{"missing statement", `{}`, nil, http.StatusBadRequest},
		{"blank statement", `{"statement":"   "}`, nil, http.StatusBadRequest},
		{"malformed body", `{"statement":`, nil, http.StatusBadRequest},
		{"upstream failure", `{"statement":"x"}`, &factcheck.UpstreamError{Stage: factcheck.StageVerdict, Err: errors.New("boom")}, http.StatusBadGateway},
		{"other failure", `{"statement":"x"}`, errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.checker.err = tt.checkerErr

			resp, body := ts.do(t, http.MethodPost, "/api/validate-statement", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if body["error"] == nil {
				t.Errorf("body has no error field: %v", body)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodGet, "/api/v1/session", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET before start: status = %d, want 404", resp.StatusCode)
	}

	resp, body := ts.do(t, http.MethodPost, "/api/v1/session", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start: status = %d, body = %v", resp.StatusCode, body)
	}
	if body["state"] != string(session.StateListening) {
		t.Errorf("state = %v", body["state"])
	}
	sessionID, _ := body["id"].(string)

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/session", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second start: status = %d, want 409", resp.StatusCode)
	}

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/session/fragments", `{"text":"The earth is flat.","is_final":true}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("fragment: status = %d", resp.StatusCode)
	}

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/session/fragments", `{"text":"  ","is_final":true}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank fragment: status = %d, want 400", resp.StatusCode)
	}

	c, err := ts.manager.Current()
	if err != nil {
		t.Fatal(err)
	}
	c.Wait()

	resp, body = ts.do(t, http.MethodGet, "/api/v1/session/statements", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("statements: status = %d", resp.StatusCode)
	}
	statements, _ := body["statements"].([]any)
	if len(statements) != 1 {
		t.Fatalf("statements = %v", body["statements"])
	}
	first := statements[0].(map[string]any)
	if first["text"] != "The earth is flat." || first["processed"] != true {
		t.Errorf("statement = %v", first)
	}

	resp, body = ts.do(t, http.MethodPost, "/api/v1/session/pause", "")
	if resp.StatusCode != http.StatusOK || body["state"] != string(session.StatePaused) {
		t.Errorf("pause: status = %d, body = %v", resp.StatusCode, body)
	}

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/session/fragments", `{"text":"ignored.","is_final":true}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("fragment while paused: status = %d, want 409", resp.StatusCode)
	}

	resp, body = ts.do(t, http.MethodPost, "/api/v1/session/resume", "")
	if resp.StatusCode != http.StatusOK || body["state"] != string(session.StateListening) {
		t.Errorf("resume: status = %d, body = %v", resp.StatusCode, body)
	}

	resp, body = ts.do(t, http.MethodPost, "/api/v1/session/stop", "")
	if resp.StatusCode != http.StatusOK || body["state"] != string(session.StateEnded) {
		t.Errorf("stop: status = %d, body = %v", resp.StatusCode, body)
	}

	resp, body = ts.do(t, http.MethodGet, "/api/v1/journal/sessions/"+sessionID+"/statements", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("journal: status = %d", resp.StatusCode)
	}
	if body["count"] != float64(1) {
		t.Errorf("journal count = %v", body["count"])
	}

	resp, body = ts.do(t, http.MethodGet, "/api/v1/journal/sessions", "")
	if resp.StatusCode != http.StatusOK || body["count"] != float64(1) {
		t.Errorf("journal sessions: status = %d, body = %v", resp.StatusCode, body)
	}

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/session", "")
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("restart after stop: status = %d, want 201", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health: status = %d, body = %v", resp.StatusCode, body)
	}
	if body["session_state"] != string(session.StateNotStarted) {
		t.Errorf("session_state = %v", body["session_state"])
	}
}

func TestJournalStatements_Pagination(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	now := time.Now()

	ts.journal.StartSession(ctx, "s1", now)
	for i := 0; i < 5; i++ {
		ts.journal.RecordStatement(ctx, "s1", uint64(i), "statement", now.Add(time.Duration(i)*time.Second))
	}

	_, body := ts.do(t, http.MethodGet, "/api/v1/journal/statements?limit=2&offset=1", "")
	if body["count"] != float64(2) {
		t.Errorf("count = %v", body["count"])
	}
}

func TestCORSPreflight(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"wildcard", []string{"*"}, "http://localhost:3000", "*"},
		{"listed origin", []string{"http://localhost:3000"}, "http://localhost:3000", "http://localhost:3000"},
		{"unlisted origin", []string{"http://localhost:3000"}, "http://evil.example", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(NewRouter(&Handler{logger: logger.NewNop()}, tt.origins).Routes())
			defer server.Close()

			req, _ := http.NewRequest(http.MethodOptions, server.URL+"/api/validate-statement", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			req.Header.Set("Access-Control-Request-Headers", "Content-Type")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, want 200", resp.StatusCode)
			}
			if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePaginationParams(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 100, 0},
		{"limit=5&offset=10", 5, 10},
		{"limit=-1&offset=-3", 100, 0},
		{"limit=abc", 100, 0},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		limit, offset := parsePaginationParams(req)
		if limit != tt.wantLimit || offset != tt.wantOffset {
			t.Errorf("%q: got (%d, %d), want (%d, %d)", tt.query, limit, offset, tt.wantLimit, tt.wantOffset)
		}
	}
}
