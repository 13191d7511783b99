package session

import (
	"errors"
	"testing"

	"github.com/yegors/live-facts/pkg/logger"
)

func TestSocketHandler_Messages(t *testing.T) {
	m := newTestManager(t, nil, nil)
	h := NewSocketHandler(m, logger.NewNop())

	if err := h.HandleMessage(nil, "session_pause", nil); !errors.Is(err, ErrNoSession) {
		t.Errorf("pause without session error = %v, want ErrNoSession", err)
	}

	c, err := m.Start()
	if err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		msgType string
		data    map[string]any
		wantErr bool
	}{
		{"fragment", map[string]any{"text": "Water is wet.", "is_final": true}, false},
		{"fragment", map[string]any{"text": "  "}, true},
		{"session_pause", nil, false},
		{"mic_state", map[string]any{"state": "ready"}, false},
		{"mic_state", map[string]any{"state": "on fire"}, true},
		{"session_resume", nil, false},
		{"bogus", nil, true},
		{"session_stop", nil, false},
	}
	for _, s := range steps {
		err := h.HandleMessage(nil, s.msgType, s.data)
		if (err != nil) != s.wantErr {
			t.Errorf("HandleMessage(%s, %v) error = %v, wantErr %v", s.msgType, s.data, err, s.wantErr)
		}
	}

	c.Wait()
	if got := texts(c.Statements()); len(got) != 1 || got[0] != "Water is wet." {
		t.Errorf("statements = %q", got)
	}
	if c.State() != StateEnded {
		t.Errorf("State() = %q, want ended", c.State())
	}
	if err := h.HandleBinary(nil, []byte{1}); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("HandleBinary() after stop error = %v", err)
	}
}
