package session

import (
	"fmt"
	"strings"

	"github.com/yegors/live-facts/internal/segmenter"
	"github.com/yegors/live-facts/internal/websocket"
	"github.com/yegors/live-facts/pkg/logger"
)

// SocketHandler drives the current session from websocket clients. Text
// frames carry control messages, binary frames carry audio.
type SocketHandler struct {
	manager *Manager
	logger  *logger.Logger
}

// NewSocketHandler creates a new socket handler
func NewSocketHandler(manager *Manager, log *logger.Logger) *SocketHandler {
	return &SocketHandler{
		manager: manager,
		logger:  log.Named("session-socket"),
	}
}

// HandleMessage implements websocket.MessageHandler
func (h *SocketHandler) HandleMessage(client *websocket.Client, messageType string, data map[string]any) error {
	if messageType == websocket.MessageTypeSessionStart {
		c, err := h.manager.Start()
		if err != nil {
			return err
		}
		h.logger.Info("Session started over websocket",
			logger.String("session_id", c.ID()),
			logger.String("client_id", client.ID()))
		return nil
	}

	c, err := h.manager.Current()
	if err != nil {
		return err
	}

	switch messageType {
	case websocket.MessageTypeSessionPause:
		return c.Pause()
	case websocket.MessageTypeSessionResume:
		return c.Resume()
	case websocket.MessageTypeSessionStop:
		return c.Stop()
	case websocket.MessageTypeFragment:
		text, _ := data["text"].(string)
		isFinal, _ := data["is_final"].(bool)
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("fragment has no text")
		}
		return c.Fragment(segmenter.Fragment{Text: text, IsFinal: isFinal})
	case websocket.MessageTypeMicState:
		state, _ := data["state"].(string)
		return c.SetMicState(MicState(state))
	default:
		return fmt.Errorf("unknown message type %q", messageType)
	}
}

// HandleBinary implements websocket.BinaryHandler
func (h *SocketHandler) HandleBinary(_ *websocket.Client, audio []byte) error {
	c, err := h.manager.Current()
	if err != nil {
		return err
	}
	return c.SendAudio(audio)
}

// OnConnect sends the current session to a newly connected client
func (h *SocketHandler) OnConnect(client *websocket.Client) {
	c, err := h.manager.Current()
	if err != nil {
		return
	}
	snap, err := c.Snapshot()
	if err != nil {
		return
	}
	client.SendMessage(&websocket.Message{
		Type: websocket.MessageTypeSessionState,
		Data: map[string]any{
			"session_id":       snap.ID,
			"state":            snap.State,
			"mic_state":        snap.Mic,
			"connection_state": snap.Connection,
			"statements":       snap.Statements,
		},
	})
}
