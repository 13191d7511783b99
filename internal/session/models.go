package session

import (
	"errors"
	"time"

	"github.com/yegors/live-facts/internal/factcheck"
	"github.com/yegors/live-facts/internal/transcription"
)

var (
	// ErrSessionEnded is returned for any operation on an ended session
	ErrSessionEnded = errors.New("session has ended")
	// ErrSessionActive is returned when starting a session while one is live
	ErrSessionActive = errors.New("a session is already active")
	// ErrNoSession is returned when there is no current session
	ErrNoSession = errors.New("no session")
	// ErrNotListening is returned when fragments arrive outside Listening
	ErrNotListening = errors.New("session is not listening")
	// ErrIndexOutOfRange is returned when attaching to an unknown statement
	ErrIndexOutOfRange = errors.New("statement index out of range")
	// ErrLoopStopped is returned once the controller's event loop has exited
	ErrLoopStopped = errors.New("session controller stopped")
)

// State is the lifecycle state of a session
type State string

const (
	StateNotStarted State = "not-started"
	StateListening  State = "listening"
	StatePaused     State = "paused"
	StateEnded      State = "ended"
)

// MicState mirrors the capture device state reported by the client
type MicState string

const (
	MicNotSetup  MicState = "not-setup"
	MicSettingUp MicState = "setting-up"
	MicReady     MicState = "ready"
	MicOpening   MicState = "opening"
	MicOpen      MicState = "open"
	MicError     MicState = "error"
	MicPausing   MicState = "pausing"
	MicPaused    MicState = "paused"
)

// Valid reports whether m is a known microphone state
func (m MicState) Valid() bool {
	switch m {
	case MicNotSetup, MicSettingUp, MicReady, MicOpening, MicOpen, MicError, MicPausing, MicPaused:
		return true
	}
	return false
}

// Statement is one finalized statement and, once classified, its result
type Statement struct {
	Index     uint64            `json:"index"`
	Text      string            `json:"text"`
	CreatedAt time.Time         `json:"timestamp"`
	Processed bool              `json:"processed"`
	Result    *factcheck.Result `json:"result,omitempty"`
}

// Snapshot is a point-in-time view of a session
type Snapshot struct {
	ID         string                        `json:"id"`
	State      State                         `json:"state"`
	Mic        MicState                      `json:"mic_state"`
	Connection transcription.ConnectionState `json:"connection_state"`
	StartedAt  *time.Time                    `json:"started_at,omitempty"`
	EndedAt    *time.Time                    `json:"ended_at,omitempty"`
	Speaking   bool                          `json:"speaking"`
	Phrase     string                        `json:"phrase,omitempty"`
	Buffer     string                        `json:"buffer,omitempty"`
	Statements []Statement                   `json:"statements"`
}

// Notification levels
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notification messages surfaced to the user
const (
	NoticeListening        = "Now listening."
	NoticeStopped          = "No longer listening."
	NoticeHardCap          = "The 3-minute recording limit was reached"
	NoticeMicUnavailable   = "Microphone unavailable"
	NoticeConnectionError  = "Connection Error"
	NoticeValidationFailed = "Error validating statement"
)
