package transcription

import (
	"time"
)

// ConnectionState is the lifecycle state of a live transcription connection
type ConnectionState string

const (
	ConnectionConnecting ConnectionState = "connecting"
	ConnectionOpen       ConnectionState = "open"
	ConnectionClosing    ConnectionState = "closing"
	ConnectionClosed     ConnectionState = "closed"
)

// Handler receives transcription events. Calls come from the stream's read
// goroutine.
type Handler interface {
	HandleTranscript(text string, isFinal bool)
	HandleConnectionState(state ConnectionState, err error)
}

// Config represents the configuration for the Deepgram live API
type Config struct {
	APIKey           string
	URL              string
	Model            string
	Language         string
	InterimResults   bool
	SmartFormat      bool
	FillerWords      bool
	EndpointingMs    int
	Keywords         []string
	Encoding         string // empty lets Deepgram sniff containerized audio
	SampleRate       int
	Channels         int
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// resultsMessage is the subset of a Deepgram "Results" message we use
type resultsMessage struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// controlMessage is a client-to-server text frame
type controlMessage struct {
	Type string `json:"type"`
}
