package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yegors/live-facts/pkg/logger"
)

// DefaultURL is the Deepgram live transcription endpoint
const DefaultURL = "wss://api.deepgram.com/v1/listen"

// ErrStreamClosed is returned when writing to a closed stream
var ErrStreamClosed = errors.New("transcription stream closed")

// Client opens live transcription streams against Deepgram
type Client struct {
	config Config
	dialer *websocket.Dialer
	logger *logger.Logger
}

// NewClient creates a new Deepgram client
func NewClient(config Config, logger *logger.Logger) *Client {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 30 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	return &Client{
		config: config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.HandshakeTimeout,
		},
		logger: logger.Named("deepgram"),
	}
}

// BuildURL returns the listen URL with the configured query parameters
func (c *Client) BuildURL() (string, error) {
	u, err := url.Parse(c.config.URL)
	if err != nil {
		return "", fmt.Errorf("invalid deepgram url: %w", err)
	}

	q := u.Query()
	if c.config.Model != "" {
		q.Set("model", c.config.Model)
	}
	if c.config.Language != "" {
		q.Set("language", c.config.Language)
	}
	q.Set("interim_results", strconv.FormatBool(c.config.InterimResults))
	q.Set("smart_format", strconv.FormatBool(c.config.SmartFormat))
	q.Set("filler_words", strconv.FormatBool(c.config.FillerWords))
	if c.config.EndpointingMs > 0 {
		q.Set("endpointing", strconv.Itoa(c.config.EndpointingMs))
	}
	for _, kw := range c.config.Keywords {
		q.Add("keywords", kw)
	}
	if c.config.Encoding != "" {
		q.Set("encoding", c.config.Encoding)
		if c.config.SampleRate > 0 {
			q.Set("sample_rate", strconv.Itoa(c.config.SampleRate))
		}
		if c.config.Channels > 0 {
			q.Set("channels", strconv.Itoa(c.config.Channels))
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Open dials Deepgram and starts delivering transcripts to h
func (c *Client) Open(ctx context.Context, h Handler) (*Stream, error) {
	if c.config.APIKey == "" {
		return nil, fmt.Errorf("deepgram API key is required for live transcription")
	}

	listenURL, err := c.BuildURL()
	if err != nil {
		return nil, err
	}

	h.HandleConnectionState(ConnectionConnecting, nil)

	header := http.Header{}
	header.Set("Authorization", "Token "+c.config.APIKey)

	conn, resp, err := c.dialer.DialContext(ctx, listenURL, header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %s)", err, resp.Status)
		}
		h.HandleConnectionState(ConnectionClosed, err)
		return nil, fmt.Errorf("failed to connect to deepgram: %w", err)
	}

	s := &Stream{
		conn:         conn,
		handler:      h,
		writeTimeout: c.config.WriteTimeout,
		done:         make(chan struct{}),
		logger:       c.logger,
	}

	c.logger.Info("Connected to Deepgram", logger.String("model", c.config.Model))
	h.HandleConnectionState(ConnectionOpen, nil)

	go s.readLoop()

	return s, nil
}

// Stream is one live transcription connection. Writes are serialized; the
// read loop runs on its own goroutine until the connection closes.
type Stream struct {
	conn         *websocket.Conn
	handler      Handler
	writeTimeout time.Duration
	logger       *logger.Logger

	mu         sync.Mutex
	closed     bool
	closing    bool
	chunkCount int

	done chan struct{}
}

// Send forwards one chunk of encoded audio
func (s *Stream) Send(audio []byte) error {
	if len(audio) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.closing {
		return ErrStreamClosed
	}

	s.chunkCount++
	if s.chunkCount%100 == 0 {
		s.logger.Debug("Sending audio chunk", logger.Int("chunk_number", s.chunkCount))
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to send audio chunk: %w", err)
	}
	return nil
}

// KeepAlive tells Deepgram to hold the connection open while no audio flows
func (s *Stream) KeepAlive() error {
	return s.writeControl("KeepAlive")
}

// CloseStream asks Deepgram to flush pending results and close the connection
func (s *Stream) CloseStream() error {
	data, err := json.Marshal(controlMessage{Type: "CloseStream"})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed || s.closing {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	s.closing = true
	s.mu.Unlock()

	s.handler.HandleConnectionState(ConnectionClosing, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send CloseStream: %w", err)
	}
	return nil
}

// Close tears the connection down without waiting for Deepgram
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.conn.Close()
}

// Done is closed when the read loop exits
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

func (s *Stream) writeControl(msgType string) error {
	data, err := json.Marshal(controlMessage{Type: msgType})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.closing {
		return ErrStreamClosed
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send %s: %w", msgType, err)
	}
	return nil
}

func (s *Stream) readLoop() {
	var readErr error
	defer func() {
		s.mu.Lock()
		expected := s.closed || s.closing
		s.closed = true
		s.mu.Unlock()

		s.conn.Close()
		if expected {
			readErr = nil
		}
		s.handler.HandleConnectionState(ConnectionClosed, readErr)
		close(s.done)
	}()

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			expected := s.closed || s.closing
			s.mu.Unlock()

			switch {
			case expected || websocket.IsCloseError(err, websocket.CloseNormalClosure):
				s.logger.Info("Deepgram connection closed")
			case isReconnectableError(err):
				s.logger.Warn("Deepgram connection issue detected", logger.Error(err))
				readErr = err
			default:
				s.logger.Error("Error receiving Deepgram message", logger.Error(err))
				readErr = err
			}
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		text, isFinal, ok, err := parseMessage(data)
		if err != nil {
			s.logger.Error("Error parsing event", logger.Error(err))
			continue
		}
		if !ok {
			continue
		}

		s.handler.HandleTranscript(text, isFinal)
	}
}

// parseMessage extracts the transcript of a Results message. ok is false for
// every other message type and for results with an empty transcript.
func parseMessage(data []byte) (text string, isFinal bool, ok bool, err error) {
	var msg resultsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", false, false, err
	}

	if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
		return "", false, false, nil
	}

	text = msg.Channel.Alternatives[0].Transcript
	if strings.TrimSpace(text) == "" {
		return "", false, false, nil
	}
	return text, msg.IsFinal, true, nil
}

// reconnectableErrors are connection failures that a fresh stream may fix
var reconnectableErrors = []string{
	"websocket: close 1001 (going away)",
	"websocket: close 1006 (abnormal closure)",
	"use of closed network connection",
	"connection reset by peer",
	"EOF",
	"i/o timeout",
}

// isReconnectableError reports whether err looks like a dropped connection
// rather than a protocol or authentication failure
func isReconnectableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, reconnectErr := range reconnectableErrors {
		if strings.Contains(msg, reconnectErr) {
			return true
		}
	}
	return false
}
