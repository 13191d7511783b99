package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yegors/live-facts/internal/clock"
	"github.com/yegors/live-facts/internal/factcheck"
	"github.com/yegors/live-facts/internal/segmenter"
	"github.com/yegors/live-facts/internal/transcription"
	"github.com/yegors/live-facts/internal/websocket"
	"github.com/yegors/live-facts/pkg/logger"
)

// Controller defaults
const (
	DefaultHardCap           = 180 * time.Second
	DefaultKeepAliveInterval = 10 * time.Second
	DefaultCheckTimeout      = 60 * time.Second
)

// Broadcaster fans events out to connected clients. It must not block.
type Broadcaster interface {
	Broadcast(message *websocket.Message)
}

// Journal records statements and results for later inspection
type Journal interface {
	StartSession(ctx context.Context, sessionID string, startedAt time.Time) error
	EndSession(ctx context.Context, sessionID string, endedAt time.Time) error
	RecordStatement(ctx context.Context, sessionID string, index uint64, text string, createdAt time.Time) error
	RecordResult(ctx context.Context, sessionID string, index uint64, result *factcheck.Result) error
}

// Stream is a live transcription connection feeding one session
type Stream interface {
	Send(audio []byte) error
	KeepAlive() error
	CloseStream() error
}

// Config holds controller timing
type Config struct {
	QuietInterval     time.Duration
	HardCap           time.Duration
	KeepAliveInterval time.Duration
	CheckTimeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.QuietInterval <= 0 {
		c.QuietInterval = segmenter.DefaultQuietInterval
	}
	if c.HardCap <= 0 {
		c.HardCap = DefaultHardCap
	}
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = DefaultCheckTimeout
	}
	return c
}

// Deps are the collaborators a controller talks to. Broadcaster and Journal
// are optional.
type Deps struct {
	Clock       clock.Clock
	Checker     factcheck.Checker
	Broadcaster Broadcaster
	Journal     Journal
}

// Controller owns one session. Every state change runs on its event loop
// goroutine; public methods post closures into the loop. Classification runs
// on one goroutine per statement and only touches the Store.
type Controller struct {
	id          string
	config      Config
	clock       clock.Clock
	checker     factcheck.Checker
	broadcaster Broadcaster
	journal     Journal
	store       *Store
	logger      *logger.Logger

	baseCtx   context.Context
	events    chan func()
	loopDone  chan struct{}
	pipelines sync.WaitGroup
	state     atomic.Value

	// loop-owned
	current      State
	seg          *segmenter.Segmenter
	stream       Stream
	mic          MicState
	conn         transcription.ConnectionState
	hardCap      clock.Timer
	hardCapArmed bool
	keepAlive    clock.Timer
	keepAliveOn  bool
	keepAliveGen uint64
	startedAt    time.Time
	endedAt      time.Time
	speaking     bool
	phrase       string
}

// NewController creates a controller. ctx bounds classification and journal
// writes, which outlive the session that started them.
func NewController(ctx context.Context, id string, config Config, deps Deps, log *logger.Logger) *Controller {
	config = config.withDefaults()
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = nopBroadcaster{}
	}

	c := &Controller{
		id:          id,
		config:      config,
		clock:       deps.Clock,
		checker:     deps.Checker,
		broadcaster: deps.Broadcaster,
		journal:     deps.Journal,
		store:       NewStore(),
		logger:      log.Named("session").With(logger.String("session_id", id)),
		baseCtx:     ctx,
		events:      make(chan func(), 64),
		loopDone:    make(chan struct{}),
		current:     StateNotStarted,
		mic:         MicNotSetup,
		conn:        transcription.ConnectionClosed,
	}
	c.state.Store(StateNotStarted)
	c.seg = segmenter.New(
		segmenter.Config{QuietInterval: config.QuietInterval},
		deps.Clock,
		func(f func()) { c.post(f) },
		segmentSink{c},
		log,
	)
	return c
}

// Run processes events until ctx is cancelled
func (c *Controller) Run(ctx context.Context) {
	defer close(c.loopDone)

	for {
		select {
		case <-ctx.Done():
			c.cancelTimers()
			c.seg.Pause()
			return
		case f := <-c.events:
			f()
		}
	}
}

// ID returns the session id
func (c *Controller) ID() string { return c.id }

// State returns the current lifecycle state
func (c *Controller) State() State { return c.state.Load().(State) }

// Done is closed when the event loop exits
func (c *Controller) Done() <-chan struct{} { return c.loopDone }

// Statements returns the ordered statement list
func (c *Controller) Statements() []Statement { return c.store.Snapshot() }

// Wait blocks until every in-flight classification, journal write and
// stream close has finished
func (c *Controller) Wait() { c.pipelines.Wait() }

// Start enters Listening. Starting a paused session resumes it.
func (c *Controller) Start() error { return c.do(c.start) }

// Pause stops intake but keeps unfinished text
func (c *Controller) Pause() error { return c.do(c.pause) }

// Resume returns a paused session to Listening
func (c *Controller) Resume() error { return c.do(c.resume) }

// Stop ends the session, flushing unfinished text as a final statement
func (c *Controller) Stop() error { return c.do(c.stop) }

// Fragment feeds one transcript fragment into the session
func (c *Controller) Fragment(f segmenter.Fragment) error {
	return c.do(func() error { return c.fragment(f) })
}

// SetMicState records the capture device state reported by the client
func (c *Controller) SetMicState(m MicState) error {
	return c.do(func() error { return c.setMic(m) })
}

// SetStream attaches the live transcription connection
func (c *Controller) SetStream(s Stream) error {
	return c.do(func() error {
		if c.current == StateEnded {
			return ErrSessionEnded
		}
		c.stream = s
		c.syncKeepAlive()
		return nil
	})
}

// SendAudio forwards captured audio to the transcription stream
func (c *Controller) SendAudio(audio []byte) error {
	return c.do(func() error {
		switch {
		case c.current == StateEnded:
			return ErrSessionEnded
		case c.current != StateListening:
			return ErrNotListening
		case c.stream == nil:
			return fmt.Errorf("no transcription stream attached")
		}
		return c.stream.Send(audio)
	})
}

// Snapshot returns the session's current view
func (c *Controller) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := c.do(func() error {
		snap = c.snapshot()
		return nil
	})
	return snap, err
}

// HandleTranscript implements transcription.Handler
func (c *Controller) HandleTranscript(text string, isFinal bool) {
	c.post(func() {
		if err := c.fragment(segmenter.Fragment{Text: text, IsFinal: isFinal}); err != nil {
			c.logger.Debug("Dropping transcript", logger.Error(err), logger.String("text", text))
		}
	})
}

// HandleConnectionState implements transcription.Handler
func (c *Controller) HandleConnectionState(state transcription.ConnectionState, err error) {
	c.post(func() { c.setConnection(state, err) })
}

func (c *Controller) post(f func()) bool {
	select {
	case c.events <- f:
		return true
	case <-c.loopDone:
		return false
	}
}

func (c *Controller) do(f func() error) error {
	errc := make(chan error, 1)
	if !c.post(func() { errc <- f() }) {
		return ErrLoopStopped
	}
	select {
	case err := <-errc:
		return err
	case <-c.loopDone:
		select {
		case err := <-errc:
			return err
		default:
			return ErrLoopStopped
		}
	}
}

func (c *Controller) start() error {
	switch c.current {
	case StateEnded:
		return ErrSessionEnded
	case StateListening:
		return nil
	case StatePaused:
		return c.resume()
	}

	c.startedAt = c.clock.Now()
	c.setState(StateListening)
	c.armHardCap()
	c.notify(LevelSuccess, NoticeListening)
	c.logger.Info("Session listening")
	return nil
}

func (c *Controller) pause() error {
	switch c.current {
	case StateEnded:
		return ErrSessionEnded
	case StatePaused:
		return nil
	case StateNotStarted:
		return ErrNotListening
	}

	c.seg.Pause()
	c.setState(StatePaused)
	c.notify(LevelWarning, NoticeStopped)
	c.logger.Info("Session paused", logger.String("buffer", c.seg.Buffer()))
	return nil
}

func (c *Controller) resume() error {
	switch c.current {
	case StateEnded:
		return ErrSessionEnded
	case StateListening:
		return nil
	case StateNotStarted:
		return c.start()
	}

	c.setState(StateListening)
	c.seg.Resume()
	c.notify(LevelSuccess, NoticeListening)
	c.logger.Info("Session resumed")
	return nil
}

func (c *Controller) stop() error {
	if c.current == StateEnded {
		return nil
	}

	c.seg.Stop()
	c.cancelTimers()
	c.endedAt = c.clock.Now()
	c.setState(StateEnded)
	c.notify(LevelWarning, NoticeStopped)

	if c.stream != nil {
		// The stream reports its own state changes back through post, so the
		// close must not run on the loop.
		stream := c.stream
		c.conn = transcription.ConnectionClosing
		c.pipelines.Add(1)
		go func() {
			defer c.pipelines.Done()
			if err := stream.CloseStream(); err != nil {
				c.logger.Debug("Failed to close transcription stream", logger.Error(err))
			}
		}()
	}

	if c.journal != nil {
		endedAt := c.endedAt
		c.pipelines.Add(1)
		go func() {
			defer c.pipelines.Done()
			if err := c.journal.EndSession(c.baseCtx, c.id, endedAt); err != nil {
				c.logger.Warn("Failed to journal session end", logger.Error(err))
			}
		}()
	}

	c.logger.Info("Session ended", logger.Int("statements", c.store.Len()))
	return nil
}

func (c *Controller) fragment(f segmenter.Fragment) error {
	switch c.current {
	case StateEnded:
		return ErrSessionEnded
	case StateListening:
	default:
		return ErrNotListening
	}
	c.seg.OnFragment(f)
	return nil
}

func (c *Controller) setMic(m MicState) error {
	if !m.Valid() {
		return fmt.Errorf("unknown microphone state %q", m)
	}
	prev := c.mic
	c.mic = m
	if m == MicError && prev != MicError {
		c.notify(LevelError, NoticeMicUnavailable)
	}
	c.syncListening()
	c.syncKeepAlive()
	return nil
}

func (c *Controller) setConnection(state transcription.ConnectionState, err error) {
	c.conn = state
	if err != nil {
		c.logger.Warn("Transcription connection error", logger.Error(err))
		c.notify(LevelError, NoticeConnectionError)
	}
	if state == transcription.ConnectionClosed {
		c.stream = nil
	}
	c.syncListening()
	c.syncKeepAlive()
	c.broadcastState()
}

// syncListening follows the capture device: an open mic on an open
// connection listens, a paused mic pauses.
func (c *Controller) syncListening() {
	if c.conn != transcription.ConnectionOpen || c.current == StateEnded {
		return
	}
	switch {
	case c.mic == MicOpen && c.current != StateListening:
		c.start()
	case c.mic == MicPaused && c.current == StateListening:
		c.pause()
	}
}

func (c *Controller) syncKeepAlive() {
	want := c.stream != nil &&
		c.conn == transcription.ConnectionOpen &&
		c.mic != MicOpen &&
		c.current != StateEnded
	if want == c.keepAliveOn {
		return
	}
	c.keepAliveOn = want

	if !want {
		c.stopKeepAlive()
		return
	}
	c.sendKeepAlive()
	c.armKeepAlive()
}

func (c *Controller) armKeepAlive() {
	c.keepAliveGen++
	gen := c.keepAliveGen
	c.keepAlive = c.clock.AfterFunc(c.config.KeepAliveInterval, func() {
		c.post(func() { c.onKeepAlive(gen) })
	})
}

func (c *Controller) onKeepAlive(gen uint64) {
	if gen != c.keepAliveGen || !c.keepAliveOn {
		return
	}
	c.sendKeepAlive()
	c.armKeepAlive()
}

func (c *Controller) sendKeepAlive() {
	if c.stream == nil {
		return
	}
	if err := c.stream.KeepAlive(); err != nil {
		c.logger.Warn("Failed to send keep-alive", logger.Error(err))
	}
}

func (c *Controller) stopKeepAlive() {
	c.keepAliveOn = false
	c.keepAliveGen++
	if c.keepAlive != nil {
		c.keepAlive.Stop()
		c.keepAlive = nil
	}
}

// armHardCap schedules the recording limit once per session
func (c *Controller) armHardCap() {
	if c.hardCapArmed {
		return
	}
	c.hardCapArmed = true
	c.hardCap = c.clock.AfterFunc(c.config.HardCap, func() {
		c.post(c.onHardCap)
	})
}

func (c *Controller) onHardCap() {
	if c.current == StateEnded {
		return
	}
	c.logger.Info("Recording limit reached", logger.Duration("limit", c.config.HardCap))
	c.notify(LevelWarning, NoticeHardCap)
	c.stop()
}

func (c *Controller) cancelTimers() {
	if c.hardCap != nil {
		c.hardCap.Stop()
		c.hardCap = nil
	}
	c.stopKeepAlive()
}

func (c *Controller) setState(s State) {
	c.current = s
	c.state.Store(s)
	c.syncKeepAlive()
	c.broadcastState()
}

func (c *Controller) snapshot() Snapshot {
	snap := Snapshot{
		ID:         c.id,
		State:      c.current,
		Mic:        c.mic,
		Connection: c.conn,
		Speaking:   c.speaking,
		Phrase:     c.phrase,
		Buffer:     c.seg.Buffer(),
		Statements: c.store.Snapshot(),
	}
	if !c.startedAt.IsZero() {
		t := c.startedAt
		snap.StartedAt = &t
	}
	if !c.endedAt.IsZero() {
		t := c.endedAt
		snap.EndedAt = &t
	}
	return snap
}

func (c *Controller) broadcastState() {
	c.broadcaster.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeSessionState,
		Data: map[string]any{
			"session_id":       c.id,
			"state":            c.current,
			"mic_state":        c.mic,
			"connection_state": c.conn,
		},
	})
}

func (c *Controller) notify(level, message string) {
	c.broadcaster.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeNotification,
		Data: map[string]any{
			"session_id": c.id,
			"level":      level,
			"message":    message,
		},
	})
}

// onStatement records a finalized statement and starts classifying it
func (c *Controller) onStatement(st segmenter.Statement) {
	stmt := Statement{Index: st.Index, Text: st.Text, CreatedAt: st.CreatedAt}
	transcript := c.store.Transcript(st.Index)

	if err := c.store.Append(stmt); err != nil {
		c.logger.Error("Failed to append statement", logger.Error(err))
		return
	}

	c.logger.Info("Statement finalized",
		logger.Uint64("index", stmt.Index),
		logger.String("text", stmt.Text))

	c.broadcaster.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeStatementCreated,
		Data: map[string]any{"session_id": c.id, "statement": stmt},
	})

	c.pipelines.Add(1)
	go c.classify(stmt, transcript)
}

func (c *Controller) classify(stmt Statement, transcript string) {
	defer c.pipelines.Done()

	log := c.logger.With(logger.Uint64("index", stmt.Index))

	if c.journal != nil {
		if err := c.journal.RecordStatement(c.baseCtx, c.id, stmt.Index, stmt.Text, stmt.CreatedAt); err != nil {
			log.Warn("Failed to journal statement", logger.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(c.baseCtx, c.config.CheckTimeout)
	defer cancel()

	result, err := c.checker.Check(ctx, factcheck.Request{Statement: stmt.Text, Transcript: transcript})
	if err != nil {
		log.Error("Statement classification failed", logger.Error(err))
		c.notify(LevelError, NoticeValidationFailed)
		return
	}

	attached, err := c.store.Attach(stmt.Index, result)
	if err != nil {
		log.Error("Failed to attach result", logger.Error(err))
		return
	}
	if !attached {
		log.Debug("Statement already has a result")
		return
	}

	updated, _ := c.store.Get(stmt.Index)
	c.broadcaster.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeStatementUpdated,
		Data: map[string]any{"session_id": c.id, "statement": updated},
	})

	if c.journal != nil {
		if err := c.journal.RecordResult(c.baseCtx, c.id, stmt.Index, result); err != nil {
			log.Warn("Failed to journal result", logger.Error(err))
		}
	}

	if result.Alert() {
		log.Info("Obviously fake statement", logger.String("reasoning", result.Reasoning))
		c.broadcaster.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeAlert,
			Data: map[string]any{
				"session_id": c.id,
				"index":      stmt.Index,
				"statement":  stmt.Text,
				"reasoning":  result.Reasoning,
			},
		})
	}
}

// segmentSink receives segmenter output on the event loop
type segmentSink struct {
	c *Controller
}

func (s segmentSink) StatementFinalized(st segmenter.Statement) {
	s.c.onStatement(st)
}

func (s segmentSink) SpeakingChanged(speaking bool, phrase string) {
	s.c.speaking = speaking
	s.c.phrase = phrase
	s.c.broadcaster.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeSpeaking,
		Data: map[string]any{"session_id": s.c.id, "speaking": speaking, "phrase": phrase},
	})
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(*websocket.Message) {}
