package segmenter

import (
	"strings"
	"time"

	"github.com/yegors/live-facts/internal/clock"
	"github.com/yegors/live-facts/pkg/logger"
)

// DefaultQuietInterval is how long the transcript must stay silent before
// buffered text is flushed as a statement
const DefaultQuietInterval = 3000 * time.Millisecond

// Fragment is one incremental piece of transcribed speech
type Fragment struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

// Statement is a finalized unit of text emitted by the Segmenter
type Statement struct {
	Index     uint64
	Text      string
	CreatedAt time.Time
}

// Handler receives Segmenter output. Calls are made on the goroutine that
// drives the Segmenter.
type Handler interface {
	StatementFinalized(st Statement)
	SpeakingChanged(speaking bool, phrase string)
}

// Dispatcher runs f on the goroutine that owns the Segmenter. Timer callbacks
// go through it so they never mutate state concurrently with fragment intake.
type Dispatcher func(f func())

// Config holds Segmenter settings
type Config struct {
	QuietInterval time.Duration
}

// Segmenter turns a stream of transcript fragments into ordered statements.
// It is not safe for concurrent use; all calls must come from one goroutine
// (the one its Dispatcher runs callbacks on).
type Segmenter struct {
	clock    clock.Clock
	quiet    time.Duration
	dispatch Dispatcher
	handler  Handler
	logger   *logger.Logger

	buffer         string
	lastFragmentAt time.Time
	silence        clock.Timer
	silenceGen     uint64
	nextIndex      uint64
	speaking       bool
	stopped        bool
}

// New creates a Segmenter. A nil dispatch runs timer callbacks directly on
// the timer's goroutine, which is only correct when the clock fires timers
// on the caller's goroutine (as clock.Fake does).
func New(cfg Config, clk clock.Clock, dispatch Dispatcher, handler Handler, log *logger.Logger) *Segmenter {
	quiet := cfg.QuietInterval
	if quiet <= 0 {
		quiet = DefaultQuietInterval
	}
	if dispatch == nil {
		dispatch = func(f func()) { f() }
	}
	return &Segmenter{
		clock:    clk,
		quiet:    quiet,
		dispatch: dispatch,
		handler:  handler,
		logger:   log.Named("segmenter"),
	}
}

// OnFragment folds one transcript fragment into the buffer
func (s *Segmenter) OnFragment(f Fragment) {
	if s.stopped {
		s.logger.Warn("Fragment received after stop, dropping", logger.String("text", f.Text))
		return
	}

	text := strings.TrimSpace(f.Text)
	if text == "" {
		s.logger.Debug("Dropping empty fragment", logger.Bool("is_final", f.IsFinal))
		return
	}

	s.lastFragmentAt = s.clock.Now()
	s.armSilence()

	if !f.IsFinal {
		s.setSpeaking(true, text)
		return
	}
	s.setSpeaking(false, "")

	s.buffer = strings.TrimSpace(s.buffer + " " + text)
	completed, remainder := Split(s.buffer)
	for _, c := range completed {
		s.emit(c)
	}
	s.buffer = remainder

	if len(completed) > 0 {
		s.logger.Debug("Segmented final fragment",
			logger.Int("completed", len(completed)),
			logger.String("remainder", remainder))
	}
}

// Stop cancels the silence timer and flushes any buffered text. No further
// fragments are accepted afterwards.
func (s *Segmenter) Stop() {
	if s.stopped {
		return
	}
	s.cancelSilence()
	s.setSpeaking(false, "")
	s.flush()
	s.stopped = true
}

// Pause cancels the silence timer but keeps the buffer
func (s *Segmenter) Pause() {
	s.cancelSilence()
	s.setSpeaking(false, "")
}

// Resume re-arms a fresh silence timer when text is waiting in the buffer
func (s *Segmenter) Resume() {
	if s.stopped || s.buffer == "" {
		return
	}
	s.lastFragmentAt = s.clock.Now()
	s.armSilence()
}

// Buffer returns the unfinished text
func (s *Segmenter) Buffer() string { return s.buffer }

// LastFragmentAt returns when the last non-empty fragment arrived
func (s *Segmenter) LastFragmentAt() time.Time { return s.lastFragmentAt }

// NextIndex returns the index the next statement will receive
func (s *Segmenter) NextIndex() uint64 { return s.nextIndex }

// Speaking reports whether an interim fragment is currently on display
func (s *Segmenter) Speaking() bool { return s.speaking }

func (s *Segmenter) armSilence() {
	s.cancelSilence()
	s.silenceGen++
	gen := s.silenceGen
	s.silence = s.clock.AfterFunc(s.quiet, func() {
		s.dispatch(func() { s.onSilence(gen) })
	})
}

func (s *Segmenter) cancelSilence() {
	if s.silence != nil {
		s.silence.Stop()
		s.silence = nil
	}
	// A callback already queued on the dispatcher is ignored by generation.
	s.silenceGen++
}

func (s *Segmenter) onSilence(gen uint64) {
	if gen != s.silenceGen || s.stopped {
		return
	}
	s.silence = nil

	elapsed := s.clock.Now().Sub(s.lastFragmentAt)
	if elapsed < s.quiet {
		s.logger.Debug("Silence timer fired early, re-arming", logger.Duration("elapsed", elapsed))
		s.silenceGen++
		gen := s.silenceGen
		s.silence = s.clock.AfterFunc(s.quiet-elapsed, func() {
			s.dispatch(func() { s.onSilence(gen) })
		})
		return
	}

	s.setSpeaking(false, "")
	if s.buffer != "" {
		s.logger.Debug("Silence reached, flushing buffer", logger.String("buffer", s.buffer))
	}
	s.flush()
}

func (s *Segmenter) flush() {
	if s.buffer == "" {
		return
	}
	text := s.buffer + "."
	s.buffer = ""
	s.emit(text)
}

func (s *Segmenter) emit(text string) {
	st := Statement{
		Index:     s.nextIndex,
		Text:      strings.TrimSpace(text),
		CreatedAt: s.clock.Now(),
	}
	s.nextIndex++
	if s.handler != nil {
		s.handler.StatementFinalized(st)
	}
}

func (s *Segmenter) setSpeaking(speaking bool, phrase string) {
	if speaking == s.speaking && !speaking {
		return
	}
	s.speaking = speaking
	if s.handler != nil {
		s.handler.SpeakingChanged(speaking, phrase)
	}
}
