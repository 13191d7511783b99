package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/yegors/live-facts/internal/clock"
	"github.com/yegors/live-facts/internal/transcription"
	"github.com/yegors/live-facts/pkg/logger"
)

// StreamOpener opens a live transcription stream delivering to h
type StreamOpener interface {
	OpenStream(ctx context.Context, h transcription.Handler) (Stream, error)
}

// StreamOpenerFunc adapts a function to StreamOpener
type StreamOpenerFunc func(ctx context.Context, h transcription.Handler) (Stream, error)

// OpenStream implements StreamOpener
func (f StreamOpenerFunc) OpenStream(ctx context.Context, h transcription.Handler) (Stream, error) {
	return f(ctx, h)
}

// Manager owns the single current session
type Manager struct {
	ctx    context.Context
	config Config
	deps   Deps
	opener StreamOpener
	logger *logger.Logger

	mu      sync.Mutex
	current *Controller
	cancel  context.CancelFunc
}

// NewManager creates a session manager. opener may be nil when clients push
// transcript fragments themselves.
func NewManager(ctx context.Context, config Config, deps Deps, opener StreamOpener, log *logger.Logger) *Manager {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	return &Manager{
		ctx:    ctx,
		config: config,
		deps:   deps,
		opener: opener,
		logger: log,
	}
}

// Start creates a new session and begins listening. It fails with
// ErrSessionActive while the previous session has not ended.
func (m *Manager) Start() (*Controller, error) {
	m.mu.Lock()
	if m.current != nil && m.current.State() != StateEnded {
		m.mu.Unlock()
		return nil, ErrSessionActive
	}
	if m.cancel != nil {
		m.cancel()
	}

	id := uuid.NewString()
	c := NewController(m.ctx, id, m.config, m.deps, m.logger)
	loopCtx, cancel := context.WithCancel(m.ctx)
	go c.Run(loopCtx)

	m.current = c
	m.cancel = cancel
	m.mu.Unlock()

	if m.deps.Journal != nil {
		if err := m.deps.Journal.StartSession(m.ctx, id, m.deps.Clock.Now()); err != nil {
			m.logger.Warn("Failed to journal session start", logger.String("session_id", id), logger.Error(err))
		}
	}

	if m.opener != nil {
		stream, err := m.opener.OpenStream(m.ctx, c)
		if err != nil {
			m.logger.Error("Failed to open transcription stream",
				logger.String("session_id", id),
				logger.Error(err))
		} else if err := c.SetStream(stream); err != nil {
			stream.CloseStream()
		}
	}

	if err := c.Start(); err != nil {
		return nil, err
	}
	return c, nil
}

// Current returns the current session, ended or not
func (m *Manager) Current() (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNoSession
	}
	return m.current, nil
}

// Close ends the current session, waits for its classifications and stops
// its event loop
func (m *Manager) Close() {
	m.mu.Lock()
	c, cancel := m.current, m.cancel
	m.mu.Unlock()

	if c == nil {
		return
	}
	if err := c.Stop(); err != nil {
		m.logger.Debug("Stopping session on close", logger.Error(err))
	}
	c.Wait()
	cancel()
	<-c.Done()
}
