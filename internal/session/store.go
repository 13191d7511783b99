package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/yegors/live-facts/internal/factcheck"
)

// Store is the ordered statement list of one session. The controller appends;
// pipeline goroutines attach results concurrently.
type Store struct {
	mu         sync.RWMutex
	statements []Statement
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Append adds a statement. Its index must be the next free slot.
func (s *Store) Append(st Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.Index != uint64(len(s.statements)) {
		return fmt.Errorf("append index %d, want %d", st.Index, len(s.statements))
	}
	st.Processed = false
	st.Result = nil
	s.statements = append(s.statements, st)
	return nil
}

// Attach sets the result of the statement at index. The first result wins;
// attaching again leaves the statement unchanged and reports false.
func (s *Store) Attach(index uint64, result *factcheck.Result) (bool, error) {
	if result == nil {
		return false, fmt.Errorf("nil result for statement %d", index)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if index >= uint64(len(s.statements)) {
		return false, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	st := &s.statements[index]
	if st.Processed {
		return false, nil
	}

	r := *result
	st.Result = &r
	st.Processed = true
	return true, nil
}

// Get returns a copy of the statement at index
func (s *Store) Get(index uint64) (Statement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index >= uint64(len(s.statements)) {
		return Statement{}, false
	}
	return copyStatement(s.statements[index]), true
}

// Len returns the number of statements
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.statements)
}

// Snapshot returns a copy of all statements in index order
func (s *Store) Snapshot() []Statement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Statement, len(s.statements))
	for i, st := range s.statements {
		out[i] = copyStatement(st)
	}
	return out
}

// Transcript joins the text of every statement before index with spaces
func (s *Store) Transcript(before uint64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(before, uint64(len(s.statements)))
	texts := make([]string, 0, n)
	for _, st := range s.statements[:n] {
		texts = append(texts, st.Text)
	}
	return strings.Join(texts, " ")
}

func copyStatement(st Statement) Statement {
	if st.Result != nil {
		r := *st.Result
		st.Result = &r
	}
	return st
}
