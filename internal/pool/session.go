package pool

import (
	"errors"
	"sync"

	"solverd/internal/engine"
)

// ErrSessionReleased is returned by Run once the session has been closed.
var ErrSessionReleased = errors.New("session released")

// Session is a pooled engine session addressed by content hash.
type Session struct {
	hash  string
	inner engine.Session

	// refs is guarded by Pool.mu.
	refs int

	mu     sync.RWMutex
	closed bool
}

func newSession(hash string, inner engine.Session) *Session {
	return &Session{hash: hash, inner: inner}
}

func (s *Session) Hash() string           { return s.hash }
func (s *Session) InputShapes() [][]int64 { return s.inner.InputShapes() }
func (s *Session) OutputNames() []string  { return s.inner.OutputNames() }

// Run executes the model. Concurrent runs are allowed; release waits for
// them to finish.
func (s *Session) Run(inputs ...engine.Tensor) ([]engine.Tensor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionReleased
	}
	return s.inner.Run(inputs...)
}

// Released reports whether the session has been closed.
func (s *Session) Released() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Session) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.inner.Close()
}
