// Package enginetest provides an in-memory engine.Engine for tests. It
// counts session constructions and closes.
package enginetest

import (
	"errors"
	"sync"
	"time"

	"solverd/internal/engine"
)

// Engine is a fake runtime. Load fails on empty input or when Fail is set.
type Engine struct {
	Accel bool
	Fail  error
	Delay time.Duration

	mu     sync.Mutex
	loads  int
	closes int
}

func New() *Engine { return &Engine{} }

func (e *Engine) Name() string      { return "fake" }
func (e *Engine) Accelerated() bool { return e.Accel }

func (e *Engine) Load(model []byte, p engine.Provider) (engine.Session, error) {
	if e.Delay > 0 {
		time.Sleep(e.Delay)
	}
	if e.Fail != nil {
		return nil, e.Fail
	}
	if len(model) == 0 {
		return nil, errors.New("empty model")
	}
	e.mu.Lock()
	e.loads++
	e.mu.Unlock()
	return &Session{eng: e, size: len(model), Provider: p}, nil
}

// Loads returns the number of successful constructions.
func (e *Engine) Loads() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loads
}

// Closes returns the number of closed sessions.
func (e *Engine) Closes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closes
}

// Session echoes the model size as its single output.
type Session struct {
	Provider engine.Provider

	eng    *Engine
	size   int
	mu     sync.Mutex
	closed bool
}

func (s *Session) Run(inputs ...engine.Tensor) ([]engine.Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("closed")
	}
	return []engine.Tensor{{Name: "out", Shape: []int64{1}, Data: []float32{float32(s.size)}}}, nil
}

func (s *Session) InputShapes() [][]int64 { return [][]int64{{1, 1, 64, -1}} }
func (s *Session) OutputNames() []string  { return []string{"out"} }

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("double close")
	}
	s.closed = true
	s.eng.mu.Lock()
	s.eng.closes++
	s.eng.mu.Unlock()
	return nil
}
