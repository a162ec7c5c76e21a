// Package pool owns every inference session in the process and
// deduplicates them by the content hash of the raw model bytes.
//
//   - pool.go: Pool type, construction, provider selection, Add/Get/Release.
//   - session.go: Session wrapper with release-aware Run.
//   - read.go: model artifact reading (plain or encrypted) and ContentHash.
//
// Sessions are reference counted. Every successful Add acquires one
// reference; Release drops one and closes the session when the last
// holder lets go.
package pool

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"solverd/internal/engine"
	"solverd/internal/events"
	"solverd/internal/vfs"
)

// ErrClosed is returned by Add after Close.
var ErrClosed = errors.New("pool closed")

// Config configures a Pool.
type Config struct {
	Engine engine.Engine
	// Provider is one of auto, cpu or cuda. Empty means auto.
	Provider string
	// DefaultKey decrypts encrypted artifacts when the caller has no key.
	DefaultKey string
	Logger     *zerolog.Logger
	Publisher  events.Publisher
}

// Pool is the hash-keyed session table.
type Pool struct {
	eng      engine.Engine
	provider engine.Provider
	defKey   string
	log      zerolog.Logger
	pub      events.Publisher

	group  singleflight.Group
	builds atomic.Int64

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// New builds a pool and decides the compute provider once.
func New(cfg Config) (*Pool, error) {
	if cfg.Engine == nil {
		return nil, errors.New("pool: engine is required")
	}
	p := &Pool{
		eng:      cfg.Engine,
		defKey:   cfg.DefaultKey,
		log:      zerolog.Nop(),
		pub:      events.OrNoop(cfg.Publisher),
		sessions: make(map[string]*Session),
	}
	if cfg.Logger != nil {
		p.log = cfg.Logger.With().Str("component", "pool").Logger()
	}
	prov, err := selectProvider(cfg.Provider, cfg.Engine, p.log)
	if err != nil {
		return nil, err
	}
	p.provider = prov
	p.log.Info().Str("engine", cfg.Engine.Name()).Str("provider", string(prov)).Msg("inference provider selected")
	p.pub.Publish(events.Event{Name: events.ProviderSelected, Fields: map[string]any{"provider": string(prov)}})
	return p, nil
}

func selectProvider(want string, eng engine.Engine, log zerolog.Logger) (engine.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(want)) {
	case "", "auto":
		if eng.Accelerated() {
			return engine.ProviderCUDA, nil
		}
		return engine.ProviderCPU, nil
	case "cpu":
		return engine.ProviderCPU, nil
	case "cuda", "gpu":
		if !eng.Accelerated() {
			log.Warn().Msg("cuda requested but not usable, falling back to cpu")
			return engine.ProviderCPU, nil
		}
		return engine.ProviderCUDA, nil
	default:
		return "", fmt.Errorf("pool: unknown provider %q", want)
	}
}

// Provider returns the provider chosen at construction.
func (p *Pool) Provider() engine.Provider { return p.provider }

// Add reads the artifact at path through src and returns the session for
// its content, constructing it only if no session for that hash exists.
// The caller owns one reference on success.
func (p *Pool) Add(path, key string, src vfs.Source) (*Session, error) {
	raw, err := p.ReadModel(path, key, src)
	if err != nil {
		return nil, err
	}
	return p.AddBytes(raw)
}

// AddBytes is Add for bytes already in memory. raw is not retained.
func (p *Pool) AddBytes(raw []byte) (*Session, error) {
	hash := ContentHash(raw)
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrClosed
		}
		if s, ok := p.sessions[hash]; ok {
			s.refs++
			p.mu.Unlock()
			p.log.Debug().Str("hash", short(hash)).Msg("session cache hit")
			p.pub.Publish(events.Event{Name: events.SessionShared, Fields: map[string]any{"hash": hash}})
			return s, nil
		}
		p.mu.Unlock()

		v, err, _ := p.group.Do(hash, func() (any, error) {
			return p.build(hash, raw)
		})
		if err != nil {
			return nil, err
		}
		s := v.(*Session)
		p.mu.Lock()
		if p.sessions[hash] == s {
			s.refs++
			p.mu.Unlock()
			return s, nil
		}
		p.mu.Unlock()
		// Released between construction and acquisition; start over.
	}
}

// build constructs and registers a session with zero references. Nothing
// is registered when the engine fails.
func (p *Pool) build(hash string, raw []byte) (*Session, error) {
	p.mu.Lock()
	if s, ok := p.sessions[hash]; ok {
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	inner, err := p.eng.Load(raw, p.provider)
	if err != nil {
		return nil, fmt.Errorf("build session %s: %w", short(hash), err)
	}
	s := newSession(hash, inner)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = inner.Close()
		return nil, ErrClosed
	}
	p.sessions[hash] = s
	p.mu.Unlock()

	p.builds.Add(1)
	p.log.Info().Str("hash", short(hash)).Int("bytes", len(raw)).Msg("session built")
	p.pub.Publish(events.Event{Name: events.SessionBuilt, Fields: map[string]any{"hash": hash}})
	return s, nil
}

// Get returns the live session for hash without taking a reference.
func (p *Pool) Get(hash string) (*Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[hash]
	return s, ok
}

// Release drops one reference. It reports whether the session was closed.
// Releasing an unknown hash is a no-op.
func (p *Pool) Release(hash string) (bool, error) {
	p.mu.Lock()
	s, ok := p.sessions[hash]
	if !ok || s.refs == 0 {
		p.mu.Unlock()
		return false, nil
	}
	s.refs--
	if s.refs > 0 {
		p.mu.Unlock()
		return false, nil
	}
	delete(p.sessions, hash)
	p.mu.Unlock()

	err := s.close()
	p.log.Info().Str("hash", short(hash)).Msg("session released")
	p.pub.Publish(events.Event{Name: events.SessionReleased, Fields: map[string]any{"hash": hash}})
	return true, err
}

// Refs returns the current reference count for hash.
func (p *Pool) Refs(hash string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[hash]; ok {
		return s.refs
	}
	return 0
}

// Len returns the number of live sessions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Hashes returns the content hashes of live sessions, sorted.
func (p *Pool) Hashes() []string {
	p.mu.Lock()
	out := make([]string, 0, len(p.sessions))
	for h := range p.sessions {
		out = append(out, h)
	}
	p.mu.Unlock()
	sort.Strings(out)
	return out
}

// Builds returns how many sessions were ever constructed.
func (p *Pool) Builds() int64 { return p.builds.Load() }

// Close releases every session regardless of references. Further Adds fail.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	all := p.sessions
	p.sessions = make(map[string]*Session)
	p.mu.Unlock()

	var errs []error
	for h, s := range all {
		if err := s.close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", short(h), err))
		}
		p.pub.Publish(events.Event{Name: events.SessionReleased, Fields: map[string]any{"hash": h}})
	}
	return errors.Join(errs...)
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
