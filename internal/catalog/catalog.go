// Package catalog binds the models declared by registered projects to
// pooled inference sessions and evicts time-limited projects.
//
//   - catalog.go: Catalog type, indexes and read accessors.
//   - resolve.go: single model resolution, eager resolution and Install.
//   - evict.go: TTL eviction and explicit removal.
//   - corpus.go: corpus dictionaries.
//
// Every (project, model) binding holds one pool reference. Unbinding
// drops it, so a session shared by byte-identical models survives until
// its last holder is gone.
package catalog

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solverd/internal/events"
	"solverd/internal/pool"
	"solverd/internal/registry"
)

var (
	// ErrNoArtifact means neither the encrypted nor the plain model exists.
	ErrNoArtifact = errors.New("model artifact not found")
	// ErrNotFound is returned for unknown or inactive projects.
	ErrNotFound = errors.New("project not found")
)

// Entity is a resolved model bound to a session.
type Entity struct {
	Project    string
	Name       string
	SourcePath string
	Categories []string
	Corpus     Corpus
	Config     map[string]any
	Hash       string
	Session    *pool.Session
}

// Type returns the model type named in model.yaml.
func (e *Entity) Type() string {
	s, _ := e.Config["type"].(string)
	return s
}

// Binding pairs a logical model name with its entity.
type Binding struct {
	Key    string
	Entity *Entity
}

// AfterFunc arms a one-shot timer and returns its stop function.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfter(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Config configures a Catalog.
type Config struct {
	Pool     *pool.Pool
	Registry *registry.Registry
	// Builtin is appended to every model corpus.
	Builtin   Corpus
	Logger    *zerolog.Logger
	Publisher events.Publisher
	// After replaces time.AfterFunc in tests.
	After AfterFunc
	// Clock stamps eviction deadlines. Defaults to time.Now.
	Clock func() time.Time
}

type evictionTimer struct {
	project *registry.Project
	stop    func() bool
	due     time.Time
}

// Catalog owns the model indexes. One coarse lock serialises every
// registry and index mutation.
type Catalog struct {
	pool    *pool.Pool
	reg     *registry.Registry
	builtin Corpus
	log     zerolog.Logger
	pub     events.Publisher
	after   AfterFunc
	now     func() time.Time

	mu       sync.RWMutex
	byKey    map[string]*Entity
	byHash   map[string]*Entity
	holders  map[string]map[string]struct{}
	projKeys map[string][]string
	timers   map[string]*evictionTimer
}

func New(cfg Config) *Catalog {
	c := &Catalog{
		pool:     cfg.Pool,
		reg:      cfg.Registry,
		builtin:  cfg.Builtin,
		log:      zerolog.Nop(),
		pub:      events.OrNoop(cfg.Publisher),
		after:    cfg.After,
		now:      cfg.Clock,
		byKey:    make(map[string]*Entity),
		byHash:   make(map[string]*Entity),
		holders:  make(map[string]map[string]struct{}),
		projKeys: make(map[string][]string),
		timers:   make(map[string]*evictionTimer),
	}
	if cfg.Logger != nil {
		c.log = cfg.Logger.With().Str("component", "catalog").Logger()
	}
	if c.after == nil {
		c.after = realAfter
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

func key(project, model string) string { return project + "/" + model }

// bind must be called with c.mu held.
func (c *Catalog) bind(e *Entity) {
	k := key(e.Project, e.Name)
	c.byKey[k] = e
	c.projKeys[e.Project] = append(c.projKeys[e.Project], k)
	hs, ok := c.holders[e.Hash]
	if !ok {
		hs = make(map[string]struct{})
		c.holders[e.Hash] = hs
	}
	hs[k] = struct{}{}
	if _, ok := c.byHash[e.Hash]; !ok {
		c.byHash[e.Hash] = e
	}
}

// unbindProject drops every binding of project and returns one hash per
// dropped binding. Must be called with c.mu held.
func (c *Catalog) unbindProject(project string) []string {
	keys := c.projKeys[project]
	delete(c.projKeys, project)
	hashes := make([]string, 0, len(keys))
	for _, k := range keys {
		e, ok := c.byKey[k]
		if !ok {
			continue
		}
		delete(c.byKey, k)
		hashes = append(hashes, e.Hash)
		hs := c.holders[e.Hash]
		delete(hs, k)
		if len(hs) == 0 {
			delete(c.holders, e.Hash)
			delete(c.byHash, e.Hash)
			continue
		}
		if c.byHash[e.Hash] == e {
			for other := range hs {
				c.byHash[e.Hash] = c.byKey[other]
				break
			}
		}
	}
	return hashes
}

func (c *Catalog) release(project string, hashes []string) {
	for _, h := range hashes {
		closed, err := c.pool.Release(h)
		if err != nil {
			c.log.Warn().Str("project", project).Str("hash", h).Err(err).Msg("session release failed")
			continue
		}
		if closed {
			c.log.Debug().Str("project", project).Str("hash", h).Msg("session closed")
		}
	}
}

// Bindings returns the logical model bindings of an active project in
// declaration order. Models that failed to resolve are absent.
func (c *Catalog) Bindings(project string) ([]Binding, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.reg.Get(project)
	if !ok {
		return nil, false
	}
	out := make([]Binding, 0, len(p.Models))
	for _, m := range p.Models {
		if e, ok := c.byKey[key(project, m.Model)]; ok {
			out = append(out, Binding{Key: m.Key, Entity: e})
		}
	}
	return out, true
}

// Session returns the session bound to a logical model name.
func (c *Catalog) Session(project, logical string) (*pool.Session, bool) {
	bs, ok := c.Bindings(project)
	if !ok {
		return nil, false
	}
	for _, b := range bs {
		if b.Key == logical {
			return b.Entity.Session, true
		}
	}
	return nil, false
}

// Entity returns the entity bound to a project's model directory.
func (c *Catalog) Entity(project, model string) (*Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byKey[key(project, model)]
	return e, ok
}

// HashFor returns the content hash bound to a project's model directory.
func (c *Catalog) HashFor(project, model string) (string, bool) {
	e, ok := c.Entity(project, model)
	if !ok {
		return "", false
	}
	return e.Hash, true
}

// EntityByHash returns one entity bound to hash.
func (c *Catalog) EntityByHash(hash string) (*Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byHash[hash]
	return e, ok
}

// Holders returns how many bindings share hash.
func (c *Catalog) Holders(hash string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.holders[hash])
}

// Deadline reports when an armed eviction of project fires.
func (c *Catalog) Deadline(project string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.timers[project]
	if !ok {
		return time.Time{}, false
	}
	return t.due, true
}

// Len returns the number of bindings.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}

// Close disarms every timer and drops every binding. Sessions are
// released back to the pool.
func (c *Catalog) Close() {
	c.mu.Lock()
	for name, t := range c.timers {
		t.stop()
		delete(c.timers, name)
	}
	released := make(map[string][]string, len(c.projKeys))
	for project := range c.projKeys {
		released[project] = c.unbindProject(project)
	}
	c.mu.Unlock()
	for project, hashes := range released {
		c.release(project, hashes)
	}
}
