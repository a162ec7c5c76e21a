// Package bundle encodes a project into a single encrypted artifact and
// installs such artifacts into a running process.
//
// Wire format: one mode byte ('0' static key, '1' rotating key) followed
// by a vault blob. The decoded tree holds projects/<name>/ext_params, a
// JSON manifest {"deadline": float|null}, plus the project files laid out
// as on disk.
//
//   - codec.go: Codec, configuration and errors.
//   - keys.go: static and rotating key derivation.
//   - export.go: Export.
//   - import.go: Open and Import.
package bundle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solverd/internal/catalog"
	"solverd/internal/events"
	"solverd/internal/registry"
	"solverd/internal/strategy"
	"solverd/internal/vfs"
)

// Mode flags.
const (
	FlagStatic   byte = '0'
	FlagRotating byte = '1'
)

var (
	// ErrInvalidPackage covers unknown flags, wrong keys, corrupt payloads
	// and malformed manifests. It never says which.
	ErrInvalidPackage = errors.New("invalid package")
	// ErrExpired is returned when the manifest deadline has passed.
	ErrExpired = errors.New("package expired")
	// ErrConflict is returned when the project is already registered.
	ErrConflict = registry.ErrConflict
	// ErrNotFound is returned when exporting an unknown project.
	ErrNotFound = catalog.ErrNotFound
	// ErrNotExportable is returned for projects that only exist in memory.
	ErrNotExportable = errors.New("project has no source tree")
)

// Config configures a Codec.
type Config struct {
	// Secret is the process-wide encryption secret.
	Secret string
	// Source reads project files for export, usually vfs.Dir on the root.
	Source vfs.Source
	// CacheDir receives demo samples of imported projects.
	CacheDir   string
	Registry   *registry.Registry
	Catalog    *catalog.Catalog
	Strategies *strategy.Registry
	Clock      func() time.Time
	Logger     *zerolog.Logger
	Publisher  events.Publisher
}

// Codec exports and imports bundles.
type Codec struct {
	secret   string
	src      vfs.Source
	cacheDir string
	reg      *registry.Registry
	cat      *catalog.Catalog
	strat    *strategy.Registry
	now      func() time.Time
	log      zerolog.Logger
	pub      events.Publisher

	// pending holds names with an import in flight.
	mu      sync.Mutex
	pending map[string]struct{}
}

func New(cfg Config) *Codec {
	c := &Codec{
		secret:   cfg.Secret,
		src:      cfg.Source,
		cacheDir: cfg.CacheDir,
		reg:      cfg.Registry,
		cat:      cfg.Catalog,
		strat:    cfg.Strategies,
		now:      cfg.Clock,
		log:      zerolog.Nop(),
		pub:      events.OrNoop(cfg.Publisher),
		pending:  make(map[string]struct{}),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.strat == nil {
		c.strat = strategy.New(strategy.Config{})
	}
	if cfg.Logger != nil {
		c.log = cfg.Logger.With().Str("component", "bundle").Logger()
	}
	return c
}

// reserve claims name for one import. It fails if the name is registered
// or another import of it is in flight.
func (c *Codec) reserve(name string) (release func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.pending[name]; busy || c.reg.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrConflict, name)
	}
	c.pending[name] = struct{}{}
	return func() {
		c.mu.Lock()
		delete(c.pending, name)
		c.mu.Unlock()
	}, nil
}
