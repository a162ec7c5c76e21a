package manager

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solverd/internal/bundle"
	"solverd/internal/catalog"
	"solverd/internal/common/fsutil"
	"solverd/internal/engine"
	"solverd/internal/events"
	"solverd/internal/pool"
	"solverd/internal/registry"
	"solverd/internal/strategy"
	"solverd/internal/vfs"
)

// Manager is the single owner of the process runtime state.
type Manager struct {
	root       string
	cacheDir   string
	compileDir string
	now        func() time.Time
	log        zerolog.Logger
	pub        events.Publisher

	eng   engine.Engine
	pool  *pool.Pool
	reg   *registry.Registry
	cat   *catalog.Catalog
	strat *strategy.Registry
	codec *bundle.Codec

	mu        sync.RWMutex
	state     State
	lastErr   string
	skipped   []string
	startTime time.Time
	closeOnce sync.Once
	closeErr  error
}

// New builds the runtime, scans Root, resolves every declared model and
// imports the bundles found in CompileDir. Projects or models that fail to
// load are logged and skipped.
func New(cfg Config) (*Manager, error) {
	cfg = cfg.withDefaults()
	root, err := absDir(cfg.Root)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		root:       root,
		cacheDir:   cfg.CacheDir,
		compileDir: cfg.CompileDir,
		now:        cfg.Clock,
		log:        zerolog.Nop(),
		state:      StateLoading,
		startTime:  cfg.Clock(),
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	}
	if m.cacheDir != "" && !filepath.IsAbs(m.cacheDir) {
		m.cacheDir = filepath.Join(root, m.cacheDir)
	}
	if m.compileDir != "" && !filepath.IsAbs(m.compileDir) {
		m.compileDir = filepath.Join(root, m.compileDir)
	}
	m.pub = events.Fanout(events.OrNoop(cfg.Publisher), events.PublisherFunc(m.observe))

	m.eng = cfg.Engine
	if m.eng == nil {
		m.eng = engine.New(cfg.EngineOptions)
	}
	m.pool, err = pool.New(pool.Config{
		Engine:     m.eng,
		Provider:   cfg.Provider,
		DefaultKey: cfg.EncryptionKey,
		Logger:     cfg.Logger,
		Publisher:  m.pub,
	})
	if err != nil {
		return nil, err
	}
	m.reg = registry.New(cfg.Logger, m.pub)
	m.cat = catalog.New(catalog.Config{
		Pool:      m.pool,
		Registry:  m.reg,
		Builtin:   catalog.ParseCorpus(cfg.Corpus),
		Logger:    cfg.Logger,
		Publisher: m.pub,
		After:     cfg.After,
		Clock:     cfg.Clock,
	})
	m.strat = strategy.New(strategy.Config{
		Trusted:        cfg.Trusted,
		AllowUntrusted: cfg.AllowUntrusted,
		Logger:         cfg.Logger,
		Publisher:      m.pub,
	})
	m.codec = bundle.New(bundle.Config{
		Secret:     cfg.EncryptionKey,
		Source:     vfs.Dir{Root: root},
		CacheDir:   m.cacheDir,
		Registry:   m.reg,
		Catalog:    m.cat,
		Strategies: m.strat,
		Clock:      cfg.Clock,
		Logger:     cfg.Logger,
		Publisher:  m.pub,
	})

	if err := m.load(); err != nil {
		_ = m.pool.Close()
		return nil, err
	}
	m.mu.Lock()
	m.state = StateReady
	m.mu.Unlock()
	return m, nil
}

func absDir(dir string) (string, error) {
	p, err := fsutil.ExpandHome(dir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	return abs, nil
}

func (m *Manager) load() error {
	projects, skipped, err := registry.LoadDir(m.root, m.log)
	if err != nil {
		return fmt.Errorf("scan %s: %w", m.root, err)
	}
	for _, s := range skipped {
		m.pub.Publish(events.Event{Name: events.ProjectSkipped, Project: s.Name, Fields: map[string]any{"error": s.Err.Error()}})
	}
	for _, p := range projects {
		if err := m.reg.Add(p); err != nil {
			m.log.Warn().Str("project", p.Name).Err(err).Msg("skipping project")
		}
	}
	rep := m.cat.ResolveAll(vfs.Dir{Root: m.root})
	m.skipped = rep.Skipped
	m.log.Info().Int("projects", m.reg.Len()).Int("models", rep.Resolved).Int("sessions", m.pool.Len()).Msg("runtime loaded")

	m.importCompiled()
	return nil
}

// observe keeps strategy and cache state in line with projects leaving the
// registry, whether removed by hand or by an eviction timer.
func (m *Manager) observe(e events.Event) {
	if e.Name != events.ProjectRemoved || e.Project == "" {
		return
	}
	m.strat.Withdraw(e.Project)
	if m.cacheDir != "" {
		if err := os.RemoveAll(filepath.Join(m.cacheDir, e.Project)); err != nil {
			m.log.Warn().Str("project", e.Project).Err(err).Msg("could not clear demo cache")
		}
	}
}

func (m *Manager) checkOpen() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == StateClosed {
		return closedError{}
	}
	return nil
}

func (m *Manager) setErr(err error) {
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()
}

// Ready reports whether startup finished and the manager is not closed.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady
}

// Close stops eviction timers and releases every session. It is safe to
// call more than once.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.state = StateClosed
		m.mu.Unlock()
		m.cat.Close()
		m.closeErr = m.pool.Close()
		m.log.Info().Msg("runtime closed")
	})
	return m.closeErr
}
