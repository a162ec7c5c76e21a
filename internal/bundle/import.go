package bundle

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"solverd/internal/common/fsutil"
	"solverd/internal/engine"
	"solverd/internal/events"
	"solverd/internal/layout"
	"solverd/internal/pool"
	"solverd/internal/registry"
	"solverd/internal/strategy"
	"solverd/internal/vault"
	"solverd/internal/vfs"
)

// Package is a decoded bundle that has not been installed.
type Package struct {
	Project  string
	Rotating bool
	Manifest Manifest
	Tree     *vfs.Tree
}

// Deadline returns the manifest deadline, if any.
func (p *Package) Deadline() (time.Time, bool) {
	if p.Manifest.Deadline == nil {
		return time.Time{}, false
	}
	d := *p.Manifest.Deadline
	return time.Unix(0, int64(d*1e9)), true
}

// Result describes a completed import.
type Result struct {
	ID      uuid.UUID
	Project string
	// TTL is the remaining lifetime, zero for unlimited.
	TTL  time.Duration
	Tree *vfs.Tree
}

// Open decodes data without touching any runtime state.
func (c *Codec) Open(data []byte) (*Package, error) {
	if len(data) < 2 {
		return nil, ErrInvalidPackage
	}
	key, err := c.key(data[0])
	if err != nil {
		return nil, ErrInvalidPackage
	}
	tree, err := vault.Decompress(data[1:], key)
	if err != nil {
		return nil, ErrInvalidPackage
	}
	var manifest string
	for _, n := range tree.Names() {
		if ok, _ := doublestar.Match("projects/*/"+layout.ManifestFile, n); ok {
			if manifest != "" {
				return nil, ErrInvalidPackage
			}
			manifest = n
		}
	}
	name, ok := layout.ProjectFromManifest(manifest)
	if !ok {
		return nil, ErrInvalidPackage
	}
	raw, err := tree.ReadFile(manifest)
	if err != nil {
		return nil, ErrInvalidPackage
	}
	pkg := &Package{Project: name, Rotating: data[0] == FlagRotating, Tree: tree}
	if err := sonic.Unmarshal(raw, &pkg.Manifest); err != nil {
		return nil, ErrInvalidPackage
	}
	return pkg, nil
}

// Import decodes data and installs the project it carries. On any error
// the registry, catalog, strategy registry and cache directory are left
// as they were.
func (c *Codec) Import(data []byte) (*Result, error) {
	res, err := c.importPackage(data)
	if err != nil {
		c.pub.Publish(events.Event{Name: events.ImportFailed, Fields: map[string]any{"reason": reason(err)}})
		return nil, err
	}
	c.pub.Publish(events.Event{Name: events.ImportSucceeded, Project: res.Project, Fields: map[string]any{"ttl_seconds": res.TTL.Seconds()}})
	return res, nil
}

func (c *Codec) importPackage(data []byte) (*Result, error) {
	pkg, err := c.Open(data)
	if err != nil {
		return nil, err
	}
	name := pkg.Project

	var ttl time.Duration
	if deadline, ok := pkg.Deadline(); ok {
		ttl = deadline.Sub(c.now())
		if ttl <= 0 {
			c.log.Warn().Str("project", name).Time("deadline", deadline).Msg("rejected expired bundle")
			return nil, fmt.Errorf("%w: %s", ErrExpired, name)
		}
	}
	release, err := c.reserve(name)
	if err != nil {
		return nil, err
	}
	defer release()

	lp, err := layout.Project(name)
	if err != nil {
		return nil, ErrInvalidPackage
	}
	cfg, err := pkg.Tree.ReadFile(lp.ConfigPath)
	if err != nil {
		return nil, ErrInvalidPackage
	}
	p, err := registry.Parse(name, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	p.Imported = true

	logic := filesUnder(pkg.Tree, lp.LogicDir)
	if err := c.strat.Offer(name, p.Strategy, logic); err != nil {
		if errors.Is(err, strategy.ErrAlreadyOffered) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, name)
		}
		return nil, err
	}
	demoDir := filepath.Join(c.cacheDir, name)
	_, statErr := os.Stat(demoDir)
	createdDir := errors.Is(statErr, os.ErrNotExist)
	committed := false
	var written []string
	defer func() {
		if committed {
			return
		}
		c.strat.Withdraw(name)
		if createdDir {
			_ = os.RemoveAll(demoDir)
			return
		}
		for _, f := range written {
			_ = os.Remove(f)
		}
	}()

	demo := make([]registry.DemoFile, 0)
	for _, f := range sortedUnder(pkg.Tree, lp.DemoDir) {
		b, _ := pkg.Tree.ReadFile(f)
		dst := filepath.Join(demoDir, path.Base(f))
		if err := fsutil.WriteFileAtomic(dst, b, 0o644); err != nil {
			return nil, fmt.Errorf("materialize demo: %w", err)
		}
		written = append(written, dst)
		demo = append(demo, registry.DemoFile{Path: dst, Data: b})
	}
	if err := p.AttachDemo(demo); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}

	if err := c.cat.Install(p, pkg.Tree); err != nil {
		return nil, installError(name, err)
	}
	committed = true

	if ttl > 0 {
		if err := c.cat.ScheduleEviction(name, ttl); err != nil {
			c.log.Warn().Str("project", name).Err(err).Msg("could not arm eviction")
		}
	}
	c.log.Info().Str("project", name).Dur("ttl", ttl).Int("demo", len(demo)).Msg("project imported")
	return &Result{ID: uuid.New(), Project: name, TTL: ttl, Tree: pkg.Tree}, nil
}

func filesUnder(t *vfs.Tree, dir string) map[string][]byte {
	out := make(map[string][]byte)
	for _, n := range sortedUnder(t, dir) {
		b, _ := t.ReadFile(n)
		out[n] = b
	}
	return out
}

func sortedUnder(t *vfs.Tree, dir string) []string {
	if !t.Exists(dir) {
		return nil
	}
	names, err := t.List(dir)
	if err != nil {
		return nil
	}
	return names
}

// installError keeps conflicts and runtime failures as they are. Anything
// else went wrong with a model carried by the bundle.
func installError(name string, err error) error {
	switch {
	case errors.Is(err, registry.ErrConflict),
		errors.Is(err, engine.ErrDependencyUnavailable),
		errors.Is(err, pool.ErrClosed):
		return fmt.Errorf("install %s: %w", name, err)
	default:
		return fmt.Errorf("%w: %s: bundled model could not be loaded", ErrInvalidPackage, name)
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidPackage):
		return "invalid"
	case errors.Is(err, strategy.ErrUntrustedExtension), errors.Is(err, strategy.ErrUnknownStrategy):
		return "untrusted"
	default:
		return "error"
	}
}
