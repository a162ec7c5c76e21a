package bundle

import (
	"bytes"
	"fmt"
	"path"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"

	"solverd/internal/events"
	"solverd/internal/layout"
	"solverd/internal/strategy"
	"solverd/internal/vault"
	"solverd/internal/vfs"
)

// Manifest is the ext_params entry.
type Manifest struct {
	// Deadline is an absolute Unix time in seconds, or nil for no expiry.
	Deadline *float64 `json:"deadline"`
}

// ExportOptions controls Export.
type ExportOptions struct {
	// TTL sets the deadline relative to now. Zero or negative means none.
	TTL time.Duration
	// Rotating selects the time-windowed key.
	Rotating bool
}

// Export packs a registered project read from the codec source.
func (c *Codec) Export(name string, opts ExportOptions) ([]byte, error) {
	p, ok := c.reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if p.Imported || c.src == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotExportable, name)
	}
	lp, err := layout.Project(name)
	if err != nil {
		return nil, err
	}

	tree := vfs.NewTree()
	var man Manifest
	if opts.TTL > 0 {
		d := float64(c.now().Add(opts.TTL).UnixNano()) / 1e9
		man.Deadline = &d
	}
	mb, err := sonic.Marshal(man)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if err := tree.Put(lp.ManifestPath, mb); err != nil {
		return nil, err
	}

	for _, m := range p.ModelNames() {
		mp, err := lp.Model(m)
		if err != nil {
			return nil, err
		}
		for _, f := range mp.Files() {
			if err := c.copyIfExists(tree, f, f); err != nil {
				return nil, err
			}
		}
	}

	if c.src.Exists(lp.DemoDir) {
		demo, err := c.src.List(lp.DemoDir)
		if err != nil {
			return nil, fmt.Errorf("demo: %w", err)
		}
		for _, f := range demo {
			if err := c.copyIfExists(tree, f, f); err != nil {
				return nil, err
			}
		}
	}

	if !strategy.IsBuiltin(p.Strategy) {
		src, ok, err := c.findLogic(lp, p.Strategy)
		if err != nil {
			return nil, err
		}
		if ok {
			if err := c.copyIfExists(tree, src, path.Join(lp.LogicDir, path.Base(src))); err != nil {
				return nil, err
			}
		} else {
			c.log.Warn().Str("project", name).Str("strategy", p.Strategy).Msg("no source found for custom strategy")
		}
	}

	if err := c.copyIfExists(tree, lp.ConfigPath, lp.ConfigPath); err != nil {
		return nil, err
	}

	flag := FlagStatic
	if opts.Rotating {
		flag = FlagRotating
	}
	key, err := c.key(flag)
	if err != nil {
		return nil, err
	}
	blob, err := vault.Compress(tree, key)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	c.log.Info().Str("project", name).Int("entries", tree.Len()).Bool("rotating", opts.Rotating).Dur("ttl", opts.TTL).Msg("project exported")
	c.pub.Publish(events.Event{Name: events.ExportSucceeded, Project: name})
	return append([]byte{flag}, blob...), nil
}

func (c *Codec) copyIfExists(tree *vfs.Tree, from, to string) error {
	if !c.src.Exists(from) {
		return nil
	}
	b, err := c.src.ReadFile(from)
	if err != nil {
		return fmt.Errorf("read %s: %w", from, err)
	}
	return tree.Put(to, b)
}

// findLogic locates the source defining strategy. Shared logic is searched
// first; a project-local definition wins over it. Files starting with an
// underscore are ignored.
func (c *Codec) findLogic(lp layout.ProjectPaths, strategyName string) (string, bool, error) {
	var found string
	for _, dir := range []string{layout.LogicDir, lp.LogicDir} {
		if !c.src.Exists(dir) {
			continue
		}
		files, err := c.src.List(dir)
		if err != nil {
			return "", false, fmt.Errorf("logic: %w", err)
		}
		for _, f := range files {
			if ok, _ := doublestar.Match("**/[!_]*.*", f); !ok {
				continue
			}
			b, err := c.src.ReadFile(f)
			if err != nil {
				return "", false, fmt.Errorf("logic: %w", err)
			}
			if bytes.Contains(b, []byte(strategyName)) {
				found = f
				break
			}
		}
	}
	return found, found != "", nil
}
