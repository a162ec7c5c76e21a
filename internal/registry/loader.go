package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"solverd/internal/common/fsutil"
	"solverd/internal/layout"
	"solverd/internal/vfs"
)

// Skip records a project the scan could not load.
type Skip struct {
	Name string
	Err  error
}

// LoadDir scans <root>/projects and loads every project it can. A project
// whose config or demo directory fails to load is skipped as a whole and
// logged; siblings still load. A missing projects directory yields nothing.
func LoadDir(root string, log zerolog.Logger) ([]*Project, []Skip, error) {
	base, err := fsutil.ExpandHome(root)
	if err != nil {
		return nil, nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(filepath.Join(abs, layout.ProjectsDir))
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("root", abs).Msg("no projects directory")
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read dir: %w", err)
	}
	src := vfs.Dir{Root: abs}
	var (
		loaded  []*Project
		skipped []Skip
	)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p, err := Load(e.Name(), src)
		if err != nil {
			log.Warn().Str("project", e.Name()).Err(err).Msg("skipping project")
			skipped = append(skipped, Skip{Name: e.Name(), Err: err})
			continue
		}
		loaded = append(loaded, p)
	}
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Name < loaded[j].Name })
	return loaded, skipped, nil
}

// Load reads one project from src. The demo directory must exist.
func Load(name string, src vfs.Source) (*Project, error) {
	lp, err := layout.Project(name)
	if err != nil {
		return nil, err
	}
	data, err := src.ReadFile(lp.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	p, err := Parse(name, data)
	if err != nil {
		return nil, err
	}
	files, err := src.List(lp.DemoDir)
	if err != nil {
		return nil, fmt.Errorf("demo: %w", err)
	}
	demo := make([]DemoFile, 0, len(files))
	for _, f := range files {
		b, err := src.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("demo: %w", err)
		}
		demo = append(demo, DemoFile{Path: f, Data: b})
	}
	if err := p.AttachDemo(demo); err != nil {
		return nil, fmt.Errorf("demo: %w", err)
	}
	return p, nil
}
