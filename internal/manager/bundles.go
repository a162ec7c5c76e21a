package manager

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"solverd/internal/bundle"
	"solverd/internal/common/fsutil"
	"solverd/internal/layout"
	"solverd/pkg/types"
)

// BundleExt is the file suffix of exported bundles.
const BundleExt = ".crypto"

// Import installs a bundle. Nothing changes unless it succeeds.
func (m *Manager) Import(data []byte) (types.ImportResponse, error) {
	if err := m.checkOpen(); err != nil {
		return types.ImportResponse{}, err
	}
	res, err := m.codec.Import(data)
	if err != nil {
		m.setErr(err)
		return types.ImportResponse{}, err
	}
	return types.ImportResponse{
		ID:         res.ID.String(),
		Project:    res.Project,
		TTLSeconds: res.TTL.Seconds(),
		Entries:    res.Tree.Len(),
	}, nil
}

// Export packs a project loaded from the root directory.
func (m *Manager) Export(name string, opts bundle.ExportOptions) ([]byte, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if err := layout.ValidName(name); err != nil {
		return nil, err
	}
	data, err := m.codec.Export(name, opts)
	if err != nil {
		if IsProjectNotFound(err) {
			return nil, ErrProjectNotFound(name)
		}
		return nil, err
	}
	return data, nil
}

// ExportFile exports a project into dir as <name>.crypto and returns the
// path written. An empty dir means the compile directory.
func (m *Manager) ExportFile(name, dir string, opts bundle.ExportOptions) (string, error) {
	if dir == "" {
		dir = m.compileDir
	}
	if dir == "" {
		return "", fmt.Errorf("no output directory for %s", name)
	}
	data, err := m.Export(name, opts)
	if err != nil {
		return "", err
	}
	out := filepath.Join(dir, name+BundleExt)
	if err := fsutil.WriteFileAtomic(out, data, 0o644); err != nil {
		return "", fmt.Errorf("write bundle: %w", err)
	}
	m.log.Info().Str("project", name).Str("path", out).Int("bytes", len(data)).Msg("bundle written")
	return out, nil
}

// importCompiled imports every *.crypto file of the compile directory in
// name order. Failures are logged and skipped.
func (m *Manager) importCompiled() {
	if m.compileDir == "" {
		return
	}
	entries, err := os.ReadDir(m.compileDir)
	if err != nil {
		if !os.IsNotExist(err) {
			m.log.Warn().Str("dir", m.compileDir).Err(err).Msg("cannot read compile directory")
		}
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), BundleExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	imported := 0
	for _, n := range names {
		p := filepath.Join(m.compileDir, n)
		data, err := os.ReadFile(p)
		if err != nil {
			m.log.Warn().Str("file", p).Err(err).Msg("skipping bundle")
			continue
		}
		res, err := m.codec.Import(data)
		if err != nil {
			m.log.Warn().Str("file", p).Err(err).Msg("skipping bundle")
			continue
		}
		imported++
		m.log.Info().Str("file", p).Str("project", res.Project).Str("import_id", res.ID.String()).Msg("bundle imported")
	}
	if imported > 0 {
		m.log.Info().Int("bundles", imported).Msg("compiled projects loaded")
	}
}
