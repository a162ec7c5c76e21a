package manager

import (
	"os"
	"path/filepath"

	"solverd/internal/engine"
	"solverd/internal/layout"
)

// SanityReport describes runtime checks for the engine and directories.
type SanityReport struct {
	EngineBuilt   bool   `json:"engine_built"`
	Engine        string `json:"engine"`
	Accelerated   bool   `json:"accelerated"`
	Provider      string `json:"provider"`
	ProjectsDir   string `json:"projects_dir"`
	ProjectsFound bool   `json:"projects_found"`
	CacheDir      string `json:"cache_dir,omitempty"`
	CacheWritable bool   `json:"cache_writable"`
	CompileDir    string `json:"compile_dir,omitempty"`
	CompileFound  bool   `json:"compile_found"`
	Error         string `json:"error,omitempty"`
}

// SanityCheck validates that the inference runtime and directories are
// usable. It does not mutate runtime state and is safe to call at any time.
func (m *Manager) SanityCheck() SanityReport {
	r := SanityReport{
		EngineBuilt: engine.Built,
		Engine:      m.eng.Name(),
		Accelerated: m.eng.Accelerated(),
		Provider:    string(m.pool.Provider()),
		ProjectsDir: filepath.Join(m.root, layout.ProjectsDir),
		CacheDir:    m.cacheDir,
		CompileDir:  m.compileDir,
	}
	if fi, err := os.Stat(r.ProjectsDir); err == nil && fi.IsDir() {
		r.ProjectsFound = true
	}
	if m.compileDir != "" {
		if fi, err := os.Stat(m.compileDir); err == nil && fi.IsDir() {
			r.CompileFound = true
		}
	}
	if m.cacheDir != "" {
		if err := os.MkdirAll(m.cacheDir, 0o755); err != nil {
			r.Error = err.Error()
		} else if f, err := os.CreateTemp(m.cacheDir, ".probe-*"); err != nil {
			r.Error = err.Error()
		} else {
			_ = f.Close()
			_ = os.Remove(f.Name())
			r.CacheWritable = true
		}
	}
	if !r.EngineBuilt && r.Error == "" {
		r.Error = engine.ErrDependencyUnavailable.Error()
	}
	return r
}
