package manager

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"solverd/internal/engine/enginetest"
)

// writeFile writes content at root/rel, creating parents.
func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// writeProject lays out a project whose models all carry plain artifacts.
// weights maps model directory to artifact content; an empty value leaves
// the artifact out.
func writeProject(t *testing.T, root, name, strategy string, order []string, weights map[string]string) {
	t.Helper()
	base := "projects/" + name
	cfg := "title: " + name + "\nstrategy: " + strategy + "\nmodels:\n"
	for i, m := range order {
		cfg += "  k" + string(rune('0'+i)) + ": " + m + "\n"
	}
	writeFile(t, root, base+"/project_cfg.yaml", cfg)
	for _, m := range order {
		writeFile(t, root, base+"/models/"+m+"/model.yaml", "type: ctc\ncategories: Numeric\n")
		if w := weights[m]; w != "" {
			writeFile(t, root, base+"/models/"+m+"/model.onnx", w)
		}
	}
	writeFile(t, root, base+"/demo/image.png", "\x89PNG\r\n\x1a\n")
}

// timers records AfterFunc callbacks so tests can fire them by hand.
type timers struct {
	mu  sync.Mutex
	fns []func()
}

func (m *timers) After(_ time.Duration, f func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fns = append(m.fns, f)
	return func() bool { return true }
}

func (m *timers) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fns)
}

func (m *timers) fireAll() {
	m.mu.Lock()
	fns := append([]func(){}, m.fns...)
	m.fns = nil
	m.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

type fixture struct {
	root   string
	eng    *enginetest.Engine
	timers *timers
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{root: t.TempDir(), eng: enginetest.New(), timers: &timers{}, now: time.Unix(1_700_000_000, 0)}
}

func (f *fixture) config() Config {
	return Config{
		Root:          f.root,
		CompileDir:    "compile_projects",
		EncryptionKey: "unit-test-key",
		Engine:        f.eng,
		Clock:         func() time.Time { return f.now },
		After:         f.timers.After,
	}
}

func (f *fixture) open(t *testing.T) *Manager {
	t.Helper()
	m, err := New(f.config())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}
