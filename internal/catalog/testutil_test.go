package catalog

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solverd/internal/engine/enginetest"
	"solverd/internal/pool"
	"solverd/internal/registry"
	"solverd/internal/vfs"
)

type fixture struct {
	eng    *enginetest.Engine
	pool   *pool.Pool
	reg    *registry.Registry
	cat    *Catalog
	timers *manualTimers
	src    *vfs.Tree
}

func newFixture(t *testing.T, manual bool) *fixture {
	t.Helper()
	f := &fixture{eng: enginetest.New(), reg: registry.New(nil, nil), src: vfs.NewTree()}
	var err error
	f.pool, err = pool.New(pool.Config{Engine: f.eng, DefaultKey: "k"})
	require.NoError(t, err)
	cfg := Config{Pool: f.pool, Registry: f.reg, Builtin: ParseCorpus([]byte("builtin-a\nbuiltin-b\n"))}
	if manual {
		f.timers = &manualTimers{}
		cfg.After = f.timers.After
	}
	f.cat = New(cfg)
	t.Cleanup(func() {
		f.cat.Close()
		_ = f.pool.Close()
	})
	return f
}

func (f *fixture) put(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, f.src.Put(name, []byte(content)))
}

// addProject writes a project config plus one plain model per entry of
// models (model dir -> artifact bytes) and registers it.
func (f *fixture) addProject(t *testing.T, name string, models map[string]string) *registry.Project {
	t.Helper()
	cfg := "strategy: CTCLogic\nmodels:\n"
	for m, bytes := range models {
		cfg += "  " + m + ": " + m + "\n"
		f.put(t, "projects/"+name+"/models/"+m+"/model.yaml", "type: ctc\n")
		if bytes != "" {
			f.put(t, "projects/"+name+"/models/"+m+"/model.onnx", bytes)
		}
	}
	p, err := registry.Parse(name, []byte(cfg))
	require.NoError(t, err)
	require.NoError(t, f.reg.Add(p))
	return p
}

type manualTimers struct {
	mu      sync.Mutex
	fns     []func()
	stopped []bool
}

func (m *manualTimers) After(_ time.Duration, f func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.fns)
	m.fns = append(m.fns, f)
	m.stopped = append(m.stopped, false)
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		was := !m.stopped[i]
		m.stopped[i] = true
		return was
	}
}

// fire runs timer i. A stopped timer runs only when force is set, which
// models a fire that raced past Stop.
func (m *manualTimers) fire(i int, force bool) {
	m.mu.Lock()
	f, stopped := m.fns[i], m.stopped[i]
	m.mu.Unlock()
	if stopped && !force {
		return
	}
	f()
}
