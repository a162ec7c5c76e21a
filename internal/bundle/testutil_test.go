package bundle

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solverd/internal/catalog"
	"solverd/internal/engine/enginetest"
	"solverd/internal/pool"
	"solverd/internal/registry"
	"solverd/internal/strategy"
	"solverd/internal/vfs"
)

const secret = "@~-X(193)!"

// windowStart is aligned to a rotation window boundary.
var windowStart = time.Unix(1800*1_000_000, 0)

type runtime struct {
	root   string
	cache  string
	now    time.Time
	eng    *enginetest.Engine
	pool   *pool.Pool
	reg    *registry.Registry
	cat    *catalog.Catalog
	strat  *strategy.Registry
	codec  *Codec
	timers *timers
}

func newRuntime(t *testing.T, root string) *runtime {
	t.Helper()
	rt := &runtime{root: root, cache: t.TempDir(), now: windowStart, eng: enginetest.New(), timers: &timers{}}
	var err error
	rt.pool, err = pool.New(pool.Config{Engine: rt.eng, DefaultKey: secret})
	require.NoError(t, err)
	rt.reg = registry.New(nil, nil)
	rt.cat = catalog.New(catalog.Config{Pool: rt.pool, Registry: rt.reg, After: rt.timers.After})
	rt.strat = strategy.New(strategy.Config{})
	rt.codec = New(Config{
		Secret:     secret,
		Source:     vfs.Dir{Root: root},
		CacheDir:   rt.cache,
		Registry:   rt.reg,
		Catalog:    rt.cat,
		Strategies: rt.strat,
		Clock:      func() time.Time { return rt.now },
	})
	t.Cleanup(func() {
		rt.cat.Close()
		_ = rt.pool.Close()
	})
	return rt
}

// load scans root and resolves everything found.
func (rt *runtime) load(t *testing.T) {
	t.Helper()
	projects, skipped, err := registry.LoadDir(rt.root, zerologNop)
	require.NoError(t, err)
	require.Empty(t, skipped)
	for _, p := range projects {
		require.NoError(t, rt.reg.Add(p))
	}
	rt.cat.ResolveAll(vfs.Dir{Root: rt.root})
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

const projectCfg = `title: click the characters in order
strategy: ClickByTextTitleLogic
models:
  det: detector
  rec: recognizer
titles:
  - type: images
    value:
      - {path: ""}
      - {path: ""}
`

// sampleTree writes a complete project named name under root.
func sampleTree(t *testing.T, root, name string) {
	t.Helper()
	base := "projects/" + name
	writeFile(t, root, base+"/project_cfg.yaml", projectCfg)
	writeFile(t, root, base+"/models/detector/model.yaml", "type: yolo\n")
	writeFile(t, root, base+"/models/detector/model.onnx", "detector-weights")
	writeFile(t, root, base+"/models/recognizer/model.yaml", "type: ctc\ncategories: Numeric\n")
	writeFile(t, root, base+"/models/recognizer/model.onnx", "recognizer-weights")
	writeFile(t, root, base+"/models/recognizer/corpus.dict", "abc\n")
	writeFile(t, root, base+"/demo/image.png", "\x89PNG\r\n\x1a\n")
	writeFile(t, root, base+"/demo/title.png", "\x89PNG\r\n\x1a\n")
	writeFile(t, root, base+"/demo/title_1.png", "\x89PNG\r\n\x1a\n")
}

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

func (m *timers) fireAll() {
	m.mu.Lock()
	fns := append([]func(){}, m.fns...)
	m.fns = nil
	m.mu.Unlock()
	for _, f := range fns {
		f()
	}
}
