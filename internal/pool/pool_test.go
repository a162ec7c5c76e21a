package pool

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solverd/internal/engine"
	"solverd/internal/engine/enginetest"
	"solverd/internal/events"
	"solverd/internal/vault"
	"solverd/internal/vfs"
)

func newPool(t *testing.T, eng *enginetest.Engine) *Pool {
	t.Helper()
	p, err := New(Config{Engine: eng, DefaultKey: "default-key"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestAddDeduplicatesByContent(t *testing.T) {
	eng := enginetest.New()
	p := newPool(t, eng)
	tr := vfs.NewTree()
	require.NoError(t, tr.Put("projects/a/models/m/model.onnx", []byte("XYZ")))
	require.NoError(t, tr.Put("projects/b/models/n/model.onnx", []byte("XYZ")))

	s1, err := p.Add("projects/a/models/m/model.onnx", "", tr)
	require.NoError(t, err)
	s2, err := p.Add("projects/b/models/n/model.onnx", "", tr)
	require.NoError(t, err)

	require.Same(t, s1, s2)
	require.Equal(t, 1, eng.Loads())
	require.Equal(t, 1, p.Len())
	require.Equal(t, 2, p.Refs(s1.Hash()))
	got, ok := p.Get(ContentHash([]byte("XYZ")))
	require.True(t, ok)
	require.Same(t, s1, got)
}

func TestConcurrentAddBuildsOnce(t *testing.T) {
	eng := enginetest.New()
	eng.Delay = 20 * time.Millisecond
	p := newPool(t, eng)

	var wg sync.WaitGroup
	sessions := make([]*Session, 16)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := p.AddBytes([]byte("same-bytes"))
			if err == nil {
				sessions[i] = s
			}
		}(i)
	}
	wg.Wait()
	for _, s := range sessions {
		require.NotNil(t, s)
		require.Same(t, sessions[0], s)
	}
	require.Equal(t, 1, eng.Loads())
	require.EqualValues(t, 1, p.Builds())
	require.Equal(t, len(sessions), p.Refs(sessions[0].Hash()))
}

func TestFailedBuildRegistersNothing(t *testing.T) {
	eng := enginetest.New()
	eng.Fail = errors.New("boom")
	p := newPool(t, eng)
	_, err := p.AddBytes([]byte("x"))
	require.Error(t, err)
	require.Equal(t, 0, p.Len())

	_, err = p.Add("missing/model.onnx", "", vfs.NewTree())
	require.ErrorIs(t, err, vfs.ErrNotExist)
	require.Equal(t, 0, p.Len())
}

func TestReleaseIsRefCounted(t *testing.T) {
	eng := enginetest.New()
	pub := events.NewMemoryPublisher()
	p, err := New(Config{Engine: eng, Publisher: pub})
	require.NoError(t, err)

	a, _ := p.AddBytes([]byte("m"))
	_, _ = p.AddBytes([]byte("m"))

	closed, err := p.Release(a.Hash())
	require.NoError(t, err)
	require.False(t, closed)
	_, err = a.Run(engine.Tensor{})
	require.NoError(t, err)

	closed, err = p.Release(a.Hash())
	require.NoError(t, err)
	require.True(t, closed)
	require.True(t, a.Released())
	_, err = a.Run(engine.Tensor{})
	require.ErrorIs(t, err, ErrSessionReleased)

	// A late release of the same hash is a no-op.
	closed, err = p.Release(a.Hash())
	require.NoError(t, err)
	require.False(t, closed)
	require.Equal(t, 1, eng.Closes())
	require.Equal(t, 1, pub.Count(events.SessionReleased))

	// Rebuilding after full release constructs a fresh session.
	b, err := p.AddBytes([]byte("m"))
	require.NoError(t, err)
	require.NotSame(t, a, b)
	require.Equal(t, 2, eng.Loads())
	require.NoError(t, p.Close())
	_, err = p.AddBytes([]byte("m"))
	require.ErrorIs(t, err, ErrClosed)
}

func TestReadModelEncrypted(t *testing.T) {
	eng := enginetest.New()
	p := newPool(t, eng)

	sealed, err := vault.Seal("model.onnx", []byte("weights"), "default-key")
	require.NoError(t, err)
	custom, err := vault.Seal("inner.bin", []byte("other"), "own-key")
	require.NoError(t, err)
	tr := vfs.NewTree()
	require.NoError(t, tr.Put("m/model.crypto", sealed))
	require.NoError(t, tr.Put("n/model.crypto", custom))

	b, err := p.ReadModel("m/model.crypto", "", tr)
	require.NoError(t, err)
	require.Equal(t, "weights", string(b))

	b, err = p.ReadModel("n/model.crypto", "own-key", tr)
	require.NoError(t, err)
	require.Equal(t, "other", string(b))

	_, err = p.ReadModel("n/model.crypto", "", tr)
	require.ErrorIs(t, err, vault.ErrCorrupt)
}

func TestProviderSelection(t *testing.T) {
	eng := enginetest.New()
	p, err := New(Config{Engine: eng, Provider: "cuda"})
	require.NoError(t, err)
	require.Equal(t, engine.ProviderCPU, p.Provider())

	eng.Accel = true
	p, err = New(Config{Engine: eng})
	require.NoError(t, err)
	require.Equal(t, engine.ProviderCUDA, p.Provider())
	s, err := p.AddBytes([]byte("w"))
	require.NoError(t, err)
	require.Equal(t, engine.ProviderCUDA, s.inner.(*enginetest.Session).Provider)

	_, err = New(Config{Engine: eng, Provider: "tpu"})
	require.Error(t, err)
}
