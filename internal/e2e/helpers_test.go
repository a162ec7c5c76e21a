package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"solverd/internal/engine/enginetest"
	"solverd/internal/httpapi"
	"solverd/internal/manager"
)

const secret = "e2e-secret"

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

// createProject lays out a two-model click project. Models with the same
// weights share one session.
func createProject(t *testing.T, root, name, detWeights, recWeights string) {
	t.Helper()
	base := "projects/" + name
	writeFile(t, root, base+"/project_cfg.yaml",
		"title: "+name+"\nstrategy: ClickByTextTitleLogic\nmodels:\n  det: detector\n  rec: recognizer\n")
	writeFile(t, root, base+"/models/detector/model.yaml", "type: yolo\ncategories: Numeric\n")
	writeFile(t, root, base+"/models/detector/model.onnx", detWeights)
	writeFile(t, root, base+"/models/recognizer/model.yaml", "type: ctc\ncategories: Numeric\n")
	writeFile(t, root, base+"/models/recognizer/model.onnx", recWeights)
	writeFile(t, root, base+"/demo/image.png", "\x89PNG\r\n\x1a\n")
}

type env struct {
	root string
	eng  *enginetest.Engine
	mgr  *manager.Manager
	srv  *httptest.Server
	now  time.Time
}

func newServerForRoot(t *testing.T, root string) *env {
	t.Helper()
	e := &env{root: root, eng: enginetest.New(), now: time.Unix(1_700_000_000, 0)}
	mgr, err := manager.New(manager.Config{
		Root:          root,
		CacheDir:      ".cached_examples",
		CompileDir:    "compile_projects",
		EncryptionKey: secret,
		Engine:        e.eng,
		Clock:         func() time.Time { return e.now },
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	e.mgr = mgr
	e.srv = httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(e.srv.Close)
	return e
}

func do(t *testing.T, method, url string, body []byte) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, rd)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}
