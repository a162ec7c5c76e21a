package e2e

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"solverd/internal/bundle"
	"solverd/internal/vault"
	"solverd/internal/vfs"
	"solverd/pkg/types"
)

func TestE2E_ListAndGetProjects(t *testing.T) {
	root := t.TempDir()
	createProject(t, root, "alpha", "w-det", "w-rec")
	createProject(t, root, "beta", "w-det", "w-other")
	e := newServerForRoot(t, root)

	resp, body := do(t, http.MethodGet, e.srv.URL+"/projects", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/projects %d %s", resp.StatusCode, body)
	}
	var list types.ProjectsResponse
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(list.Projects) != 2 || list.Projects[0].Name != "alpha" {
		t.Fatalf("unexpected projects: %+v", list.Projects)
	}

	resp, body = do(t, http.MethodGet, e.srv.URL+"/projects/beta", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/projects/beta %d %s", resp.StatusCode, body)
	}
	var p types.ProjectInfo
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(p.Models) != 2 || p.Models[0].Key != "det" {
		t.Fatalf("unexpected models: %+v", p.Models)
	}
	// detector weights are shared by alpha and beta
	if p.Models[0].Holders != 2 {
		t.Fatalf("expected shared detector, holders=%d", p.Models[0].Holders)
	}

	resp, _ = do(t, http.MethodGet, e.srv.URL+"/projects/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	resp, body = do(t, http.MethodGet, e.srv.URL+"/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status %d", resp.StatusCode)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("json: %v", err)
	}
	if st.Projects != 2 || st.Sessions != 3 || st.Bindings != 4 {
		t.Fatalf("unexpected status: %+v", st)
	}
	if e.eng.Loads() != 3 {
		t.Fatalf("expected 3 session loads, got %d", e.eng.Loads())
	}
}

func TestE2E_ExportRemoveImport(t *testing.T) {
	root := t.TempDir()
	createProject(t, root, "alpha", "w-det", "w-rec")
	e := newServerForRoot(t, root)

	resp, bundle := do(t, http.MethodGet, e.srv.URL+"/projects/alpha/export?ttl=1h", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export %d %s", resp.StatusCode, bundle)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/octet-stream" {
		t.Fatalf("content-type=%q", got)
	}

	// Same name is already present.
	resp, body := do(t, http.MethodPost, e.srv.URL+"/projects/import", bundle)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodDelete, e.srv.URL+"/projects/alpha", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete %d %s", resp.StatusCode, body)
	}
	if e.eng.Closes() != 2 {
		t.Fatalf("expected sessions released, closes=%d", e.eng.Closes())
	}

	resp, body = do(t, http.MethodPost, e.srv.URL+"/projects/import", bundle)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("import %d %s", resp.StatusCode, body)
	}
	var ir types.ImportResponse
	if err := json.Unmarshal(body, &ir); err != nil {
		t.Fatalf("json: %v", err)
	}
	if ir.Project != "alpha" || ir.TTLSeconds != 3600 || ir.ID == "" {
		t.Fatalf("unexpected import response: %+v", ir)
	}

	resp, body = do(t, http.MethodGet, e.srv.URL+"/projects/alpha", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get imported %d", resp.StatusCode)
	}
	var p types.ProjectInfo
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !p.Imported || p.ExpiresAt != e.now.Unix()+3600 {
		t.Fatalf("unexpected imported project: %+v", p)
	}
	if _, err := os.Stat(filepath.Join(root, ".cached_examples", "alpha", "image.png")); err != nil {
		t.Fatalf("demo not materialized: %v", err)
	}

	// Imported projects carry no source tree.
	resp, _ = do(t, http.MethodGet, e.srv.URL+"/projects/alpha/export", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for re-export, got %d", resp.StatusCode)
	}
}

func TestE2E_ImportIntoFreshServer(t *testing.T) {
	src := t.TempDir()
	createProject(t, src, "alpha", "w-det", "w-rec")
	a := newServerForRoot(t, src)
	_, bundle := do(t, http.MethodGet, a.srv.URL+"/projects/alpha/export?rotating=true", nil)

	b := newServerForRoot(t, t.TempDir())
	resp, body := do(t, http.MethodPost, b.srv.URL+"/projects/import", bundle)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("import %d %s", resp.StatusCode, body)
	}
	resp, body = do(t, http.MethodPost, b.srv.URL+"/projects/import", []byte("1not-a-bundle"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", resp.StatusCode, body)
	}
}

func TestE2E_ProbesAndClose(t *testing.T) {
	e := newServerForRoot(t, t.TempDir())
	for _, p := range []string{"/healthz", "/readyz"} {
		if resp, _ := do(t, http.MethodGet, e.srv.URL+p, nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("%s %d", p, resp.StatusCode)
		}
	}
	if err := e.mgr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if resp, _ := do(t, http.MethodGet, e.srv.URL+"/readyz", nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz after close %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodDelete, e.srv.URL+"/projects/alpha", nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("delete after close %d", resp.StatusCode)
	}
}

func TestE2E_ImportBundleWithMissingModel(t *testing.T) {
	tree := vfs.NewTree()
	for name, body := range map[string]string{
		"projects/hollow/ext_params":               `{"deadline": null}`,
		"projects/hollow/project_cfg.yaml":         "strategy: CTCLogic\nmodels:\n  rec: digits\n",
		"projects/hollow/models/digits/model.yaml": "type: ctc\n",
		"projects/hollow/demo/image.png":           "\x89PNG\r\n\x1a\n",
	} {
		if err := tree.Put(name, []byte(body)); err != nil {
			t.Fatalf("put %s: %v", name, err)
		}
	}
	blob, err := vault.Compress(tree, bundle.StaticKey(secret))
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	root := t.TempDir()
	e := newServerForRoot(t, root)

	resp, body := do(t, http.MethodPost, e.srv.URL+"/projects/import", append([]byte{bundle.FlagStatic}, blob...))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", resp.StatusCode, body)
	}
	if strings.Contains(string(body), "artifact") || strings.Contains(string(body), "vault") {
		t.Fatalf("error leaks internals: %s", body)
	}
	if resp, _ := do(t, http.MethodGet, e.srv.URL+"/projects/hollow", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after failed import, got %d", resp.StatusCode)
	}
	if _, err := os.Stat(filepath.Join(root, ".cached_examples", "hollow")); !os.IsNotExist(err) {
		t.Fatalf("demo cache left behind: %v", err)
	}
}
