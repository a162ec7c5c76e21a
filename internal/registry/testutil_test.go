package registry

import (
	"os"
	"path/filepath"
	"testing"
)

const validCfg = `title: pick the matching words
strategy: ClickByTextTitleLogic
models:
  det: detector
  rec: recognizer
  cls: detector
titles:
  - type: images
    value:
      - {path: ""}
      - {path: ""}
  - type: text
    value: hello
`

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

// pngHeader is enough for MIME sniffing.
const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR"
