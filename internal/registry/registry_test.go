package registry

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"solverd/internal/events"
)

func TestRegistry_AddGetRemove(t *testing.T) {
	pub := events.NewMemoryPublisher()
	r := New(nil, pub)
	for _, n := range []string{"b", "a"} {
		if err := r.Add(&Project{Name: n, Strategy: "CTCLogic"}); err != nil {
			t.Fatalf("add %s: %v", n, err)
		}
	}
	if err := r.Add(&Project{Name: "a"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("names: %v", got)
	}
	a, ok := r.Get("a")
	if !ok || a.Strategy != "CTCLogic" {
		t.Fatalf("get a: %v %+v", ok, a)
	}
	if _, ok := r.Get("zzz"); ok {
		t.Fatalf("unexpected hit")
	}
	if _, err := r.Remove("a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if a.State() != StateEvicted || r.Has("a") {
		t.Fatalf("a still present")
	}
	if _, err := r.Remove("a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if pub.Count(events.ProjectAdded) != 2 || pub.Count(events.ProjectRemoved) != 1 {
		t.Fatalf("events: %+v", pub.Events())
	}
}

func TestRegistry_ExpiringIsNotFound(t *testing.T) {
	r := New(nil, nil)
	p := &Project{Name: "x"}
	_ = r.Add(p)
	if !p.Transition(StateActive, StateExpiring) {
		t.Fatalf("transition failed")
	}
	if p.Transition(StateActive, StateExpiring) {
		t.Fatalf("second transition must fail")
	}
	if _, ok := r.Get("x"); ok {
		t.Fatalf("expiring project visible")
	}
	if len(r.All()) != 0 || !r.Has("x") {
		t.Fatalf("expiring project listed or lost")
	}
}

func TestLoadDir_SkipsBrokenProjects(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "projects/A/project_cfg.yaml", validCfg)
	writeFile(t, root, "projects/A/demo/image.png", pngHeader)
	writeFile(t, root, "projects/B/project_cfg.yaml", "models: [oops\n")
	writeFile(t, root, "projects/B/demo/image.png", pngHeader)
	writeFile(t, root, "projects/C/project_cfg.yaml", "strategy: CTCLogic\nmodels:\n  rec: r\n")
	writeFile(t, root, "projects/C/demo/title.png", pngHeader)
	writeFile(t, root, "projects/D/project_cfg.yaml", "strategy: CTCLogic\nmodels:\n  rec: r\n")

	var buf bytes.Buffer
	projects, skipped, err := LoadDir(root, zerolog.New(&buf))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(projects) != 2 || projects[0].Name != "A" || projects[1].Name != "C" {
		t.Fatalf("loaded: %+v", projects)
	}
	if len(skipped) != 2 || skipped[0].Name != "B" || skipped[1].Name != "D" {
		t.Fatalf("skipped: %+v", skipped)
	}
	if !bytes.Contains(buf.Bytes(), []byte("skipping project")) {
		t.Fatalf("skip not logged: %s", buf.String())
	}
	if got := projects[0].InputImages(); !reflect.DeepEqual(got, []string{"projects/A/demo/image.png"}) {
		t.Fatalf("demo: %v", got)
	}
}

func TestLoadDir_MissingRoot(t *testing.T) {
	projects, skipped, err := LoadDir(t.TempDir(), zerolog.Nop())
	if err != nil || len(projects) != 0 || len(skipped) != 0 {
		t.Fatalf("expected empty result, got %v %v %v", projects, skipped, err)
	}
}
