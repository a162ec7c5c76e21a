package registry

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse_KeepsModelOrder(t *testing.T) {
	p, err := Parse("p", []byte(validCfg))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []ModelRef{{"det", "detector"}, {"rec", "recognizer"}, {"cls", "detector"}}
	if !reflect.DeepEqual(p.Models, want) {
		t.Fatalf("models: %+v", p.Models)
	}
	if got := p.ModelNames(); !reflect.DeepEqual(got, []string{"detector", "recognizer"}) {
		t.Fatalf("model names: %v", got)
	}
	if p.Strategy != "ClickByTextTitleLogic" || p.Title == "" || len(p.Titles) != 2 {
		t.Fatalf("unexpected project: %+v", p)
	}
}

func TestParse_RequiredFields(t *testing.T) {
	cases := map[string]string{
		"no strategy": "models:\n  a: b\n",
		"no models":   "strategy: CTCLogic\n",
		"bad yaml":    "models: [\n",
		"scalar doc":  "just text",
		"bad titles":  "strategy: CTCLogic\nmodels: {a: b}\ntitles: 3\n",
	}
	for name, cfg := range cases {
		if _, err := Parse("p", []byte(cfg)); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: want ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestAttachDemo_BindsTitles(t *testing.T) {
	p, err := Parse("p", []byte(validCfg))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	err = p.AttachDemo([]DemoFile{
		{Path: "d/title_1.png", Data: []byte(pngHeader)},
		{Path: "d/image.png", Data: []byte(pngHeader)},
		{Path: "d/title.png"},
		{Path: "d/readme.txt"},
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if got := p.InputImages(); !reflect.DeepEqual(got, []string{"d/image.png"}) {
		t.Fatalf("inputs: %v", got)
	}
	if got := p.TitleImages(); !reflect.DeepEqual(got, []string{"d/title.png", "d/title_1.png"}) {
		t.Fatalf("titles: %v", got)
	}
	slots := p.Titles[0]["value"].([]any)
	if slots[1].(map[string]any)["path"] != "d/title_1.png" {
		t.Fatalf("title slot not bound: %+v", slots)
	}
	if p.Assets[0].MIME != "image/png" {
		t.Fatalf("mime: %q", p.Assets[0].MIME)
	}
}

func TestAttachDemo_RejectsBadIndex(t *testing.T) {
	p, _ := Parse("p", []byte(validCfg))
	if err := p.AttachDemo([]DemoFile{{Path: "title_x.png"}}); err == nil {
		t.Fatalf("expected error for non-numeric title index")
	}
	p, _ = Parse("p", []byte(validCfg))
	if err := p.AttachDemo([]DemoFile{{Path: "title_5.png"}}); err == nil {
		t.Fatalf("expected error for missing title slot")
	}
}
