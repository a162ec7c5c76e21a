package registry

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
)

// AssetKind classifies a demo sample.
type AssetKind string

const (
	AssetInput AssetKind = "input"
	AssetTitle AssetKind = "title"
)

// Asset is one demo sample of a project.
type Asset struct {
	Path  string
	Kind  AssetKind
	Index int
	MIME  string
}

// DemoFile is a demo file to classify.
type DemoFile struct {
	Path string
	Data []byte
}

// Classify maps a demo file name onto an asset kind: image.* is an input
// sample, title.* is title 0 and title_<n>.* is title n. Other files are
// ignored.
func Classify(name string) (AssetKind, int, bool, error) {
	base := path.Base(name)
	if ok, _ := doublestar.Match("image.*", base); ok {
		return AssetInput, 0, true, nil
	}
	if ok, _ := doublestar.Match("title.*", base); ok {
		return AssetTitle, 0, true, nil
	}
	if ok, _ := doublestar.Match("title_*.*", base); ok {
		stem, _, _ := strings.Cut(strings.TrimPrefix(base, "title_"), ".")
		idx, err := strconv.Atoi(stem)
		if err != nil || idx < 0 {
			return "", 0, false, fmt.Errorf("bad title index in %q", base)
		}
		return AssetTitle, idx, true, nil
	}
	return "", 0, false, nil
}

// AttachDemo classifies files and wires title samples into the title
// schema: items of type "images" get value[n].path, items of type "image"
// get value.
func (p *Project) AttachDemo(files []DemoFile) error {
	var assets []Asset
	for _, f := range files {
		kind, idx, ok, err := Classify(f.Path)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		a := Asset{Path: f.Path, Kind: kind, Index: idx}
		if len(f.Data) > 0 {
			a.MIME = mimetype.Detect(f.Data).String()
		}
		if kind == AssetTitle {
			if err := p.bindTitle(idx, f.Path); err != nil {
				return err
			}
		}
		assets = append(assets, a)
	}
	sort.SliceStable(assets, func(i, j int) bool {
		if assets[i].Kind != assets[j].Kind {
			return assets[i].Kind == AssetInput
		}
		if assets[i].Index != assets[j].Index {
			return assets[i].Index < assets[j].Index
		}
		return assets[i].Path < assets[j].Path
	})
	p.Assets = append(p.Assets, assets...)
	return nil
}

func (p *Project) bindTitle(idx int, file string) error {
	for i, t := range p.Titles {
		switch t["type"] {
		case "images":
			vals, ok := t["value"].([]any)
			if !ok || idx >= len(vals) {
				return fmt.Errorf("titles[%d]: no slot %d for %s", i, idx, path.Base(file))
			}
			slot, ok := vals[idx].(map[string]any)
			if !ok {
				return fmt.Errorf("titles[%d].value[%d] must be a mapping", i, idx)
			}
			slot["path"] = file
		case "image":
			t["value"] = file
		}
	}
	return nil
}
