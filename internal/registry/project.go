package registry

import (
	"errors"
	"fmt"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every project configuration failure.
var ErrInvalidConfig = errors.New("invalid project config")

// State is the lifecycle of a registered project.
type State int32

const (
	StateActive State = iota
	StateExpiring
	StateEvicted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExpiring:
		return "expiring"
	case StateEvicted:
		return "evicted"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ModelRef binds a logical name used by the solving strategy to a model
// directory of the project.
type ModelRef struct {
	Key   string
	Model string
}

// Project is a named solving pipeline. Fields are fixed once the project
// has been added to a Registry.
type Project struct {
	Name     string
	Config   map[string]any
	Models   []ModelRef
	Strategy string
	Title    string
	Titles   []map[string]any
	Assets   []Asset
	// Imported marks projects that arrived in a bundle.
	Imported bool

	state atomic.Int32
}

// State returns the current lifecycle state.
func (p *Project) State() State { return State(p.state.Load()) }

// Transition moves the project from one state to another atomically.
func (p *Project) Transition(from, to State) bool {
	return p.state.CompareAndSwap(int32(from), int32(to))
}

// ModelNames returns the distinct model directories in declaration order.
func (p *Project) ModelNames() []string {
	seen := make(map[string]struct{}, len(p.Models))
	out := make([]string, 0, len(p.Models))
	for _, m := range p.Models {
		if _, ok := seen[m.Model]; ok {
			continue
		}
		seen[m.Model] = struct{}{}
		out = append(out, m.Model)
	}
	return out
}

// InputImages returns demo input samples.
func (p *Project) InputImages() []string { return p.assetPaths(AssetInput) }

// TitleImages returns demo title samples ordered by title index.
func (p *Project) TitleImages() []string { return p.assetPaths(AssetTitle) }

func (p *Project) assetPaths(k AssetKind) []string {
	var out []string
	for _, a := range p.Assets {
		if a.Kind == k {
			out = append(out, a.Path)
		}
	}
	return out
}

// Parse decodes project_cfg.yaml. The models mapping keeps file order;
// models and strategy are required.
func Parse(name string, data []byte) (*Project, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidConfig)
	}
	root := doc.Content[0]
	var cfg map[string]any
	if err := root.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	p := &Project{Name: name, Config: cfg}

	models := mappingValue(root, "models")
	if models == nil || models.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: missing models", ErrInvalidConfig)
	}
	for i := 0; i+1 < len(models.Content); i += 2 {
		k, v := models.Content[i], models.Content[i+1]
		if v.Kind != yaml.ScalarNode || v.Value == "" {
			return nil, fmt.Errorf("%w: model %q must name a model directory", ErrInvalidConfig, k.Value)
		}
		p.Models = append(p.Models, ModelRef{Key: k.Value, Model: v.Value})
	}

	p.Strategy, _ = cfg["strategy"].(string)
	if p.Strategy == "" {
		return nil, fmt.Errorf("%w: missing strategy", ErrInvalidConfig)
	}
	p.Title, _ = cfg["title"].(string)

	if raw, ok := cfg["titles"]; ok && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: titles must be a list", ErrInvalidConfig)
		}
		for i, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: titles[%d] must be a mapping", ErrInvalidConfig, i)
			}
			p.Titles = append(p.Titles, m)
		}
	}
	return p, nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
