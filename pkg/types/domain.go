package types

// ModelInfo describes one logical model binding of a project.
type ModelInfo struct {
	// Logical key used by the project's strategy.
	// example: det
	Key string `json:"key" example:"det"`
	// Model directory name.
	// example: yolo_click
	Name string `json:"name" example:"yolo_click"`
	// Model type declared in model.yaml.
	// example: yolo
	Type string `json:"type,omitempty" example:"yolo"`
	// Content hash of the artifact backing the session.
	// example: 3f2a...
	Hash string `json:"hash" example:"3f2a9c"`
	// Artifact path relative to the root or bundle.
	// example: projects/clicky/models/yolo_click/model.onnx
	Source string `json:"source" example:"projects/clicky/models/yolo_click/model.onnx"`
	// Number of output categories.
	// example: 10
	Categories int `json:"categories" example:"10"`
	// Number of corpus lines, builtin corpus included.
	// example: 120
	CorpusLines int `json:"corpus_lines" example:"120"`
	// Number of bindings sharing the same session.
	// example: 1
	Holders int `json:"holders" example:"1"`
}

// ProjectInfo describes a registered project.
type ProjectInfo struct {
	// Project name.
	// example: clicky
	Name string `json:"name" example:"clicky"`
	// Human-readable title.
	Title string `json:"title,omitempty"`
	// Solving strategy name.
	// example: ClickByTextTitleLogic
	Strategy string `json:"strategy" example:"ClickByTextTitleLogic"`
	// Lifecycle state.
	// example: active
	State string `json:"state" example:"active"`
	// True when the project came from a bundle.
	Imported bool `json:"imported"`
	// Bound models in declaration order. Models that failed to resolve are absent.
	Models []ModelInfo `json:"models"`
	// Demo input samples.
	Inputs []string `json:"inputs,omitempty"`
	// Demo title samples.
	Titles []string `json:"titles,omitempty"`
	// Scheduled eviction time (unix seconds), when a TTL applies.
	// example: 1700000000
	ExpiresAt int64 `json:"expires_at_unix,omitempty" example:"1700000000"`
}
