// Package layout computes the canonical on-disk layout of projects and
// their models. Every path is slash-separated and relative to the source
// root, so the same value addresses a real project tree and a decoded bundle.
package layout

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	ProjectsDir = "projects"
	LogicDir    = "logic"

	ProjectConfigFile = "project_cfg.yaml"
	ManifestFile      = "ext_params"
	ModelConfigFile   = "model.yaml"
	PlainModelFile    = "model.onnx"
	CryptoModelFile   = "model.crypto"
	CorpusFile        = "corpus.dict"
	CategoryFile      = "categories.label"
)

// ErrInvalidName is returned for names that could escape their directory.
var ErrInvalidName = errors.New("invalid name")

// ProjectPaths is the fixed layout of a single project.
type ProjectPaths struct {
	Name         string
	Dir          string
	ConfigPath   string
	ModelDir     string
	DemoDir      string
	LogicDir     string
	ManifestPath string
}

// ModelPaths is the layout of one model below a project. PlainPath and
// EncryptedPath are mutually exclusive candidates.
type ModelPaths struct {
	Name          string
	Dir           string
	ConfigPath    string
	PlainPath     string
	EncryptedPath string
	CorpusPath    string
	CategoryPath  string
}

// ValidName reports whether s is usable as a single path segment.
func ValidName(s string) error {
	switch {
	case s == "", s == ".", s == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, s)
	case strings.ContainsAny(s, "/\\\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidName, s)
	}
	return nil
}

// Project returns the layout for the named project.
func Project(name string) (ProjectPaths, error) {
	if err := ValidName(name); err != nil {
		return ProjectPaths{}, fmt.Errorf("project: %w", err)
	}
	dir := path.Join(ProjectsDir, name)
	return ProjectPaths{
		Name:         name,
		Dir:          dir,
		ConfigPath:   path.Join(dir, ProjectConfigFile),
		ModelDir:     path.Join(dir, "models"),
		DemoDir:      path.Join(dir, "demo"),
		LogicDir:     path.Join(dir, "logic"),
		ManifestPath: path.Join(dir, ManifestFile),
	}, nil
}

// Model returns the layout for a model of this project.
func (p ProjectPaths) Model(name string) (ModelPaths, error) {
	if err := ValidName(name); err != nil {
		return ModelPaths{}, fmt.Errorf("model: %w", err)
	}
	dir := path.Join(p.ModelDir, name)
	return ModelPaths{
		Name:          name,
		Dir:           dir,
		ConfigPath:    path.Join(dir, ModelConfigFile),
		PlainPath:     path.Join(dir, PlainModelFile),
		EncryptedPath: path.Join(dir, CryptoModelFile),
		CorpusPath:    path.Join(dir, CorpusFile),
		CategoryPath:  path.Join(dir, CategoryFile),
	}, nil
}

// Files lists the model files in export order.
func (m ModelPaths) Files() []string {
	return []string{m.ConfigPath, m.EncryptedPath, m.PlainPath, m.CorpusPath, m.CategoryPath}
}

// IsEncrypted reports whether p names an encrypted model artifact.
func IsEncrypted(p string) bool {
	return strings.HasSuffix(p, ".crypto")
}

// ProjectFromManifest extracts <name> from projects/<name>/ext_params.
func ProjectFromManifest(p string) (string, bool) {
	parts := strings.Split(p, "/")
	if len(parts) != 3 || parts[0] != ProjectsDir || parts[2] != ManifestFile {
		return "", false
	}
	if ValidName(parts[1]) != nil {
		return "", false
	}
	return parts[1], true
}
