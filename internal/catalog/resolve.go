package catalog

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"solverd/internal/categories"
	"solverd/internal/events"
	"solverd/internal/layout"
	"solverd/internal/registry"
	"solverd/internal/vfs"
)

// ResolveModel builds an entity for one model read through src. On
// success the entity holds one pool reference that the caller must bind
// or release. ErrNoArtifact reports a model with no artifact at all.
func (c *Catalog) ResolveModel(name string, mp layout.ModelPaths, src vfs.Source) (*Entity, error) {
	raw, err := src.ReadFile(mp.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("model config: %w", err)
	}
	cfg := map[string]any{}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("model config: %w", err)
	}
	if cfg == nil {
		cfg = map[string]any{}
	}

	e := &Entity{Name: name, Config: cfg}

	switch named, _ := cfg["categories"].(string); {
	case src.Exists(mp.CategoryPath):
		b, err := src.ReadFile(mp.CategoryPath)
		if err != nil {
			return nil, fmt.Errorf("categories: %w", err)
		}
		e.Categories = splitLines(b)
	case named != "":
		if tbl, ok := categories.Lookup(named); ok {
			e.Categories = tbl
		} else {
			c.log.Warn().Str("model", name).Str("categories", named).Msg("unknown builtin category table")
		}
	}

	own := Corpus{}
	if src.Exists(mp.CorpusPath) {
		b, err := src.ReadFile(mp.CorpusPath)
		if err != nil {
			return nil, fmt.Errorf("corpus: %w", err)
		}
		own = ParseCorpus(b)
	}
	e.Corpus = own.Concat(c.builtin)

	switch {
	case src.Exists(mp.EncryptedPath):
		key, _ := cfg["encryption_key"].(string)
		e.SourcePath = mp.EncryptedPath
		e.Session, err = c.pool.Add(mp.EncryptedPath, key, src)
	case src.Exists(mp.PlainPath):
		e.SourcePath = mp.PlainPath
		e.Session, err = c.pool.Add(mp.PlainPath, "", src)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoArtifact, mp.Dir)
	}
	if err != nil {
		return nil, err
	}
	e.Hash = e.Session.Hash()
	return e, nil
}

func splitLines(b []byte) []string {
	s := strings.TrimSuffix(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func (c *Catalog) resolveFor(p *registry.Project, model string, src vfs.Source) (*Entity, error) {
	lp, err := layout.Project(p.Name)
	if err != nil {
		return nil, err
	}
	mp, err := lp.Model(model)
	if err != nil {
		return nil, err
	}
	e, err := c.ResolveModel(model, mp, src)
	if err != nil {
		return nil, err
	}
	e.Project = p.Name
	return e, nil
}

// Report summarises an eager resolution pass.
type Report struct {
	Resolved int
	Skipped  []string
}

// ResolveAll resolves every declared model of every active project
// through src. Failures skip the single model; the project stays
// registered. Already bound models are left alone.
func (c *Catalog) ResolveAll(src vfs.Source) Report {
	var rep Report
	for _, p := range c.reg.All() {
		for _, m := range p.ModelNames() {
			if _, ok := c.Entity(p.Name, m); ok {
				continue
			}
			e, err := c.resolveFor(p, m, src)
			if err != nil {
				lvl := c.log.Warn()
				if errors.Is(err, ErrNoArtifact) {
					lvl = c.log.Info()
				}
				lvl.Str("project", p.Name).Str("model", m).Err(err).Msg("model skipped")
				c.pub.Publish(events.Event{Name: events.ModelSkipped, Project: p.Name, Fields: map[string]any{"model": m, "error": err.Error()}})
				rep.Skipped = append(rep.Skipped, key(p.Name, m))
				continue
			}
			c.mu.Lock()
			cur, active := c.reg.Get(p.Name)
			_, bound := c.byKey[key(p.Name, m)]
			if active && cur == p && !bound {
				c.bind(e)
				c.mu.Unlock()
				rep.Resolved++
				continue
			}
			c.mu.Unlock()
			c.release(p.Name, []string{e.Hash})
		}
	}
	c.log.Info().Int("resolved", rep.Resolved).Int("skipped", len(rep.Skipped)).Msg("eager model resolution finished")
	return rep
}

// Install resolves every model of p through src and then registers p
// with all bindings in one step. Any failure releases what was staged and
// leaves the registry untouched.
func (c *Catalog) Install(p *registry.Project, src vfs.Source) error {
	if c.reg.Has(p.Name) {
		return fmt.Errorf("%w: %s", registry.ErrConflict, p.Name)
	}
	var staged []*Entity
	rollback := func() {
		hashes := make([]string, len(staged))
		for i, e := range staged {
			hashes[i] = e.Hash
		}
		c.release(p.Name, hashes)
	}
	for _, m := range p.ModelNames() {
		e, err := c.resolveFor(p, m, src)
		if err != nil {
			rollback()
			return fmt.Errorf("model %s: %w", m, err)
		}
		staged = append(staged, e)
	}

	c.mu.Lock()
	if err := c.reg.Add(p); err != nil {
		c.mu.Unlock()
		rollback()
		return err
	}
	for _, e := range staged {
		c.bind(e)
	}
	c.mu.Unlock()
	c.log.Info().Str("project", p.Name).Int("models", len(staged)).Msg("project installed")
	return nil
}
