package manager

import (
	"fmt"

	"solverd/internal/catalog"
	"solverd/internal/layout"
	"solverd/internal/pool"
	"solverd/internal/registry"
	"solverd/pkg/types"
)

// Projects returns every active project, sorted by name.
func (m *Manager) Projects() []types.ProjectInfo {
	all := m.reg.All()
	out := make([]types.ProjectInfo, 0, len(all))
	for _, p := range all {
		info, ok := m.projectInfo(p)
		if !ok {
			continue
		}
		out = append(out, info)
	}
	return out
}

// Project describes one active project.
func (m *Manager) Project(name string) (types.ProjectInfo, error) {
	p, ok := m.reg.Get(name)
	if !ok {
		return types.ProjectInfo{}, ErrProjectNotFound(name)
	}
	info, ok := m.projectInfo(p)
	if !ok {
		return types.ProjectInfo{}, ErrProjectNotFound(name)
	}
	return info, nil
}

// Models returns the bound models of a project in declaration order.
func (m *Manager) Models(name string) ([]types.ModelInfo, error) {
	bs, ok := m.cat.Bindings(name)
	if !ok {
		return nil, ErrProjectNotFound(name)
	}
	return m.modelInfos(bs), nil
}

// Session returns the runtime session bound to a project's logical model
// key, e.g. "det".
func (m *Manager) Session(project, key string) (*pool.Session, error) {
	s, ok := m.cat.Session(project, key)
	if !ok {
		if !m.reg.Has(project) {
			return nil, ErrProjectNotFound(project)
		}
		return nil, fmt.Errorf("no model bound to %q in %s", key, project)
	}
	return s, nil
}

// Remove unregisters a project now and releases its sessions.
func (m *Manager) Remove(name string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if err := layout.ValidName(name); err != nil {
		return err
	}
	if err := m.cat.Remove(name); err != nil {
		return ErrProjectNotFound(name)
	}
	m.log.Info().Str("project", name).Msg("project removed")
	return nil
}

// projectInfo returns false when p left the registry meanwhile.
func (m *Manager) projectInfo(p *registry.Project) (types.ProjectInfo, bool) {
	bs, ok := m.cat.Bindings(p.Name)
	if !ok {
		return types.ProjectInfo{}, false
	}
	info := types.ProjectInfo{
		Name:     p.Name,
		Title:    p.Title,
		Strategy: p.Strategy,
		State:    p.State().String(),
		Imported: p.Imported,
		Models:   m.modelInfos(bs),
		Inputs:   p.InputImages(),
		Titles:   p.TitleImages(),
	}
	if d, ok := m.cat.Deadline(p.Name); ok {
		info.ExpiresAt = d.Unix()
	}
	return info, true
}

func (m *Manager) modelInfos(bs []catalog.Binding) []types.ModelInfo {
	out := make([]types.ModelInfo, 0, len(bs))
	for _, b := range bs {
		e := b.Entity
		out = append(out, types.ModelInfo{
			Key:         b.Key,
			Name:        e.Name,
			Type:        e.Type(),
			Hash:        e.Hash,
			Source:      e.SourcePath,
			Categories:  len(e.Categories),
			CorpusLines: e.Corpus.Len(),
			Holders:     m.cat.Holders(e.Hash),
		})
	}
	return out
}
