// Package registry is the in-memory catalog of named projects.
//
//   - project.go: Project, lifecycle State and config parsing.
//   - demo.go: demo sample classification and title schema binding.
//   - registry.go: the concurrency-safe Registry.
//   - loader.go: best-effort startup scan of a project tree.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"solverd/internal/events"
)

var (
	// ErrConflict is returned when adding a name that is already registered.
	ErrConflict = errors.New("project already exists")
	// ErrNotFound is returned when removing an unknown project.
	ErrNotFound = errors.New("project not found")
)

// Registry maps project names to projects.
type Registry struct {
	log zerolog.Logger
	pub events.Publisher

	mu       sync.RWMutex
	projects map[string]*Project
}

func New(log *zerolog.Logger, pub events.Publisher) *Registry {
	r := &Registry{log: zerolog.Nop(), pub: events.OrNoop(pub), projects: make(map[string]*Project)}
	if log != nil {
		r.log = log.With().Str("component", "registry").Logger()
	}
	return r
}

// Add registers p as active. Existing names are never overwritten,
// whatever their state.
func (r *Registry) Add(p *Project) error {
	r.mu.Lock()
	if _, ok := r.projects[p.Name]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrConflict, p.Name)
	}
	p.state.Store(int32(StateActive))
	r.projects[p.Name] = p
	r.mu.Unlock()
	r.log.Info().Str("project", p.Name).Int("models", len(p.Models)).Msg("project registered")
	r.pub.Publish(events.Event{Name: events.ProjectAdded, Project: p.Name})
	return nil
}

// Remove unregisters name and returns the removed project.
func (r *Registry) Remove(name string) (*Project, error) {
	r.mu.Lock()
	p, ok := r.projects[name]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(r.projects, name)
	r.mu.Unlock()
	p.state.Store(int32(StateEvicted))
	r.log.Info().Str("project", name).Msg("project removed")
	r.pub.Publish(events.Event{Name: events.ProjectRemoved, Project: name})
	return p, nil
}

// Get returns an active project. Expiring or evicted projects are absent.
func (r *Registry) Get(name string) (*Project, bool) {
	r.mu.RLock()
	p, ok := r.projects[name]
	r.mu.RUnlock()
	if !ok || p.State() != StateActive {
		return nil, false
	}
	return p, true
}

// Lookup returns the registered project in any state.
func (r *Registry) Lookup(name string) (*Project, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[name]
	return p, ok
}

// Has reports whether name is registered in any state.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// All returns active projects ordered by name.
func (r *Registry) All() []*Project {
	r.mu.RLock()
	out := make([]*Project, 0, len(r.projects))
	for _, p := range r.projects {
		if p.State() == StateActive {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns active project names, sorted.
func (r *Registry) Names() []string {
	all := r.All()
	out := make([]string, len(all))
	for i, p := range all {
		out[i] = p.Name
	}
	return out
}

// Len returns the number of registered projects in any state.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.projects)
}
