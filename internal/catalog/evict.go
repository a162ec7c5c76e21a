package catalog

import (
	"fmt"
	"time"

	"solverd/internal/events"
	"solverd/internal/registry"
)

// ScheduleEviction arms a one-shot timer that evicts project after ttl.
// Re-arming replaces an earlier timer.
func (c *Catalog) ScheduleEviction(project string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.reg.Get(project)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, project)
	}
	if old, ok := c.timers[project]; ok {
		old.stop()
	}
	t := &evictionTimer{project: p, due: c.now().Add(ttl)}
	t.stop = c.after(ttl, func() { c.fire(project, p) })
	c.timers[project] = t
	c.log.Info().Str("project", project).Dur("ttl", ttl).Msg("eviction armed")
	c.pub.Publish(events.Event{Name: events.EvictionArmed, Project: project, Fields: map[string]any{"ttl_seconds": ttl.Seconds()}})
	return nil
}

// fire evicts p if it is still the active registration of name. A fire
// for a project that was removed or replaced does nothing.
func (c *Catalog) fire(name string, p *registry.Project) {
	c.mu.Lock()
	if t, ok := c.timers[name]; ok && t.project == p {
		delete(c.timers, name)
	}
	if !p.Transition(registry.StateActive, registry.StateExpiring) {
		c.mu.Unlock()
		c.log.Debug().Str("project", name).Msg("eviction fired for inactive project")
		return
	}
	hashes := c.unbindProject(name)
	if _, err := c.reg.Remove(name); err != nil {
		c.log.Warn().Str("project", name).Err(err).Msg("evicted project was not registered")
	}
	c.mu.Unlock()

	c.release(name, hashes)
	c.log.Info().Str("project", name).Int("models", len(hashes)).Msg("project expired and evicted")
	c.pub.Publish(events.Event{Name: events.ProjectEvicted, Project: name})
}

// Remove unregisters an active project now, disarming any eviction timer.
func (c *Catalog) Remove(name string) error {
	c.mu.Lock()
	p, ok := c.reg.Lookup(name)
	if !ok || !p.Transition(registry.StateActive, registry.StateExpiring) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if t, ok := c.timers[name]; ok {
		t.stop()
		delete(c.timers, name)
	}
	hashes := c.unbindProject(name)
	if _, err := c.reg.Remove(name); err != nil {
		c.log.Warn().Str("project", name).Err(err).Msg("removed project was not registered")
	}
	c.mu.Unlock()

	c.release(name, hashes)
	return nil
}
