// Package events carries runtime lifecycle notifications from the pool,
// catalog and bundle codec to observers (metrics, tests).
package events

// Event names.
const (
	SessionBuilt     = "session_built"
	SessionShared    = "session_shared"
	SessionReleased  = "session_released"
	ProjectAdded     = "project_added"
	ProjectRemoved   = "project_removed"
	ProjectEvicted   = "project_evicted"
	ProjectSkipped   = "project_skipped"
	ModelSkipped     = "model_skipped"
	ImportSucceeded  = "import_succeeded"
	ImportFailed     = "import_failed"
	ExportSucceeded  = "export_succeeded"
	EvictionArmed    = "eviction_armed"
	StrategyOffered  = "strategy_offered"
	ProviderSelected = "provider_selected"
)

// Event represents a runtime lifecycle event.
// Minimal and stable: name + project and optional fields via key/values.
type Event struct {
	Name    string
	Project string
	Fields  map[string]any
}

// Publisher receives events. Implementations should be lightweight and
// non-blocking; Publish must not panic.
type Publisher interface {
	Publish(Event)
}

type noop struct{}

func (noop) Publish(Event) {}

// Noop drops events.
func Noop() Publisher { return noop{} }

// OrNoop returns p, or a Noop publisher when p is nil.
func OrNoop(p Publisher) Publisher {
	if p == nil {
		return noop{}
	}
	return p
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(e Event) { f(e) }

type multi []Publisher

func (m multi) Publish(e Event) {
	for _, p := range m {
		p.Publish(e)
	}
}

// Fanout publishes every event to each non-nil publisher in order.
func Fanout(ps ...Publisher) Publisher {
	var out multi
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
