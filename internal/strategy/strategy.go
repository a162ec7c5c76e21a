// Package strategy is the build-time registry of solving strategies.
//
// Strategy source code carried in a bundle is never executed. It is only
// recorded, and only when its digest is trusted and the strategy it names
// is compiled into this binary.
package strategy

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"solverd/internal/events"
)

var (
	// ErrUntrustedExtension is returned for strategy source whose digest is
	// not on the trust list.
	ErrUntrustedExtension = errors.New("untrusted strategy extension")
	// ErrUnknownStrategy is returned when no compiled-in strategy has the name.
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrAlreadyOffered is returned when project already has recorded source.
	ErrAlreadyOffered = errors.New("strategy source already recorded")
)

// builtins are the strategies shipped with the solving layer.
var builtins = []string{
	"AdaptionArithmeticCTCLogic",
	"ArithmeticCTCLogic",
	"CTCLogic",
	"ClickByOrderLogic",
	"ClickBySemanticLogic",
	"ClickBySimTextTitleLogic",
	"ClickByTextTitleLogic",
	"ClickSliderLogic",
	"ClsLogic",
	"DoubleCTCLogic",
	"GIFAllFramesCTCLogic",
	"GIFBlendCTCLogic",
	"GIFConcatCTCLogic",
	"JigsawLogic",
	"RegLogic",
	"RotateRegLogic",
	"SliderRegLogic",
}

// Builtins returns the names of the shipped strategies, sorted.
func Builtins() []string {
	out := make([]string, len(builtins))
	copy(out, builtins)
	return out
}

// IsBuiltin reports whether name is a shipped strategy.
func IsBuiltin(name string) bool {
	i := sort.SearchStrings(builtins, name)
	return i < len(builtins) && builtins[i] == name
}

// Extension records strategy source accepted for a project.
type Extension struct {
	Project  string
	Strategy string
	Path     string
	Digest   string
	Size     int
}

// Config configures a Registry.
type Config struct {
	// Trusted holds hex sha256 digests of accepted strategy sources.
	Trusted        []string
	AllowUntrusted bool
	Logger         *zerolog.Logger
	Publisher      events.Publisher
}

// Registry tracks compiled-in strategies and accepted extensions.
type Registry struct {
	allowUntrusted bool
	log            zerolog.Logger
	pub            events.Publisher

	mu         sync.RWMutex
	names      map[string]struct{}
	trusted    map[string]struct{}
	extensions map[string][]Extension
}

// New returns a registry preloaded with the builtin strategies.
func New(cfg Config) *Registry {
	r := &Registry{
		allowUntrusted: cfg.AllowUntrusted,
		log:            zerolog.Nop(),
		pub:            events.OrNoop(cfg.Publisher),
		names:          make(map[string]struct{}),
		trusted:        make(map[string]struct{}),
		extensions:     make(map[string][]Extension),
	}
	if cfg.Logger != nil {
		r.log = cfg.Logger.With().Str("component", "strategy").Logger()
	}
	for _, n := range builtins {
		r.names[n] = struct{}{}
	}
	for _, d := range cfg.Trusted {
		r.trusted[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return r
}

// Register adds a compiled-in strategy.
func (r *Registry) Register(name string) {
	r.mu.Lock()
	r.names[name] = struct{}{}
	r.mu.Unlock()
}

// Trust adds a source digest to the trust list.
func (r *Registry) Trust(digest string) {
	r.mu.Lock()
	r.trusted[strings.ToLower(digest)] = struct{}{}
	r.mu.Unlock()
}

// Has reports whether a strategy is compiled in.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[name]
	return ok
}

// Names returns compiled-in strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Digest returns the hex sha256 of a source file.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Offer hands strategy source that arrived for project to the registry.
// Files map bundle paths to source bytes. All files are checked before
// anything is recorded. An existing record for project is never replaced.
func (r *Registry) Offer(project, strategy string, files map[string][]byte) error {
	if len(files) == 0 {
		return nil
	}
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.extensions[project]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyOffered, project)
	}
	exts := make([]Extension, 0, len(paths))
	for _, p := range paths {
		d := Digest(files[p])
		if _, ok := r.trusted[d]; !ok && !r.allowUntrusted {
			r.log.Warn().Str("project", project).Str("path", p).Str("digest", d).Msg("rejected untrusted strategy source")
			return fmt.Errorf("%w: %s", ErrUntrustedExtension, p)
		}
		exts = append(exts, Extension{Project: project, Strategy: strategy, Path: p, Digest: d, Size: len(files[p])})
	}
	if _, ok := r.names[strategy]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStrategy, strategy)
	}
	r.extensions[project] = exts
	r.log.Info().Str("project", project).Str("strategy", strategy).Int("files", len(exts)).Msg("strategy source accepted")
	r.pub.Publish(events.Event{Name: events.StrategyOffered, Project: project, Fields: map[string]any{"strategy": strategy}})
	return nil
}

// Withdraw forgets the extensions recorded for project.
func (r *Registry) Withdraw(project string) {
	r.mu.Lock()
	delete(r.extensions, project)
	r.mu.Unlock()
}

// Extensions returns what was accepted for project.
func (r *Registry) Extensions(project string) []Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Extension, len(r.extensions[project]))
	copy(out, r.extensions[project])
	return out
}
