package manager

import (
	"time"

	"github.com/rs/zerolog"

	"solverd/internal/catalog"
	"solverd/internal/config"
	"solverd/internal/engine"
	"solverd/internal/events"
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// Root contains projects/ and logic/.
	Root string
	// CacheDir receives demo samples of imported projects.
	CacheDir string
	// CompileDir holds bundles imported at startup. Empty disables autoload.
	CompileDir    string
	EncryptionKey string
	// Provider is auto, cpu or cuda.
	Provider string
	// Engine overrides the build-selected engine. Tests use enginetest.
	Engine        engine.Engine
	EngineOptions engine.Options
	// Corpus is the builtin dictionary appended to every model corpus.
	Corpus []byte

	Trusted        []string
	AllowUntrusted bool

	Logger    *zerolog.Logger
	Publisher events.Publisher
	// Clock and After replace time.Now and time.AfterFunc in tests.
	Clock func() time.Time
	After catalog.AfterFunc
}

// withDefaults fills what New needs from the service defaults.
func (c Config) withDefaults() Config {
	if c.Root == "" {
		c.Root = config.DefaultRoot
	}
	if c.CacheDir == "" {
		c.CacheDir = config.DefaultCacheDir
	}
	if c.EncryptionKey == "" {
		c.EncryptionKey = config.DefaultEncryptionKey
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}
