// Package config loads service configuration from a file and the
// environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. SOLVERD_ADDR.
const EnvPrefix = "SOLVERD"

// Defaults applied by WithDefaults.
const (
	DefaultAddr          = ":19199"
	DefaultRoot          = "."
	DefaultCacheDir      = ".cached_examples"
	DefaultCompileDir    = "compile_projects"
	DefaultEncryptionKey = "@~-X(193)!"
	DefaultProvider      = "auto"
	DefaultMaxBundleMB   = 256
	DefaultImportRate    = 30
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr" envconfig:"ADDR"`
	// Root contains projects/ and the shared logic/ directory.
	Root       string `json:"root" yaml:"root" toml:"root" envconfig:"ROOT"`
	CacheDir   string `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir" envconfig:"CACHE_DIR"`
	CompileDir string `json:"compile_dir" yaml:"compile_dir" toml:"compile_dir" envconfig:"COMPILE_DIR"`
	// EncryptionKey is the default model key and the bundle secret.
	EncryptionKey string `json:"encryption_key" yaml:"encryption_key" toml:"encryption_key" envconfig:"ENCRYPTION_KEY"`
	Provider      string `json:"provider" yaml:"provider" toml:"provider" envconfig:"PROVIDER"`
	// ORTLibrary points at the onnxruntime shared library (onnx builds).
	ORTLibrary string `json:"ort_library" yaml:"ort_library" toml:"ort_library" envconfig:"ORT_LIBRARY"`
	DeviceID   int    `json:"device_id" yaml:"device_id" toml:"device_id" envconfig:"DEVICE_ID"`
	// BuiltinCorpus optionally replaces the embedded dictionary.
	BuiltinCorpus    string `json:"builtin_corpus" yaml:"builtin_corpus" toml:"builtin_corpus" envconfig:"BUILTIN_CORPUS"`
	UseBuiltinCorpus *bool  `json:"use_builtin_corpus" yaml:"use_builtin_corpus" toml:"use_builtin_corpus" envconfig:"USE_BUILTIN_CORPUS"`

	TrustedExtensions        []string `json:"trusted_extensions" yaml:"trusted_extensions" toml:"trusted_extensions" envconfig:"TRUSTED_EXTENSIONS"`
	AllowUntrustedExtensions bool     `json:"allow_untrusted_extensions" yaml:"allow_untrusted_extensions" toml:"allow_untrusted_extensions" envconfig:"ALLOW_UNTRUSTED_EXTENSIONS"`

	MaxBundleMB      int `json:"max_bundle_mb" yaml:"max_bundle_mb" toml:"max_bundle_mb" envconfig:"MAX_BUNDLE_MB"`
	ImportRatePerMin int `json:"import_rate_per_min" yaml:"import_rate_per_min" toml:"import_rate_per_min" envconfig:"IMPORT_RATE_PER_MIN"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format" envconfig:"LOG_FORMAT"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled" envconfig:"CORS_ENABLED"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins" envconfig:"CORS_ALLOWED_ORIGINS"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods" envconfig:"CORS_ALLOWED_METHODS"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers" envconfig:"CORS_ALLOWED_HEADERS"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overlays SOLVERD_* variables onto cfg. Unset variables leave
// fields alone.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	return nil
}

// WithDefaults returns a copy of c with unset fields filled.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Root == "" {
		c.Root = DefaultRoot
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.CompileDir == "" {
		c.CompileDir = DefaultCompileDir
	}
	if c.EncryptionKey == "" {
		c.EncryptionKey = DefaultEncryptionKey
	}
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.UseBuiltinCorpus == nil {
		on := true
		c.UseBuiltinCorpus = &on
	}
	if c.MaxBundleMB <= 0 {
		c.MaxBundleMB = DefaultMaxBundleMB
	}
	if c.ImportRatePerMin <= 0 {
		c.ImportRatePerMin = DefaultImportRate
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	return c
}

// BuiltinCorpusEnabled reports use_builtin_corpus, true when unset.
func (c Config) BuiltinCorpusEnabled() bool {
	return c.UseBuiltinCorpus == nil || *c.UseBuiltinCorpus
}

// resolve makes path absolute against root unless it already is.
func resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// CompilePath returns the compile directory resolved against Root.
func (c Config) CompilePath() string { return resolve(c.Root, c.CompileDir) }

// CachePath returns the cache directory resolved against Root.
func (c Config) CachePath() string { return resolve(c.Root, c.CacheDir) }
