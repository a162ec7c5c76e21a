package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nroot: /srv\nprovider: cpu\nuse_builtin_corpus: false\ntrusted_extensions: [abc, def]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.Root != "/srv" || cfg.Provider != "cpu" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.BuiltinCorpusEnabled() {
		t.Fatalf("use_builtin_corpus=false not honoured")
	}
	if len(cfg.TrustedExtensions) != 2 || cfg.TrustedExtensions[1] != "def" {
		t.Fatalf("trusted: %v", cfg.TrustedExtensions)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","cache_dir":"/c","max_bundle_mb":12,"allow_untrusted_extensions":true}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.CacheDir != "/c" || cfg.MaxBundleMB != 12 || !cfg.AllowUntrustedExtensions {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\ncompile_dir=\"bundles\"\nencryption_key=\"k\"\nimport_rate_per_min=5\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.CompileDir != "bundles" || cfg.EncryptionKey != "k" || cfg.ImportRatePerMin != 5 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	bad := writeTempFile(t, d, "bad.json", "{")
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestApplyEnvOverlays(t *testing.T) {
	t.Setenv("SOLVERD_ADDR", ":1234")
	t.Setenv("SOLVERD_TRUSTED_EXTENSIONS", "aa,bb")
	t.Setenv("SOLVERD_USE_BUILTIN_CORPUS", "false")
	cfg := Config{Addr: ":1", Root: "/keep"}
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("env: %v", err)
	}
	if cfg.Addr != ":1234" {
		t.Fatalf("addr not overridden: %q", cfg.Addr)
	}
	if cfg.Root != "/keep" {
		t.Fatalf("unset variable clobbered root: %q", cfg.Root)
	}
	if len(cfg.TrustedExtensions) != 2 || cfg.TrustedExtensions[0] != "aa" {
		t.Fatalf("trusted: %v", cfg.TrustedExtensions)
	}
	if cfg.BuiltinCorpusEnabled() {
		t.Fatalf("expected builtin corpus disabled")
	}
}

func TestApplyEnvBadValue(t *testing.T) {
	t.Setenv("SOLVERD_MAX_BUNDLE_MB", "lots")
	var cfg Config
	if err := ApplyEnv(&cfg); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{Root: "/srv"}.WithDefaults()
	if cfg.Addr != DefaultAddr || cfg.CacheDir != DefaultCacheDir || cfg.CompileDir != DefaultCompileDir {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.EncryptionKey != DefaultEncryptionKey || cfg.Provider != "auto" || !cfg.BuiltinCorpusEnabled() {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.MaxBundleMB != DefaultMaxBundleMB || cfg.ImportRatePerMin != DefaultImportRate {
		t.Fatalf("limits not defaulted: %+v", cfg)
	}
	if got := cfg.CompilePath(); got != filepath.Join("/srv", DefaultCompileDir) {
		t.Fatalf("compile path: %s", got)
	}
	abs := Config{Root: "/srv", CacheDir: "/var/cache/solverd"}.WithDefaults()
	if abs.CachePath() != "/var/cache/solverd" {
		t.Fatalf("absolute cache dir rewritten: %s", abs.CachePath())
	}
}
