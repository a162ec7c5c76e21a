// Package cli is the solverd command tree.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"solverd/internal/categories"
	"solverd/internal/config"
	"solverd/internal/manager"
)

// app carries what every subcommand needs after flag parsing.
type app struct {
	cfg config.Config
	log zerolog.Logger
	out io.Writer
}

// Execute runs the command tree and exits non-zero on error.
func Execute() {
	cmd := NewRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree writing results to out and logs to
// logs.
func NewRootCmd(out, logs io.Writer) *cobra.Command {
	a := &app{out: out}
	var (
		cfgPath   string
		root      string
		logLevel  string
		logFormat string
	)
	cmd := &cobra.Command{
		Use:           "solverd",
		Short:         "CAPTCHA solver project and model runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var cfg config.Config
			if cfgPath != "" {
				c, err := config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("config: %w", err)
				}
				cfg = c
			}
			if err := config.ApplyEnv(&cfg); err != nil {
				return err
			}
			if root != "" {
				cfg.Root = root
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if logFormat != "" {
				cfg.LogFormat = logFormat
			}
			a.cfg = cfg.WithDefaults()
			l, err := newLogger(a.cfg.LogLevel, a.cfg.LogFormat, logs)
			if err != nil {
				return err
			}
			a.log = l
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file (.yaml, .json or .toml)")
	cmd.PersistentFlags().StringVar(&root, "root", "", "Directory containing projects/ and logic/ (default \".\")")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console|json")

	cmd.AddCommand(serveCmd(a), exportCmd(a), importCmd(a), projectsCmd(a), categoriesCmd(a))
	return cmd
}

func newLogger(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	switch strings.ToLower(format) {
	case "json":
	case "console", "":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// corpus returns the builtin dictionary selected by the config.
func (a *app) corpus() ([]byte, error) {
	if !a.cfg.BuiltinCorpusEnabled() {
		return nil, nil
	}
	if a.cfg.BuiltinCorpus == "" {
		return categories.BuiltinDict, nil
	}
	b, err := os.ReadFile(a.cfg.BuiltinCorpus)
	if err != nil {
		return nil, fmt.Errorf("builtin corpus: %w", err)
	}
	return b, nil
}

// managerConfig maps the service config onto the manager.
func (a *app) managerConfig() (manager.Config, error) {
	corpus, err := a.corpus()
	if err != nil {
		return manager.Config{}, err
	}
	return manager.Config{
		Root:           a.cfg.Root,
		CacheDir:       a.cfg.CacheDir,
		CompileDir:     a.cfg.CompileDir,
		EncryptionKey:  a.cfg.EncryptionKey,
		Provider:       a.cfg.Provider,
		Corpus:         corpus,
		Trusted:        a.cfg.TrustedExtensions,
		AllowUntrusted: a.cfg.AllowUntrustedExtensions,
		Logger:         &a.log,
	}, nil
}
