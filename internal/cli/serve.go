package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"solverd/internal/engine"
	"solverd/internal/events"
	"solverd/internal/httpapi"
	"solverd/internal/manager"
)

func serveCmd(a *app) *cobra.Command {
	var addr string
	c := &cobra.Command{
		Use:   "serve",
		Short: "Load projects and serve the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Addr = addr
			}
			mcfg, err := a.managerConfig()
			if err != nil {
				return err
			}
			mcfg.Publisher = events.Metrics()
			mcfg.EngineOptions = engine.Options{LibraryPath: a.cfg.ORTLibrary, DeviceID: a.cfg.DeviceID}
			mgr, err := manager.New(mcfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := mgr.Close(); err != nil {
					a.log.Warn().Err(err).Msg("close runtime")
				}
			}()
			if r := mgr.SanityCheck(); r.Error != "" {
				a.log.Warn().Str("engine", r.Engine).Bool("engine_built", r.EngineBuilt).Str("error", r.Error).Msg("sanity check")
			}

			httpapi.SetLogger(a.log)
			httpapi.SetMaxBodyBytes(int64(a.cfg.MaxBundleMB) << 20)
			httpapi.SetImportRate(a.cfg.ImportRatePerMin)
			httpapi.SetCORSOptions(a.cfg.CORSEnabled, a.cfg.CORSAllowedOrigins, a.cfg.CORSAllowedMethods, a.cfg.CORSAllowedHeaders)
			srv := &http.Server{
				Addr:              a.cfg.Addr,
				Handler:           httpapi.NewMux(mgr),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", a.cfg.Addr).Str("root", a.cfg.Root).Msg("solverd listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			// Graceful shutdown (Ctrl+C / SIGTERM)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			select {
			case err, ok := <-errCh:
				if ok {
					return err
				}
				return nil
			case <-ctx.Done():
			}
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdown); err != nil {
				a.log.Warn().Err(err).Msg("graceful shutdown error")
			}
			return nil
		},
	}
	c.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default \":19199\")")
	return c
}
