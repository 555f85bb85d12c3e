package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/petatlas/internal/server"
)

var (
	servePort     int
	serveInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the atlas as a read-only JSON API",
	Long:  "Runs one load cycle, then serves districts, metrics, rankings, categories, facilities, and diagnostics over HTTP. POST /api/reload or --reload-interval replaces the snapshot.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAtlas("serve")
		if err != nil {
			return err
		}

		srv := server.New(env.Pipeline, server.Options{
			Sources:         env.Sources,
			ReloadPerMinute: cfg.Server.ReloadPerMinute,
			CORSOrigins:     cfg.Server.CORSOrigins,
		})
		if _, err := srv.Reload(ctx); err != nil {
			return eris.Wrap(err, "serve: initial load")
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
		if serveInterval > 0 {
			g.Go(func() error {
				reloadEvery(gctx, srv, serveInterval)
				return nil
			})
		}

		return g.Wait()
	},
}

// reloadEvery reloads the snapshot on a fixed interval until ctx is done.
// A failed reload keeps the current snapshot.
func reloadEvery(ctx context.Context, srv *server.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := srv.Reload(ctx); err != nil {
				zap.L().Warn("scheduled reload failed", zap.Error(err))
			}
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (default from config)")
	serveCmd.Flags().DurationVar(&serveInterval, "reload-interval", 0, "reload sources on this interval (0 disables)")
	rootCmd.AddCommand(serveCmd)
}
