package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveWorkers int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the upload page and HTTP API",
	Long: `Start an HTTP server with the resume upload page and the parse endpoint.
When DB_URL, RABBITMQ_URL and the R2 settings are present, queued analyses are
enabled and the worker pool runs in the same process.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 3, "Number of in-process queue workers (0 disables them)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.Infra.Configured() {
		if err := cfg.Infra.Validate(); err != nil {
			return err
		}
		closeInfra, err := app.connectInfra(ctx, cfg.Infra)
		if err != nil {
			return err
		}
		defer closeInfra()
	} else {
		slog.Warn("storage, database and queue not configured; serving synchronous parsing only")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if app.asyncEnabled() && serveWorkers > 0 {
		g.Go(func() error {
			slog.Info("starting consumer worker pool", "workers", serveWorkers)
			return app.StartConsumerWorkerPool(gctx, serveWorkers)
		})
	}

	return g.Wait()
}
