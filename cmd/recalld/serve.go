package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/httpapi"
	"github.com/fyrsmithlabs/recalld/internal/tracker"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the workspace tracker",
	Long: `Serve runs recalld as a long-lived process: the HTTP API on the
configured address and, when enabled, the filesystem tracker that records
workspace changes for the next capture.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if app.cfg.Tracker.Enabled {
		tr, err := tracker.New(app.log, app.logger)
		if err != nil {
			return err
		}
		defer tr.Stop()
		for _, path := range app.cfg.Tracker.Paths {
			if err := tr.Watch(path); err != nil {
				app.logger.Warn("watching path failed",
					zap.String("path", path),
					zap.Error(err))
			}
		}
		tr.Start(ctx)
	}

	server, err := httpapi.NewServer(app.captures, app.searcher, app.cfg.HTTP, app.logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
