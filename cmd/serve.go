package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(app *app) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon: account coordinator, balance watchdog and operator API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			listener, err := net.Listen("tcp", app.cfg.Server.Listen)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", app.cfg.Server.Listen, err)
			}

			return serve(ctx, app, listener, debug)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Run the HTTP router in debug mode")

	return cmd
}

// serve runs the daemon on listener until ctx is cancelled.
func serve(ctx context.Context, app *app, listener net.Listener, debug bool) error {
	logger := app.logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d, err := buildDaemon(ctx, app.cfg, logger)
	if err != nil {
		_ = listener.Close()
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("daemon close failed", "error", err)
		}
	}()

	if count, err := d.coordinator.Store().Count(ctx); err == nil {
		logger.Info("credential store ready", "accounts", count, "max", d.coordinator.Store().MaxAccounts())
	}

	srv := &http.Server{
		Handler:           d.api.Handler(debug),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	watchdogDone := make(chan struct{})
	go func() {
		defer close(watchdogDone)
		if d.watchdog == nil {
			logger.Info("watchdog disabled")
			return
		}
		if err := d.watchdog.Run(ctx); err != nil {
			logger.Error("watchdog stopped", "error", err)
		}
	}()

	logger.Info("daemon listening", "addr", listener.Addr().String())

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("serve api: %w", err)
		}
	}

	logger.Info("daemon shutting down")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown incomplete", "error", err)
	}
	<-watchdogDone

	return runErr
}
