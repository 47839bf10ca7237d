package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/cinesky/internal/api/http"
	"github.com/i474232898/cinesky/internal/scheduler"
	"github.com/i474232898/cinesky/internal/session"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}

	cmd.Flags().String("port", "", "listen port (overrides PORT)")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service := newWeatherService(cfg, log)

	backend, closeMarkers, err := newMarkerStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeMarkers()

	registry := session.NewRegistry(newIdentitySource(cfg), backend, log.With("component", "session"), sessionOptions(cfg)...)
	defer registry.Close()

	sched := scheduler.New(scheduler.Config{
		Locations:     cfg.Locations(),
		FetchInterval: cfg.FetchInterval,
		FetchTimeout:  cfg.HTTPTimeout * 3,
		IdleTimeout:   cfg.ClientIdleTimeout,
	}, service, registry, log)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	app := httpapi.NewApp(httpapi.Deps{
		Sessions:      registry,
		Weather:       service,
		PopularCities: cfg.Locations(),
		ClientCookie:  cfg.ClientCookie,
		Logger:        log.With("component", "http"),
		AccessLog:     true,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "port", cfg.Port, "identity", cfg.IdentityProvider)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	return nil
}
