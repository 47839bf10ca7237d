package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/i474232898/cinesky/internal/config"
	"github.com/i474232898/cinesky/internal/logger"
)

func execute() {
	rootCmd := &cobra.Command{
		Use:           "cinesky",
		Short:         "CineSky weather and photography planner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newWeatherCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.AppConfig, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(
		logger.WithLevel(level),
		logger.WithFormat(logger.Format(cfg.LogFormat)),
		logger.WithAttr(slog.String("service", "cinesky")),
	)
	slog.SetDefault(log)
	return cfg, log, nil
}
