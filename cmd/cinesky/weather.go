package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/cinesky/internal/weather"
)

func newWeatherCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weather <city>",
		Short: "Fetch current weather and photography conditions for a city",
		Args:  cobra.ExactArgs(1),
		RunE:  runWeatherCmd,
	}

	cmd.Flags().String("country", "", "country code or name")
	cmd.Flags().Bool("map", false, "print the map view instead of the report")

	return cmd
}

func runWeatherCmd(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	country, _ := cmd.Flags().GetString("country")
	asMap, _ := cmd.Flags().GetBool("map")

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTPTimeout*3)
	defer cancel()

	rec, err := newWeatherService(cfg, log).FetchCurrent(ctx, weather.Location{City: args[0], Country: country})
	if err != nil {
		return err
	}

	report := weather.NewReport(rec, time.Now())
	var out any = report
	if asMap {
		out = weather.NewMapView(rec, report)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
