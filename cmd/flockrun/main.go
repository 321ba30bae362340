// Command flockrun steps a flock without any window and writes the tick
// statistics as CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		stop()
		log.Fatalf("💥 %v", err)
	}
}

// run returns instead of exiting so the deferred telemetry close always runs.
func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("flockrun", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "JSON or YAML configuration file (defaults are used when empty)")
	ticks := fs.Int("ticks", 1000, "number of ticks to simulate")
	out := fs.String("telemetry", "", "CSV output, overrides telemetry.path from the config")
	every := fs.Int("every", 0, "record one CSV row every N ticks, overrides telemetry.every")
	saveConfig := fs.String("save-config", "", "write the effective configuration as YAML")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := simulation.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = simulation.LoadConfig(*configFile); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}
	if *out != "" {
		cfg.Telemetry.Path = *out
	}
	if *every > 0 {
		cfg.Telemetry.Every = *every
	}
	if *saveConfig != "" {
		if err := cfg.WriteYAML(*saveConfig); err != nil {
			return err
		}
	}

	logger, err := simulation.NewLogger(cfg.LogLevel, stderr)
	if err != nil {
		return err
	}

	var telemetry *simulation.TelemetryWriter
	if cfg.Telemetry.Path != "" {
		if telemetry, err = simulation.CreateTelemetryFile(cfg.Telemetry.Path); err != nil {
			return err
		}
	}

	runner, err := simulation.NewRunner(cfg, logger, telemetry)
	if err != nil {
		_ = telemetry.Close()
		return err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			logger.Errorf("closing telemetry: %v", err)
		}
	}()
	if err := runner.Seed(cfg.InitialBirds); err != nil {
		return err
	}

	start := time.Now()
	if err := runner.Run(ctx, *ticks); err != nil {
		logger.Warnf("run stopped early: %v", err)
	}
	st := runner.Flock().Stats()
	elapsed := time.Since(start)
	logger.Infof("🏁 %d ticks in %s (%.1f ticks/s) | Birds: %d | Speed: %.2f±%.2f | degenerate %d | evictions %d",
		st.Tick, elapsed, float64(st.Tick)/elapsed.Seconds(),
		st.Population, st.MeanSpeed, st.StdDevSpeed, st.Degenerate, st.Evictions)
	return nil
}
