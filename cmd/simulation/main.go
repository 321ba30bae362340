package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tochemey/goakt/v3/actor"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
)

func main() {
	configFile := flag.String("config", "", "JSON or YAML configuration file (defaults are used when empty)")
	flag.Parse()

	ctx := context.Background()

	// 1. Configuration
	cfg := simulation.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = simulation.LoadConfig(*configFile); err != nil {
			log.Fatalf("💥 loading config: %v", err)
		}
	}

	logger, err := simulation.NewLogger(cfg.LogLevel, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}

	// 2. Actor System
	system, err := actor.NewActorSystem("FlockWorld", actor.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	if err := system.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer func() { _ = system.Stop(ctx) }()

	var telemetry *simulation.TelemetryWriter
	if cfg.Telemetry.Path != "" {
		if telemetry, err = simulation.CreateTelemetryFile(cfg.Telemetry.Path); err != nil {
			log.Fatal(err)
		}
	}

	// 3. Viewer
	game, err := simulation.GetNewGame(ctx, cfg, system, telemetry)
	if err != nil {
		log.Fatal(err)
	}

	ebiten.SetWindowSize(int(cfg.WorldWidth), int(cfg.WorldHeight))
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowTitle("Flocking: Separation, Alignment, Cohesion")
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
