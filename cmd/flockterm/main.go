// Command flockterm shows a flock in the terminal.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/termview"
)

func main() {
	configFile := flag.String("config", "", "JSON or YAML configuration file (defaults are used when empty)")
	logFile := flag.String("log", "flockterm.log", "log file, the terminal belongs to the view")
	fps := flag.Int("fps", 30, "frames per second")
	flag.Parse()

	cfg := simulation.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = simulation.LoadConfig(*configFile); err != nil {
			log.Fatalf("💥 loading config: %v", err)
		}
	}
	if *fps < 1 {
		*fps = 1
	}

	lf, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatal(err)
	}
	defer lf.Close()
	logger, err := simulation.NewLogger(cfg.LogLevel, lf)
	if err != nil {
		log.Fatal(err)
	}

	runner, err := simulation.NewRunner(cfg, logger, nil)
	if err != nil {
		log.Fatal(err)
	}
	if err := runner.Seed(cfg.InitialBirds); err != nil {
		log.Fatal(err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatal(err)
	}
	if err := screen.Init(); err != nil {
		log.Fatal(err)
	}

	app := termview.NewApp(screen, runner, logger)
	err = app.Run(context.Background(), time.Second/time.Duration(*fps))
	screen.Fini()
	if err != nil {
		log.Fatal(err)
	}
}
