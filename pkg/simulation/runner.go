package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
)

// Runner is the host of one flock: it owns the arena size, the time step
// and the telemetry sink, and decides when a tick happens.
type Runner struct {
	flock     *flock.Flock
	logger    log.Logger
	telemetry *TelemetryWriter
	every     int

	width, height float64
	timeStep      float64

	lastTick time.Duration
}

// NewRunner builds an empty flock from cfg and registers its species.
// telemetry may be nil.
func NewRunner(cfg *Config, logger log.Logger, telemetry *TelemetryWriter) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.DiscardLogger
	}
	opts, err := cfg.FlockOptions(logger)
	if err != nil {
		return nil, err
	}
	f, err := flock.New(opts)
	if err != nil {
		return nil, fmt.Errorf("creating flock: %w", err)
	}
	for _, s := range cfg.Species {
		if err := f.AddSpeciesConfig(s.ID, s.Species); err != nil {
			return nil, err
		}
	}
	every := cfg.Telemetry.Every
	if every < 1 {
		every = 1
	}
	return &Runner{
		flock:     f,
		logger:    logger,
		telemetry: telemetry,
		every:     every,
		width:     cfg.WorldWidth,
		height:    cfg.WorldHeight,
		timeStep:  cfg.TimeStep,
	}, nil
}

// Seed adds n birds at random positions, picking each species by weight.
func (r *Runner) Seed(n int) error {
	for i := 0; i < n; i++ {
		if _, err := r.flock.InsertWeightedBird(r.width, r.height); err != nil {
			return fmt.Errorf("seeding bird %d: %w", i, err)
		}
	}
	r.logger.Infof("🐦 seeded %d birds (population %d/%d)", n, r.flock.Len(), r.flock.Capacity())
	return nil
}

// Step ticks the flock once. dt <= 0 uses the configured time step.
func (r *Runner) Step(dt float64) (flock.Frame, error) {
	if dt <= 0 {
		dt = r.timeStep
	}
	start := time.Now()
	frame, err := r.flock.Tick(r.width, r.height, dt)
	if err != nil {
		return flock.Frame{}, err
	}
	r.lastTick = time.Since(start)

	stats := r.flock.Stats()
	if r.telemetry != nil && stats.Tick%uint64(r.every) == 0 {
		if err := r.telemetry.Write(NewTickRecord(stats, r.lastTick)); err != nil {
			return frame, err
		}
	}
	return frame, nil
}

// Run steps n times, or until ctx is done. A tick is never interrupted.
func (r *Runner) Run(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.Step(0); err != nil {
			return err
		}
	}
	return nil
}

// Flock exposes the simulated flock, mostly for inspection.
func (r *Runner) Flock() *flock.Flock { return r.flock }

// Arena returns the current arena size.
func (r *Runner) Arena() (width, height float64) { return r.width, r.height }

// SetArena changes the arena size used by the following ticks.
func (r *Runner) SetArena(width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: arena must have a positive size, got %vx%v", ErrInvalidConfig, width, height)
	}
	r.width, r.height = width, height
	return nil
}

// LastTickDuration is the wall time spent in the last flock tick.
func (r *Runner) LastTickDuration() time.Duration { return r.lastTick }

// Close flushes and closes the telemetry sink.
func (r *Runner) Close() error {
	return r.telemetry.Close()
}
