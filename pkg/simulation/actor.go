package simulation

import (
	"fmt"
	"time"

	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
)

// Snapshot is what the flock actor hands to a viewer after each message.
type Snapshot struct {
	Frame         flock.Frame
	Birds         []behavior.Bird
	Stats         flock.Stats
	Width, Height float64
	TickDuration  time.Duration
}

// TickMessage asks the flock actor for one tick of dt. A non positive dt
// uses the configured time step.
func TickMessage(dt float64) *wrapperspb.DoubleValue {
	return wrapperspb.Double(dt)
}

// FlockActor is the single owner of a Runner. Ticks and commands are
// serialized by its mailbox, so the flock itself needs no locking.
type FlockActor struct {
	cfg        *Config
	telemetry  *TelemetryWriter
	runner     *Runner
	snapshotCh chan<- *Snapshot

	// --- Benchmark Stats ---
	ticks       int
	commands    int
	tickTime    time.Duration
	lastLogTime time.Time
}

// NewFlockActor creates the flock logic unit. telemetry may be nil.
func NewFlockActor(cfg *Config, telemetry *TelemetryWriter, snapshotCh chan<- *Snapshot) *FlockActor {
	return &FlockActor{
		cfg:         cfg,
		telemetry:   telemetry,
		snapshotCh:  snapshotCh,
		lastLogTime: time.Now(),
	}
}

func (a *FlockActor) PreStart(ctx *actor.Context) error {
	runner, err := NewRunner(a.cfg, ctx.ActorSystem().Logger(), a.telemetry)
	if err != nil {
		return fmt.Errorf("creating flock runner: %w", err)
	}
	a.runner = runner
	return nil
}

func (a *FlockActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {

	case *goaktpb.PostStart:
		ctx.Logger().Info("Flock started. Seeding birds...")
		if err := a.runner.Seed(a.cfg.InitialBirds); err != nil {
			ctx.Logger().Errorf("seeding failed: %v", err)
		}
		a.pushSnapshot()

	// 1. The Main Simulation Step (Driven by the viewer or a ticker)
	case *wrapperspb.DoubleValue:
		if _, err := a.runner.Step(msg.GetValue()); err != nil {
			ctx.Logger().Errorf("tick failed: %v", err)
			return
		}
		a.ticks++
		a.tickTime += a.runner.LastTickDuration()
		a.logBenchmarks(ctx)
		a.pushSnapshot()

	// 2. Commands from the UI
	case *structpb.Struct:
		a.commands++
		if err := a.runner.Apply(msg); err != nil {
			ctx.Logger().Warnf("command %q rejected: %v", msg.GetFields()["op"].GetStringValue(), err)
			return
		}
		a.pushSnapshot()

	default:
		ctx.Unhandled()
	}
}

func (a *FlockActor) logBenchmarks(ctx *actor.ReceiveContext) {
	if time.Since(a.lastLogTime) >= time.Second {
		stats := a.runner.Flock().Stats()
		avg := time.Duration(0)
		if a.ticks > 0 {
			avg = a.tickTime / time.Duration(a.ticks)
		}
		ctx.Logger().Infof("📊 TICK RATE: %d/sec (avg %s, commands %d) | Birds: %d | Speed: %.2f±%.2f",
			a.ticks, avg, a.commands, stats.Population, stats.MeanSpeed, stats.StdDevSpeed)
		a.ticks = 0
		a.commands = 0
		a.tickTime = 0
		a.lastLogTime = time.Now()
	}
}

func (a *FlockActor) pushSnapshot() {
	if a.snapshotCh == nil {
		return
	}
	select {
	case a.snapshotCh <- a.buildSnapshot():
	default:
		// viewer busy, skip frame
	}
}

func (a *FlockActor) buildSnapshot() *Snapshot {
	f := a.runner.Flock()
	w, h := a.runner.Arena()
	return &Snapshot{
		Frame:        f.Frame(),
		Birds:        f.Birds(),
		Stats:        f.Stats(),
		Width:        w,
		Height:       h,
		TickDuration: a.runner.LastTickDuration(),
	}
}

func (a *FlockActor) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Info("Flock is shutdown...")
	if a.runner == nil {
		return nil
	}
	return a.runner.Close()
}
