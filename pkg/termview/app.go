package termview

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
)

// birds added by the 'a' key
const addBatch = 50

// App runs a flock in the terminal. Keys and ticks are handled on the
// same goroutine, so the runner is never shared.
type App struct {
	screen   tcell.Screen
	renderer *Renderer
	runner   *simulation.Runner
	logger   log.Logger
	paused   bool
}

func NewApp(screen tcell.Screen, runner *simulation.Runner, logger log.Logger) *App {
	if logger == nil {
		logger = log.DiscardLogger
	}
	return &App{
		screen:   screen,
		renderer: NewRenderer(screen),
		runner:   runner,
		logger:   logger,
	}
}

// Paused reports whether ticks are currently skipped.
func (a *App) Paused() bool { return a.paused }

// HandleEvent reacts to one terminal event. It returns false when the
// user asked to quit.
func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}
		f := a.runner.Flock()
		var err error
		switch ev.Rune() {
		case 'q':
			return false
		case ' ':
			a.paused = !a.paused
		case 'c':
			err = a.runner.Apply(simulation.ClearCommand())
		case 'a':
			err = a.runner.Seed(addBatch)
		case '+':
			err = a.runner.Apply(simulation.SetCapacityCommand(f.Capacity() * 2))
		case '-':
			if f.Capacity() > 1 {
				err = a.runner.Apply(simulation.SetCapacityCommand(f.Capacity() / 2))
			}
		}
		if err != nil {
			a.logger.Warnf("key %q: %v", ev.Rune(), err)
		}

	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

// Frame ticks the flock unless paused and redraws.
func (a *App) Frame() error {
	if !a.paused {
		if _, err := a.runner.Step(0); err != nil {
			return err
		}
	}
	f := a.runner.Flock()
	w, h := a.runner.Arena()
	a.renderer.Draw(f, w, h, StatusLine(f.Stats(), f.Capacity(), a.paused))
	return nil
}

// Run polls events in the background and draws a frame every interval
// until the user quits or ctx is done.
func (a *App) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	done := make(chan struct{})
	defer close(done)
	eventChan := make(chan tcell.Event, 100)
	go a.pollEvents(done, eventChan)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-eventChan:
			if !a.HandleEvent(ev) {
				return nil
			}

		case <-ticker.C:
			if err := a.Frame(); err != nil {
				return err
			}
		}
	}
}

// pollEvents forwards screen events to out until the screen is finalized
// or done is closed.
func (a *App) pollEvents(done <-chan struct{}, out chan<- tcell.Event) {
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			// screen finalized
			return
		}
		select {
		case out <- ev:
		case <-done:
			return
		}
	}
}
