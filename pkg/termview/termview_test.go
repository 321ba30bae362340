package termview

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
)

func newScreen(t *testing.T, cols, rows int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("Failed to init screen: %v", err)
	}
	screen.SetSize(cols, rows)
	t.Cleanup(screen.Fini)
	return screen
}

func newRunner(t *testing.T) *simulation.Runner {
	t.Helper()
	cfg := simulation.DefaultConfig()
	cfg.WorldWidth = 200
	cfg.WorldHeight = 100
	cfg.Capacity = 100
	r, err := simulation.NewRunner(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestGlyph(t *testing.T) {
	tests := []struct {
		v    geometry.Vector2D
		want rune
	}{
		{geometry.Vector2D{X: 1, Y: 0}, '→'},
		{geometry.Vector2D{X: 1, Y: 1}, '↗'},
		{geometry.Vector2D{X: 0, Y: 2}, '↑'},
		{geometry.Vector2D{X: -1, Y: 0.1}, '←'},
		{geometry.Vector2D{X: 0, Y: -3}, '↓'},
		{geometry.Vector2D{X: 1, Y: -1}, '↘'},
		{geometry.Zero, stillGlyph},
	}
	for _, tt := range tests {
		if got := Glyph(tt.v); got != tt.want {
			t.Errorf("Glyph(%v) = %q; want %q", tt.v, got, tt.want)
		}
	}
}

func TestCell(t *testing.T) {
	tests := []struct {
		name   string
		p      geometry.Vector2D
		x, y   int
		inside bool
	}{
		{"Origin is the center", geometry.Vector2D{}, 10, 5, true},
		{"Top left corner", geometry.Vector2D{X: -100, Y: 50}, 0, 0, true},
		{"Just inside bottom right", geometry.Vector2D{X: 99, Y: -49}, 19, 9, true},
		{"Right edge is outside", geometry.Vector2D{X: 100, Y: 0}, 0, 0, false},
		{"Wrap margin is outside", geometry.Vector2D{X: 0, Y: 60}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, ok := Cell(tt.p, 200, 100, 20, 10)
			if ok != tt.inside || (ok && (x != tt.x || y != tt.y)) {
				t.Errorf("Cell(%v) = %d, %d, %v; want %d, %d, %v", tt.p, x, y, ok, tt.x, tt.y, tt.inside)
			}
		})
	}
}

func TestRenderer_Draw(t *testing.T) {
	screen := newScreen(t, 20, 11)
	r := newRunner(t)
	f := r.Flock()
	if err := f.InsertBird("default",
		flock.WithPosition(geometry.Vector2D{}),
		flock.WithVelocity(geometry.Vector2D{X: 1})); err != nil {
		t.Fatal(err)
	}

	NewRenderer(screen).Draw(f, 200, 100, " tick")

	mainc, _, style, _ := screen.GetContent(10, 5)
	if mainc != '→' {
		t.Errorf("bird cell = %q; want '→'", mainc)
	}
	fg, _, _ := style.Decompose()
	wantFg, _, _ := SpeciesStyle(behavior.DefaultSpecies()).Decompose()
	if fg != wantFg {
		t.Errorf("bird color = %v; want %v", fg, wantFg)
	}

	if c, _, _, _ := screen.GetContent(0, 0); c != ' ' {
		t.Errorf("empty cell = %q; want blank", c)
	}
	if c, _, _, _ := screen.GetContent(1, 10); c != 't' {
		t.Errorf("status line starts with %q; want 't'", c)
	}
}

func TestApp_HandleEvent(t *testing.T) {
	screen := newScreen(t, 40, 12)
	r := newRunner(t)
	app := NewApp(screen, r, nil)
	key := func(ch rune) *tcell.EventKey { return tcell.NewEventKey(tcell.KeyRune, ch, tcell.ModNone) }

	if !app.HandleEvent(key('a')) || r.Flock().Len() != addBatch {
		t.Fatalf("'a' should add %d birds, have %d", addBatch, r.Flock().Len())
	}

	app.HandleEvent(key('+'))
	if r.Flock().Capacity() != 200 {
		t.Errorf("capacity after '+' = %d; want 200", r.Flock().Capacity())
	}
	app.HandleEvent(key('-'))
	app.HandleEvent(key('-'))
	if r.Flock().Capacity() != 50 {
		t.Errorf("capacity after '-' twice = %d; want 50", r.Flock().Capacity())
	}

	app.HandleEvent(key(' '))
	if !app.Paused() {
		t.Fatal("space should pause")
	}
	if err := app.Frame(); err != nil {
		t.Fatal(err)
	}
	if tick := r.Flock().Stats().Tick; tick != 0 {
		t.Errorf("paused frame ticked to %d", tick)
	}
	app.HandleEvent(key(' '))
	if err := app.Frame(); err != nil {
		t.Fatal(err)
	}
	if tick := r.Flock().Stats().Tick; tick != 1 {
		t.Errorf("tick = %d; want 1", tick)
	}

	app.HandleEvent(key('c'))
	if r.Flock().Len() != 0 {
		t.Errorf("'c' left %d birds", r.Flock().Len())
	}

	if app.HandleEvent(key('q')) {
		t.Error("'q' should quit")
	}
	if app.HandleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) {
		t.Error("Escape should quit")
	}
}

func TestApp_PollEventsStopsWhenDone(t *testing.T) {
	screen := newScreen(t, 20, 10)
	app := NewApp(screen, newRunner(t), nil)
	screen.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)

	done := make(chan struct{})
	out := make(chan tcell.Event) // nobody reads it
	finished := make(chan struct{})
	go func() {
		app.pollEvents(done, out)
		close(finished)
	}()
	close(done)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("pollEvents stayed blocked on a full channel after done")
	}
}

func TestApp_RunReturnsOnCancel(t *testing.T) {
	screen := newScreen(t, 20, 10)
	app := NewApp(screen, newRunner(t), nil)
	for i := 0; i < 5; i++ {
		screen.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := app.Run(ctx, time.Hour); err != context.DeadlineExceeded {
		t.Errorf("Run() error = %v; want context.DeadlineExceeded", err)
	}
}
