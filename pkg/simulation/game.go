package simulation

import (
	"context"
	"fmt"
	"image/color"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/tochemey/goakt/v3/actor"
	"google.golang.org/protobuf/proto"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/ui"
)

// DrawTriangles takes uint16 indices
const maxVerticesPerBatch = 1<<16 - 1

var (
	backgroundColor = color.RGBA{R: 245, G: 245, B: 240, A: 255}
	whiteImage      *ebiten.Image
)

type Game struct {
	ctx        context.Context
	System     actor.ActorSystem
	flockPID   *actor.PID
	snapshotCh chan *Snapshot
	lastState  *Snapshot

	// UI Controls
	panel *ui.UIPanel

	// species being tuned by the sliders, and the local copy of every species
	tunedID string
	species map[string]behavior.Species

	widgetSeparation  *ui.Slider
	widgetAlignment   *ui.Slider
	widgetCohesion    *ui.Slider
	widgetNeighbor    *ui.Slider
	widgetDesired     *ui.Slider
	widgetMaxSpeed    *ui.Slider
	widgetMaxForce    *ui.Slider
	widgetBirdSize    *ui.Slider
	widgetCapacity    *ui.Slider
	widgetPaused      *ui.Checkbox
	widgetShowRadius  *ui.Checkbox
	widgetShowOverlay *ui.Checkbox

	cfg *Config
	rng *rand.Rand

	screenW, screenH int
	arenaW, arenaH   int // last size sent to the flock

	// Timing instrumentation
	lastUpdateDuration time.Duration
	lastDrawDuration   time.Duration
	updateAvg          float64 // Rolling average in ms
	drawAvg            float64 // Rolling average in ms

	vertices []ebiten.Vertex
	indices  []uint16
}

// GetNewGame spawns the flock actor on system and builds the viewer around it.
// telemetry may be nil.
func GetNewGame(ctx context.Context, cfg *Config, system actor.ActorSystem, telemetry *TelemetryWriter) (*Game, error) {
	// 1. Create Channels for communication
	snapshotCh := make(chan *Snapshot, 10) // Buffer to avoid blocking

	// 2. Spawn Flock Actor
	flockPID, err := system.Spawn(ctx, "flock", NewFlockActor(cfg, telemetry, snapshotCh))
	if err != nil {
		return nil, fmt.Errorf("failed to spawn flock: %w", err)
	}

	g := &Game{
		ctx:        ctx,
		System:     system,
		flockPID:   flockPID,
		snapshotCh: snapshotCh,
		lastState:  &Snapshot{Width: cfg.WorldWidth, Height: cfg.WorldHeight}, // Avoid nil pointer
		species:    make(map[string]behavior.Species, len(cfg.Species)),
		cfg:        cfg,
		rng:        rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5deece66d)),
		screenW:    int(cfg.WorldWidth),
		screenH:    int(cfg.WorldHeight),
		arenaW:     int(cfg.WorldWidth),
		arenaH:     int(cfg.WorldHeight),
	}
	for _, s := range cfg.Species {
		g.species[s.ID] = s.Species
	}
	g.tunedID = cfg.Species[0].ID
	g.buildPanel()
	return g, nil
}

func (g *Game) buildPanel() {
	s := g.species[g.tunedID]
	panel := ui.NewUIPanel(10, 10, 280, g.cfg.WorldHeight-20)
	panel.Title = fmt.Sprintf("Species %q", g.tunedID)

	panel.AddSection("Steering Weights")
	g.widgetSeparation = panel.AddSlider("Separation", 0, 5, s.SeparationMultiplier)
	g.widgetAlignment = panel.AddSlider("Alignment", 0, 2, s.AlignmentMultiplier)
	g.widgetCohesion = panel.AddSlider("Cohesion", 0, 0.2, s.CohesionMultiplier)
	panel.EndSection()

	panel.AddSection("Radii")
	g.widgetNeighbor = panel.AddSlider("Neighbor Distance", 0, 400, s.NeighborDistance)
	g.widgetDesired = panel.AddSlider("Desired Separation", 0, 200, s.DesiredSeparation)
	panel.EndSection()

	panel.AddSection("Physics")
	g.widgetMaxSpeed = panel.AddSlider("Max Speed", 0.1, 10, s.MaxSpeed)
	g.widgetMaxForce = panel.AddSlider("Max Force", 0.001, 0.2, s.MaxForce)
	g.widgetBirdSize = panel.AddSlider("Bird Size", 2, 40, s.BirdSize)
	g.widgetMaxForce.Format = "%.3f"
	g.widgetCohesion.Format = "%.3f"
	panel.EndSection()

	for _, w := range []*ui.Slider{
		g.widgetSeparation, g.widgetAlignment, g.widgetCohesion,
		g.widgetNeighbor, g.widgetDesired,
		g.widgetMaxSpeed, g.widgetMaxForce, g.widgetBirdSize,
	} {
		w.OnChange = func(float64) { g.sendTunedSpecies() }
	}

	panel.AddSection("Population")
	g.widgetCapacity = panel.AddSlider("Capacity", 1, 10000, float64(g.cfg.Capacity))
	g.widgetCapacity.Format = "%.0f"
	g.widgetCapacity.OnChange = func(v float64) { g.tell(SetCapacityCommand(int(v))) }
	panel.AddButton("Add 100 Birds", func() { g.addRandomBirds(100) })
	panel.AddButton("Clear", func() { g.tell(ClearCommand()) })
	panel.EndSection()

	panel.AddSection("Visualization")
	g.widgetPaused = panel.AddCheckbox("Pause", false)
	g.widgetShowRadius = panel.AddCheckbox("Show Neighbor Radius", false)
	g.widgetShowOverlay = panel.AddCheckbox("Show Stats", true)
	panel.EndSection()

	g.panel = panel
}

func (g *Game) tell(msg proto.Message) {
	if err := actor.Tell(g.ctx, g.flockPID, msg); err != nil {
		g.System.Logger().Warnf("message to flock dropped: %v", err)
	}
}

// sendTunedSpecies replaces the tuned species with the current slider values.
func (g *Game) sendTunedSpecies() {
	s := g.species[g.tunedID]
	s.SeparationMultiplier = g.widgetSeparation.Value
	s.AlignmentMultiplier = g.widgetAlignment.Value
	s.CohesionMultiplier = g.widgetCohesion.Value
	s.NeighborDistance = g.widgetNeighbor.Value
	s.DesiredSeparation = g.widgetDesired.Value
	s.MaxSpeed = g.widgetMaxSpeed.Value
	s.MaxForce = g.widgetMaxForce.Value
	s.BirdSize = g.widgetBirdSize.Value
	g.species[g.tunedID] = s

	cmd, err := UpsertSpeciesCommand(g.tunedID, s)
	if err != nil {
		g.System.Logger().Errorf("encoding species %q: %v", g.tunedID, err)
		return
	}
	g.tell(cmd)
}

func (g *Game) addRandomBirds(n int) {
	w, h := g.lastState.Width, g.lastState.Height
	for i := 0; i < n; i++ {
		p := geometry.Vector2D{
			X: (g.rng.Float64() - 0.5) * w,
			Y: (g.rng.Float64() - 0.5) * h,
		}
		g.tell(InsertBirdCommand("", p))
	}
}

func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		g.lastUpdateDuration = time.Since(start)
		// Rolling average (exponential moving average)
		g.updateAvg = g.updateAvg*0.95 + float64(g.lastUpdateDuration.Microseconds())/1000.0*0.05
	}()

	// 1. Update UI Panel
	g.panel.Update()

	// 2. Retrieve Latest State (Non-blocking)
	select {
	case snap := <-g.snapshotCh:
		g.lastState = snap
	default:
		// Use previous state if new one isn't ready
	}

	// 3. The arena follows the window
	if g.screenW != g.arenaW || g.screenH != g.arenaH {
		g.arenaW, g.arenaH = g.screenW, g.screenH
		g.tell(ResizeCommand(float64(g.arenaW), float64(g.arenaH)))
	}

	// 4. A click on the world drops one bird there
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		p := ui.CurrentPointer()
		if !g.panel.Contains(p.X, p.Y) {
			g.tell(InsertBirdCommand("", screenToWorld(p.X, p.Y, g.screenW, g.screenH)))
		}
	}

	if !g.widgetPaused.Value {
		g.tell(TickMessage(0))
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	defer func() {
		g.lastDrawDuration = time.Since(start)
		g.drawAvg = g.drawAvg*0.95 + float64(g.lastDrawDuration.Microseconds())/1000.0*0.05
	}()
	if whiteImage == nil {
		whiteImage = ebiten.NewImage(3, 3)
		whiteImage.Fill(color.White)
	}
	screen.Fill(backgroundColor)

	// 1. Draw all birds from the last known snapshot
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	if g.widgetShowRadius.Value {
		for _, b := range g.lastState.Birds {
			if b.SpeciesID != g.tunedID {
				continue
			}
			x, y := worldToScreen(b.Position, w, h)
			vector.StrokeCircle(screen, x, y, float32(g.widgetNeighbor.Value), 1,
				color.RGBA{R: 120, G: 120, B: 160, A: 40}, true)
		}
	}
	g.drawBirds(screen, w, h)

	// 2. Draw UI Panel
	g.panel.Draw(screen)

	// 3. Species bar and timings
	if g.widgetShowOverlay.Value {
		g.drawStatsBar(screen)

		st := g.lastState.Stats
		msg := fmt.Sprintf("FPS: %.2f\nTPS: %.2f\n\nTick:   %d\nBirds:  %d\nSpeed:  %.2f±%.2f\nFlock:  %.2fms\nUpdate: %.2fms\nDraw:   %.2fms",
			ebiten.ActualFPS(),
			ebiten.ActualTPS(),
			st.Tick,
			st.Population,
			st.MeanSpeed, st.StdDevSpeed,
			float64(g.lastState.TickDuration.Microseconds())/1000.0,
			g.updateAvg,
			g.drawAvg)
		ebitenutil.DebugPrintAt(screen, msg, w-170, 60)
	}
}

// drawBirds batches every bird of the frame into as few DrawTriangles calls
// as the uint16 index limit allows.
func (g *Game) drawBirds(screen *ebiten.Image, w, h int) {
	frame := g.lastState.Frame
	g.vertices = g.vertices[:0]
	g.indices = g.indices[:0]
	flush := func() {
		if len(g.vertices) > 0 {
			screen.DrawTriangles(g.vertices, g.indices, whiteImage, &ebiten.DrawTrianglesOptions{})
		}
		g.vertices = g.vertices[:0]
		g.indices = g.indices[:0]
	}
	for i := 0; i < frame.Birds(); i++ {
		if len(g.vertices)+3 > maxVerticesPerBatch {
			flush()
		}
		g.vertices, g.indices = appendBirdTriangle(g.vertices, g.indices, frame.Vertices, frame.Colors, i, frame.VerticesPerBird, w, h)
	}
	flush()
}

// appendBirdTriangle reads bird i's tip, left and right corners from the
// frame buffers. Both layouts start with those three vertices.
func appendBirdTriangle(vs []ebiten.Vertex, is []uint16, vertices, colors []float32, i, perBird, w, h int) ([]ebiten.Vertex, []uint16) {
	base := uint16(len(vs))
	for k := 0; k < 3; k++ {
		o := (i*perBird + k) * 3
		x, y := worldToScreen(geometry.Vector2D{X: float64(vertices[o]), Y: float64(vertices[o+1])}, w, h)
		vs = append(vs, ebiten.Vertex{
			DstX: x, DstY: y,
			SrcX: 1, SrcY: 1,
			ColorR: colors[o], ColorG: colors[o+1], ColorB: colors[o+2], ColorA: 1,
		})
	}
	return vs, append(is, base, base+1, base+2)
}

// worldToScreen maps the origin centered, y up world onto screen pixels.
func worldToScreen(p geometry.Vector2D, w, h int) (float32, float32) {
	return float32(p.X + float64(w)/2), float32(float64(h)/2 - p.Y)
}

func screenToWorld(x, y float64, w, h int) geometry.Vector2D {
	return geometry.Vector2D{X: x - float64(w)/2, Y: float64(h)/2 - y}
}

// drawStatsBar stacks one colored segment per species, sized by population.
func (g *Game) drawStatsBar(screen *ebiten.Image) {
	counts := g.lastState.Stats.PerSpecies
	total := g.lastState.Stats.Population
	if total == 0 {
		return
	}

	// --- Configuration ---
	barWidth := float32(200.0)
	barHeight := float32(20.0)
	marginTop := float32(10.0)
	marginRight := float32(10.0)

	screenW := float32(screen.Bounds().Dx())
	x := screenW - barWidth - marginRight
	y := marginTop

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		segW := barWidth * float32(counts[id]) / float32(total)
		vector.FillRect(screen, x, y, segW, barHeight, speciesColor(g.species[id]), true)
		x += segW
	}

	msg := ""
	for _, id := range ids {
		msg += fmt.Sprintf("%s:%d ", id, counts[id])
	}
	ebitenutil.DebugPrintAt(screen, msg, int(screenW-barWidth-marginRight), int(y+barHeight+5))
}

func speciesColor(s behavior.Species) color.RGBA {
	return color.RGBA{
		R: uint8(s.Color.R * 255),
		G: uint8(s.Color.G * 255),
		B: uint8(s.Color.B * 255),
		A: 255,
	}
}

// Layout follows the window, the arena is resized on the next Update.
func (g *Game) Layout(w, h int) (int, int) {
	g.screenW, g.screenH = w, h
	return w, h
}
