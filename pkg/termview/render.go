// Package termview draws a flock in a terminal with tcell.
package termview

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// one glyph per 45° sector, counter-clockwise from east
var arrows = [8]rune{'→', '↗', '↑', '↖', '←', '↙', '↓', '↘'}

const stillGlyph = '•'

var (
	RgbBackground = tcell.NewRGBColor(245, 245, 240)
	RgbStatusBar  = tcell.NewRGBColor(40, 40, 45)
	RgbStatusText = tcell.NewRGBColor(220, 220, 220)
)

// Glyph picks the arrow closest to the direction of v.
func Glyph(v geometry.Vector2D) rune {
	if v.IsZero() {
		return stillGlyph
	}
	sector := int(math.Round(math.Atan2(v.Y, v.X) / (math.Pi / 4)))
	return arrows[(sector%8+8)%8]
}

// Cell maps a world position (origin centered, y up) onto the grid of
// cols x rows cells. ok is false when p falls outside the arena.
func Cell(p geometry.Vector2D, width, height float64, cols, rows int) (x, y int, ok bool) {
	if width <= 0 || height <= 0 || cols <= 0 || rows <= 0 {
		return 0, 0, false
	}
	fx := (p.X + width/2) / width
	fy := (height/2 - p.Y) / height
	if fx < 0 || fx >= 1 || fy < 0 || fy >= 1 {
		return 0, 0, false
	}
	return int(fx * float64(cols)), int(fy * float64(rows)), true
}

// SpeciesStyle turns a species color into a foreground on the background.
func SpeciesStyle(s behavior.Species) tcell.Style {
	fg := tcell.NewRGBColor(int32(s.Color.R*255), int32(s.Color.G*255), int32(s.Color.B*255))
	return tcell.StyleDefault.Background(RgbBackground).Foreground(fg)
}

// Renderer draws birds into the top of the screen and one status line below.
type Renderer struct {
	screen tcell.Screen
}

func NewRenderer(screen tcell.Screen) *Renderer {
	return &Renderer{screen: screen}
}

// Draw paints one frame. The last screen row is the status line.
func (r *Renderer) Draw(f *flock.Flock, width, height float64, status string) {
	cols, rows := r.screen.Size()
	bg := tcell.StyleDefault.Background(RgbBackground)
	r.screen.Fill(' ', bg)

	field := rows - 1
	styles := make(map[string]tcell.Style)
	for _, b := range f.Birds() {
		x, y, ok := Cell(b.Position, width, height, cols, field)
		if !ok {
			continue
		}
		st, found := styles[b.SpeciesID]
		if !found {
			s, _ := f.SpeciesConfig(b.SpeciesID)
			st = SpeciesStyle(s)
			styles[b.SpeciesID] = st
		}
		r.screen.SetContent(x, y, Glyph(b.Velocity), nil, st)
	}

	statusStyle := tcell.StyleDefault.Background(RgbStatusBar).Foreground(RgbStatusText)
	for x := 0; x < cols; x++ {
		r.screen.SetContent(x, rows-1, ' ', nil, statusStyle)
	}
	for i, ch := range []rune(status) {
		if i >= cols {
			break
		}
		r.screen.SetContent(i, rows-1, ch, nil, statusStyle)
	}
	r.screen.Show()
}

// StatusLine summarizes the flock for the bottom row.
func StatusLine(st flock.Stats, capacity int, paused bool) string {
	state := "running"
	if paused {
		state = "paused"
	}
	return fmt.Sprintf(" tick %d | birds %d/%d | speed %.2f±%.2f | %s | space pause, c clear, a add, +/- capacity, q quit",
		st.Tick, st.Population, capacity, st.MeanSpeed, st.StdDevSpeed, state)
}
