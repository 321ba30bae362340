package ui

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Slider edits a float in [Min, Max] by clicking or dragging along its bar.
type Slider struct {
	Label    string
	Value    float64
	Min, Max float64
	X, Y     float64
	W, H     float64
	Format   string // printf verb for the value, "%.2f" by default

	OnChange func(v float64)

	dragging bool
}

// NewSlider creates a slider of default height.
func NewSlider(x, y, w float64, label string, min, max, value float64) *Slider {
	s := &Slider{
		Label:  label,
		Min:    min,
		Max:    max,
		X:      x,
		Y:      y,
		W:      w,
		H:      12,
		Format: "%.2f",
	}
	s.Value = s.clamp(value)
	return s
}

func (s *Slider) clamp(v float64) float64 {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// SetValue changes the value programmatically, clamped, firing OnChange if it moved.
func (s *Slider) SetValue(v float64) {
	v = s.clamp(v)
	if v == s.Value {
		return
	}
	s.Value = v
	if s.OnChange != nil {
		s.OnChange(v)
	}
}

// HandlePointer starts a drag on a press inside the bar and follows the
// pointer horizontally until release, even outside the bar.
func (s *Slider) HandlePointer(p Pointer) {
	if !p.Pressed {
		s.dragging = false
		return
	}
	if !s.dragging && !p.In(s.X, s.Y, s.W, s.H) {
		return
	}
	s.dragging = true
	if s.W <= 0 {
		return
	}
	ratio := (p.X - s.X) / s.W
	s.SetValue(s.Min + ratio*(s.Max-s.Min))
}

func (s *Slider) Height() float64 { return s.H + 25 } // bar + label line

func (s *Slider) SetY(y float64) { s.Y = y }

func (s *Slider) Draw(screen *ebiten.Image) {
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W), float32(s.H), color.RGBA{R: 80, G: 80, B: 80, A: 255}, true)

	ratio := 0.0
	if s.Max > s.Min {
		ratio = (s.Value - s.Min) / (s.Max - s.Min)
	}
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W*ratio), float32(s.H), color.RGBA{R: 200, G: 200, B: 200, A: 255}, true)

	ebitenutil.DebugPrintAt(screen, fmt.Sprintf(s.Format, s.Value), int(s.X+s.W-60), int(s.Y-16))
}
