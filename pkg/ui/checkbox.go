package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Checkbox is a simple UI widget for boolean values
type Checkbox struct {
	Label string
	Value bool
	X, Y  float64
	Size  float64

	OnToggle func(v bool)

	clicked bool // the press that toggled is still held
}

// NewCheckbox creates a new checkbox instance
func NewCheckbox(x, y float64, label string, value bool) *Checkbox {
	return &Checkbox{
		Label: label,
		Value: value,
		X:     x,
		Y:     y,
		Size:  16,
	}
}

// HandlePointer toggles once per press inside the box.
func (c *Checkbox) HandlePointer(p Pointer) {
	if p.Pressed && p.In(c.X, c.Y, c.Size, c.Size) {
		if !c.clicked {
			c.Value = !c.Value
			c.clicked = true
			if c.OnToggle != nil {
				c.OnToggle(c.Value)
			}
		}
	} else {
		c.clicked = false
	}
}

func (c *Checkbox) Height() float64 { return c.Size + 20 }

func (c *Checkbox) SetY(y float64) { c.Y = y }

// Draw renders the checkbox
func (c *Checkbox) Draw(screen *ebiten.Image) {
	vector.StrokeRect(screen,
		float32(c.X), float32(c.Y),
		float32(c.Size), float32(c.Size),
		2,
		color.RGBA{R: 200, G: 200, B: 200, A: 255},
		true)

	if c.Value {
		vector.FillRect(screen,
			float32(c.X+2), float32(c.Y+2),
			float32(c.Size-4), float32(c.Size-4),
			color.RGBA{R: 100, G: 200, B: 100, A: 255},
			true)
	}
}
