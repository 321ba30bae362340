package ui

import "github.com/hajimehoshi/ebiten/v2"

// Pointer is the mouse state widgets react to. Widgets never poll ebiten
// themselves, the panel reads the input once per frame and hands it down.
type Pointer struct {
	X, Y    float64
	Pressed bool
}

// CurrentPointer reads the cursor and the left mouse button.
func CurrentPointer() Pointer {
	mx, my := ebiten.CursorPosition()
	return Pointer{
		X:       float64(mx),
		Y:       float64(my),
		Pressed: ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft),
	}
}

// In reports whether the pointer lies inside the rectangle.
func (p Pointer) In(x, y, w, h float64) bool {
	return p.X >= x && p.X <= x+w && p.Y >= y && p.Y <= y+h
}
