package flock

import (
	"fmt"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/behavior"
)

// Layout selects how many vertices each bird contributes to a Frame.
type Layout int

const (
	// LineLoop emits tip, left, right, tip: four vertices per bird.
	LineLoop Layout = iota
	// Triangles emits tip, left, right: three vertices per bird.
	Triangles
)

func (l Layout) String() string {
	switch l {
	case LineLoop:
		return "line-loop"
	case Triangles:
		return "triangles"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout maps a configuration string to a Layout. Empty means LineLoop.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "line-loop", "line_loop":
		return LineLoop, nil
	case "triangles":
		return Triangles, nil
	default:
		return 0, fmt.Errorf("unknown vertex layout %q", s)
	}
}

// VerticesPerBird is 4 for LineLoop and 3 for Triangles.
func (l Layout) VerticesPerBird() int {
	if l == Triangles {
		return 3
	}
	return 4
}

// RenderFunc receives one frame's buffers. Both slices have the same length
// and the same per-bird order: [x0,y0,z0,x1,...] and [r0,g0,b0,r1,...].
// They belong to the callee once passed.
type RenderFunc func(vertices, colors []float32)

// Frame is the geometry exported for one tick.
type Frame struct {
	Vertices        []float32
	Colors          []float32
	VerticesPerBird int
}

// Birds is the number of birds the frame holds.
func (f Frame) Birds() int {
	if f.VerticesPerBird == 0 {
		return 0
	}
	return len(f.Vertices) / (3 * f.VerticesPerBird)
}

// buildFrame flattens birds into vertex and color buffers with z = 0.
func buildFrame(birds []behavior.Bird, species map[string]behavior.Species, layout Layout) Frame {
	per := layout.VerticesPerBird()
	frame := Frame{
		Vertices:        make([]float32, 0, len(birds)*per*3),
		Colors:          make([]float32, 0, len(birds)*per*3),
		VerticesPerBird: per,
	}
	for _, b := range birds {
		s := species[b.SpeciesID]
		corners := b.Vertices(s)
		for _, c := range corners[:per] {
			frame.Vertices = append(frame.Vertices, float32(c.X), float32(c.Y), 0)
			frame.Colors = append(frame.Colors, float32(s.Color.R), float32(s.Color.G), float32(s.Color.B))
		}
	}
	return frame
}
