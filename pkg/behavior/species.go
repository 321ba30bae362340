package behavior

import (
	"errors"
	"fmt"
	"math"
)

// Color is a display color with components in [0, 1].
type Color struct {
	R float64 `json:"r" yaml:"r"`
	G float64 `json:"g" yaml:"g"`
	B float64 `json:"b" yaml:"b"`
}

// Species is the parameter set shared by every bird of one kind.
// It is a value object: change a species by replacing it as a whole.
type Species struct {
	NeighborDistance  float64 `json:"neighborDistance" yaml:"neighbor_distance"`   // alignment and cohesion radius
	DesiredSeparation float64 `json:"desiredSeparation" yaml:"desired_separation"` // separation radius

	SeparationMultiplier float64 `json:"separationMultiplier" yaml:"separation_multiplier"`
	AlignmentMultiplier  float64 `json:"alignmentMultiplier" yaml:"alignment_multiplier"`
	CohesionMultiplier   float64 `json:"cohesionMultiplier" yaml:"cohesion_multiplier"`

	MaxSpeed float64 `json:"maxSpeed" yaml:"max_speed"`
	MaxForce float64 `json:"maxForce" yaml:"max_force"`

	BirdSize float64 `json:"birdSize" yaml:"bird_size"` // side of the rendered triangle
	Color    Color   `json:"color" yaml:"color"`

	// Weight is the probability of picking this species for a weighted random
	// insertion. A negative weight marks the fallback species.
	Weight float64 `json:"weight" yaml:"weight"`
}

// ErrInvalidSpecies is wrapped by every Species validation failure.
var ErrInvalidSpecies = errors.New("invalid species config")

// Validate rejects parameter sets the steering math cannot work with.
func (s Species) Validate() error {
	finite := []struct {
		name  string
		value float64
	}{
		{"neighborDistance", s.NeighborDistance},
		{"desiredSeparation", s.DesiredSeparation},
		{"separationMultiplier", s.SeparationMultiplier},
		{"alignmentMultiplier", s.AlignmentMultiplier},
		{"cohesionMultiplier", s.CohesionMultiplier},
		{"maxSpeed", s.MaxSpeed},
		{"maxForce", s.MaxForce},
		{"birdSize", s.BirdSize},
		{"weight", s.Weight},
		{"color.r", s.Color.R},
		{"color.g", s.Color.G},
		{"color.b", s.Color.B},
	}
	for _, f := range finite {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidSpecies, f.name, f.value)
		}
	}
	nonNegative := []struct {
		name  string
		value float64
	}{
		{"neighborDistance", s.NeighborDistance},
		{"desiredSeparation", s.DesiredSeparation},
		{"maxSpeed", s.MaxSpeed},
		{"maxForce", s.MaxForce},
		{"birdSize", s.BirdSize},
	}
	for _, f := range nonNegative {
		if f.value < 0 {
			return fmt.Errorf("%w: %s must be >= 0, got %v", ErrInvalidSpecies, f.name, f.value)
		}
	}
	for _, c := range []float64{s.Color.R, s.Color.G, s.Color.B} {
		if c < 0 || c > 1 {
			return fmt.Errorf("%w: color components must be in [0,1], got %+v", ErrInvalidSpecies, s.Color)
		}
	}
	return nil
}

// Margin is how far past an arena edge a bird may drift before it wraps.
func (s Species) Margin() float64 {
	return s.BirdSize * 1.5
}

// DefaultSpecies is the common background bird.
func DefaultSpecies() Species {
	return Species{
		NeighborDistance:     200,
		DesiredSeparation:    50,
		SeparationMultiplier: 1.7,
		AlignmentMultiplier:  0.3,
		CohesionMultiplier:   0.01,
		MaxSpeed:             2,
		MaxForce:             0.01,
		BirdSize:             10,
		Color:                Color{R: 0.12, G: 0.25, B: 0.55},
		Weight:               -1,
	}
}
