package behavior

import (
	"fmt"
	"math"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/spatial"
)

// Bird represents a single entity in the flock.
// Boids is an artificial life program, developed by Craig Reynolds in 1986,
// which simulates the flocking behaviour of birds, and related group motion.
// The name "boid" corresponds to a shortened version of "bird-oid object".
// https://en.wikipedia.org/wiki/Boids
type Bird struct {
	Position     geometry.Vector2D
	Velocity     geometry.Vector2D
	Acceleration geometry.Vector2D // force accumulator, zero after every step
	SpeciesID    string
}

func (b Bird) String() string {
	return fmt.Sprintf("%s@%s v=%s", b.SpeciesID, b.Position, b.Velocity)
}

// Arena is the simulated area, centered on the origin.
type Arena struct {
	Width, Height float64
}

// HalfExtents returns half the width and half the height.
func (a Arena) HalfExtents() (float64, float64) {
	return a.Width / 2, a.Height / 2
}

// Integrator selects how acceleration is folded into velocity.
type Integrator int

const (
	// SemiImplicit applies v += 0.5*a*dt² before moving.
	SemiImplicit Integrator = iota
	// FixedStep applies v += a, ignoring dt for the velocity update.
	FixedStep
)

func (i Integrator) String() string {
	switch i {
	case SemiImplicit:
		return "semi-implicit"
	case FixedStep:
		return "fixed-step"
	default:
		return fmt.Sprintf("Integrator(%d)", int(i))
	}
}

// ParseIntegrator maps a configuration string to an Integrator. Empty means SemiImplicit.
func ParseIntegrator(s string) (Integrator, error) {
	switch s {
	case "", "semi-implicit", "semi_implicit":
		return SemiImplicit, nil
	case "fixed-step", "fixed_step":
		return FixedStep, nil
	default:
		return 0, fmt.Errorf("unknown integrator %q", s)
	}
}

// Neighborhood is the frozen pre-tick world every bird steers against.
// Index must have been built from the positions of Birds, in order.
type Neighborhood struct {
	Birds []Bird
	Index spatial.Index
}

// NewNeighborhood snapshots positions of birds into an index of the given kind.
func NewNeighborhood(birds []Bird, kind spatial.Kind, cellSize float64) Neighborhood {
	points := make([]geometry.Vector2D, len(birds))
	for i, b := range birds {
		points[i] = b.Position
	}
	return Neighborhood{Birds: birds, Index: spatial.Build(kind, points, cellSize)}
}

// around returns the snapshot birds strictly closer than r to p, excluding
// anything at distance zero (the querying bird itself).
func (n Neighborhood) around(p geometry.Vector2D, r float64) []Bird {
	if n.Index == nil || r <= 0 {
		return nil
	}
	var out []Bird
	for _, i := range n.Index.WithinRadius(p, r) {
		d := p.DistanceTo(n.Birds[i].Position)
		if d > 0 && d < r {
			out = append(out, n.Birds[i])
		}
	}
	return out
}

// Step advances one bird by dt and returns its new state along with the number
// of degenerate (zero length) normalizations that were replaced by zero vectors.
// The receiver is not modified.
func (b Bird) Step(n Neighborhood, s Species, arena Arena, dt float64, integ Integrator) (Bird, int) {
	next := b
	next.Position = Wrap(b.Position, s.Margin(), arena)

	sep, d1 := Separation(next, n, s)
	ali, d2 := Alignment(next, n, s)
	coh, d3 := Cohesion(next, n, s)

	next.Acceleration = next.Acceleration.
		Add(sep.Mul(s.SeparationMultiplier)).
		Add(ali.Mul(s.AlignmentMultiplier)).
		Add(coh.Mul(s.CohesionMultiplier)).
		Limit(s.MaxForce)

	switch integ {
	case FixedStep:
		next.Velocity = next.Velocity.Add(next.Acceleration)
	default:
		next.Velocity = next.Velocity.Add(next.Acceleration.Mul(0.5 * dt * dt))
	}
	next.Velocity = next.Velocity.Limit(s.MaxSpeed)
	next.Position = next.Position.Add(next.Velocity.Mul(dt))
	next.Acceleration = geometry.Zero

	return next, d1 + d2 + d3
}

// Wrap moves a point that drifted more than margin past an arena edge to just
// beyond the opposite edge.
func Wrap(p geometry.Vector2D, margin float64, arena Arena) geometry.Vector2D {
	hw, hh := arena.HalfExtents()
	switch {
	case p.X > hw+margin:
		p.X = -hw - margin
	case p.X < -hw-margin:
		p.X = hw + margin
	}
	switch {
	case p.Y > hh+margin:
		p.Y = -hh - margin
	case p.Y < -hh-margin:
		p.Y = hh + margin
	}
	return p
}

// Vertices returns the corners of an equilateral triangle of side BirdSize
// centered on the bird and pointing along its velocity: tip, left, right,
// then the tip again so the loop closes.
func (b Bird) Vertices(s Species) [4]geometry.Vector2D {
	side := s.BirdSize
	circum := side / math.Sqrt(3)
	in := circum / 2
	heading := b.Velocity.Heading()

	corners := [4]geometry.Vector2D{
		{X: 0, Y: circum},
		{X: -side / 2, Y: -in},
		{X: side / 2, Y: -in},
		{X: 0, Y: circum},
	}
	for i, c := range corners {
		corners[i] = c.Rotate(heading).Add(b.Position)
	}
	return corners
}
