package behavior

import "github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"

// Each rule returns a steering force together with the number of degenerate
// normalizations it met. A rule with no neighbors contributes nothing.

// Separation steers away from birds closer than DesiredSeparation.
func Separation(b Bird, n Neighborhood, s Species) (geometry.Vector2D, int) {
	others := n.around(b.Position, s.DesiredSeparation)
	if len(others) == 0 {
		return geometry.Zero, 0
	}

	degenerate := 0
	sum := geometry.Zero
	for _, o := range others {
		away, ok := b.Position.Sub(o.Position).NormalizeChecked()
		if !ok {
			degenerate++
		}
		sum = sum.Add(away)
	}
	mean := sum.Mul(1 / float64(len(others)))
	if mean.IsZero() {
		return geometry.Zero, degenerate
	}
	force, ok := steer(mean, b.Velocity, s)
	if !ok {
		degenerate++
	}
	return force, degenerate
}

// Alignment steers toward the average heading of birds within NeighborDistance.
func Alignment(b Bird, n Neighborhood, s Species) (geometry.Vector2D, int) {
	others := n.around(b.Position, s.NeighborDistance)
	if len(others) == 0 {
		return geometry.Zero, 0
	}

	sum := geometry.Zero
	for _, o := range others {
		sum = sum.Add(o.Velocity)
	}
	force, ok := steer(sum.Mul(1/float64(len(others))), b.Velocity, s)
	if !ok {
		return geometry.Zero, 1
	}
	return force, 0
}

// Cohesion seeks the center of mass of birds within NeighborDistance.
func Cohesion(b Bird, n Neighborhood, s Species) (geometry.Vector2D, int) {
	others := n.around(b.Position, s.NeighborDistance)
	if len(others) == 0 {
		return geometry.Zero, 0
	}

	sum := geometry.Zero
	for _, o := range others {
		sum = sum.Add(o.Position)
	}
	force, ok := Seek(b, sum.Mul(1/float64(len(others))), s)
	if !ok {
		return geometry.Zero, 1
	}
	return force, 0
}

// Seek returns the force that turns b toward target at full speed.
// ok is false when b already sits on target.
func Seek(b Bird, target geometry.Vector2D, s Species) (force geometry.Vector2D, ok bool) {
	return steer(target.Sub(b.Position), b.Velocity, s)
}

// steer implements Reynolds' steering = desired - velocity, with desired
// pointing along dir at MaxSpeed and the result capped at MaxForce.
// A direction without length yields no force.
func steer(dir, velocity geometry.Vector2D, s Species) (geometry.Vector2D, bool) {
	unit, ok := dir.NormalizeChecked()
	if !ok {
		return geometry.Zero, false
	}
	return unit.Mul(s.MaxSpeed).Sub(velocity).Limit(s.MaxForce), true
}
