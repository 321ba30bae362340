package flock

import (
	"maps"

	"gonum.org/v1/gonum/stat"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/behavior"
)

// Stats summarizes the flock after the last tick.
type Stats struct {
	Tick        uint64
	Population  int
	PerSpecies  map[string]int
	MeanSpeed   float64
	StdDevSpeed float64
	// Degenerate counts zero length normalizations replaced by zero vectors during the last tick.
	Degenerate int
	// Evictions is cumulative since the flock was created.
	Evictions int
}

func computeStats(tick uint64, birds []behavior.Bird, degenerate, evictions int) Stats {
	s := Stats{
		Tick:       tick,
		Population: len(birds),
		PerSpecies: make(map[string]int),
		Degenerate: degenerate,
		Evictions:  evictions,
	}
	speeds := make([]float64, len(birds))
	for i, b := range birds {
		speeds[i] = b.Velocity.Len()
		s.PerSpecies[b.SpeciesID]++
	}
	switch len(speeds) {
	case 0:
	case 1:
		s.MeanSpeed = speeds[0]
	default:
		s.MeanSpeed, s.StdDevSpeed = stat.MeanStdDev(speeds, nil)
	}
	return s
}

func (s Stats) clone() Stats {
	s.PerSpecies = maps.Clone(s.PerSpecies)
	return s
}
