// Package flock owns a bounded population of birds, the species table they
// reference and the per-tick update that moves them all against one snapshot.
package flock

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/spatial"
)

// Options configures a Flock. Capacity and Eviction are required.
type Options struct {
	Capacity     int
	Eviction     EvictionPolicy
	Seed         uint64
	Index        spatial.Kind
	GridCellSize float64 // only used by spatial.KindGrid
	Integrator   behavior.Integrator
	Layout       Layout
	Logger       log.Logger // log.DiscardLogger when nil
}

// Flock is not safe for concurrent use: it has exactly one owner, which
// calls Tick once per frame.
type Flock struct {
	capacity   int
	eviction   EvictionPolicy
	indexKind  spatial.Kind
	cellSize   float64
	integrator behavior.Integrator
	layout     Layout
	logger     log.Logger
	rng        *rand.Rand

	species map[string]behavior.Species
	birds   []behavior.Bird // insertion order, oldest first

	// index is built from birds' positions and replaced as a whole.
	index spatial.Index
	dirty bool

	ticks     uint64
	evictions int
	stats     Stats
}

// New returns an empty flock.
func New(opts Options) (*Flock, error) {
	if opts.Capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, opts.Capacity)
	}
	if opts.Eviction != EvictOldest && opts.Eviction != EvictRandom {
		return nil, ErrNoEvictionPolicy
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.DiscardLogger
	}
	f := &Flock{
		capacity:   opts.Capacity,
		eviction:   opts.Eviction,
		indexKind:  opts.Index,
		cellSize:   opts.GridCellSize,
		integrator: opts.Integrator,
		layout:     opts.Layout,
		logger:     logger,
		rng:        rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		species:    make(map[string]behavior.Species),
		dirty:      true,
	}
	f.stats = computeStats(0, nil, 0, 0)
	return f, nil
}

// ---------------------------------------------------------------------
// Species table
// ---------------------------------------------------------------------

// AddSpeciesConfig inserts or replaces the species stored under id.
func (f *Flock) AddSpeciesConfig(id string, s behavior.Species) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("species %q: %w", id, err)
	}
	_, replaced := f.species[id]
	f.species[id] = s
	if replaced {
		f.logger.Infof("species %q replaced", id)
	} else {
		f.logger.Infof("species %q added", id)
	}
	return nil
}

// UpdateSpeciesConfig replaces an existing species. It fails with a
// *NotFoundError when id was never added.
func (f *Flock) UpdateSpeciesConfig(id string, s behavior.Species) error {
	if _, ok := f.species[id]; !ok {
		return &NotFoundError{ID: id}
	}
	return f.AddSpeciesConfig(id, s)
}

// RemoveSpeciesConfig deletes a species together with every bird that
// references it and returns how many birds went with it. Removing an
// unknown id is a no-op.
func (f *Flock) RemoveSpeciesConfig(id string) int {
	if _, ok := f.species[id]; !ok {
		return 0
	}
	delete(f.species, id)

	before := len(f.birds)
	f.birds = slices.DeleteFunc(f.birds, func(b behavior.Bird) bool {
		return b.SpeciesID == id
	})
	removed := before - len(f.birds)
	if removed > 0 {
		f.dirty = true
	}
	f.logger.Infof("species %q removed with %d birds", id, removed)
	return removed
}

// SpeciesConfig returns the species stored under id.
func (f *Flock) SpeciesConfig(id string) (behavior.Species, bool) {
	s, ok := f.species[id]
	return s, ok
}

// SpeciesIDs returns the registered ids in ascending order.
func (f *Flock) SpeciesIDs() []string {
	ids := make([]string, 0, len(f.species))
	for id := range f.species {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ---------------------------------------------------------------------
// Population
// ---------------------------------------------------------------------

type insertion struct {
	bird        behavior.Bird
	hasVelocity bool
}

// BirdOption sets an initial property of an inserted bird.
type BirdOption func(*insertion)

// WithPosition places the bird. The default is the origin.
func WithPosition(p geometry.Vector2D) BirdOption {
	return func(in *insertion) { in.bird.Position = p }
}

// WithVelocity sets the initial velocity. The default is random on each
// axis within ±MaxSpeed of the bird's species.
func WithVelocity(v geometry.Vector2D) BirdOption {
	return func(in *insertion) {
		in.bird.Velocity = v
		in.hasVelocity = true
	}
}

// WithAcceleration preloads the force accumulator for the first tick.
func WithAcceleration(a geometry.Vector2D) BirdOption {
	return func(in *insertion) { in.bird.Acceleration = a }
}

// InsertBird appends a bird of the given species. An unknown species is
// rejected with a *UnknownSpeciesError and the flock is left untouched.
// When the population then exceeds the capacity exactly one bird is evicted.
func (f *Flock) InsertBird(speciesID string, opts ...BirdOption) error {
	s, ok := f.species[speciesID]
	if !ok {
		return &UnknownSpeciesError{ID: speciesID}
	}

	in := insertion{bird: behavior.Bird{SpeciesID: speciesID}}
	for _, opt := range opts {
		opt(&in)
	}
	if !in.hasVelocity {
		in.bird.Velocity = geometry.Vector2D{
			X: f.between(-s.MaxSpeed, s.MaxSpeed),
			Y: f.between(-s.MaxSpeed, s.MaxSpeed),
		}
	}

	f.birds = append(f.birds, in.bird)
	f.dirty = true
	f.logger.Debugf("inserted %s", in.bird)

	if len(f.birds) > f.capacity {
		f.evict()
	}
	return nil
}

// InsertBirdAtRandomPosition inserts a bird anywhere inside a width x height
// arena centered on the origin.
func (f *Flock) InsertBirdAtRandomPosition(speciesID string, width, height float64) error {
	if _, ok := f.species[speciesID]; !ok {
		return &UnknownSpeciesError{ID: speciesID}
	}
	p := geometry.Vector2D{
		X: f.between(-width/2, width/2),
		Y: f.between(-height/2, height/2),
	}
	return f.InsertBird(speciesID, WithPosition(p))
}

// InsertWeightedBird picks a species by weight, inserts one bird of it at a
// random position and returns the chosen id.
func (f *Flock) InsertWeightedBird(width, height float64) (string, error) {
	id, err := f.PickSpecies()
	if err != nil {
		return "", err
	}
	return id, f.InsertBirdAtRandomPosition(id, width, height)
}

// PickSpecies draws a species id by weight. It walks species in id order
// accumulating weights until the sum exceeds a uniform draw. If nothing is
// hit the first species with a negative weight is the fallback; without one
// the draw is rescaled to the total weight. When every weight is zero and
// there is no fallback the pick is uniform.
func (f *Flock) PickSpecies() (string, error) {
	ids := f.SpeciesIDs()
	if len(ids) == 0 {
		return "", ErrNoSpecies
	}

	fallback := ""
	total := 0.0
	for _, id := range ids {
		w := f.species[id].Weight
		if w < 0 {
			if fallback == "" {
				fallback = id
			}
			continue
		}
		total += w
	}

	draw := f.rng.Float64()
	if fallback == "" {
		if total <= 0 {
			return ids[f.rng.IntN(len(ids))], nil
		}
		draw *= total
	}

	threshold := 0.0
	for _, id := range ids {
		w := f.species[id].Weight
		if w < 0 {
			continue
		}
		threshold += w
		if threshold > draw {
			return id, nil
		}
	}
	if fallback == "" {
		// rounding left draw a hair above the running sum
		return ids[len(ids)-1], nil
	}
	return fallback, nil
}

func (f *Flock) between(lo, hi float64) float64 {
	return lo + f.rng.Float64()*(hi-lo)
}

// Clear removes every bird. Species are kept.
func (f *Flock) Clear() {
	f.birds = f.birds[:0]
	f.dirty = true
	f.logger.Info("flock cleared")
}

// Len returns the number of birds.
func (f *Flock) Len() int { return len(f.birds) }

// Capacity returns the population bound.
func (f *Flock) Capacity() int { return f.capacity }

// SetCapacity changes the population bound, first evicting birds with the
// active policy until the population fits.
func (f *Flock) SetCapacity(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidCapacity, n)
	}
	for len(f.birds) > n {
		f.evict()
	}
	f.capacity = n
	f.logger.Infof("capacity set to %d", n)
	return nil
}

// Eviction returns the active eviction policy.
func (f *Flock) Eviction() EvictionPolicy { return f.eviction }

// SetEviction switches the eviction policy.
func (f *Flock) SetEviction(p EvictionPolicy) error {
	if p != EvictOldest && p != EvictRandom {
		return ErrNoEvictionPolicy
	}
	f.eviction = p
	return nil
}

// Birds returns a copy of the population, oldest first.
func (f *Flock) Birds() []behavior.Bird {
	return slices.Clone(f.birds)
}

// Neighbors returns the birds within r of q, self included, using the
// current spatial index.
func (f *Flock) Neighbors(q geometry.Vector2D, r float64) []behavior.Bird {
	idx := f.currentIndex()
	var out []behavior.Bird
	for _, i := range idx.WithinRadius(q, r) {
		out = append(out, f.birds[i])
	}
	return out
}

// currentIndex rebuilds the index if the population changed since the last build.
func (f *Flock) currentIndex() spatial.Index {
	if f.dirty || f.index == nil {
		f.index = f.buildIndex(f.birds)
		f.dirty = false
	}
	return f.index
}

func (f *Flock) buildIndex(birds []behavior.Bird) spatial.Index {
	return behavior.NewNeighborhood(birds, f.indexKind, f.cellSize).Index
}

// ---------------------------------------------------------------------
// Simulation
// ---------------------------------------------------------------------

// Tick advances every bird by dt inside a width x height arena and returns
// the resulting frame. All birds steer against the same pre-tick snapshot,
// so the outcome does not depend on iteration order. If any bird references
// a missing species the tick is refused and nothing changes.
func (f *Flock) Tick(width, height, dt float64) (Frame, error) {
	for _, b := range f.birds {
		if _, ok := f.species[b.SpeciesID]; !ok {
			return Frame{}, &UnknownSpeciesError{ID: b.SpeciesID}
		}
	}

	// 1. Freeze the world as it is now
	snapshot := behavior.Neighborhood{Birds: f.birds, Index: f.currentIndex()}
	arena := behavior.Arena{Width: width, Height: height}

	// 2. Every bird reads the snapshot and writes into a fresh slice
	next := make([]behavior.Bird, len(f.birds))
	degenerate := 0
	for i, b := range f.birds {
		var d int
		next[i], d = b.Step(snapshot, f.species[b.SpeciesID], arena, dt, f.integrator)
		degenerate += d
	}

	// 3. Swap in the new population and its index in one go
	f.birds = next
	f.index = f.buildIndex(next)
	f.dirty = false
	f.ticks++

	f.stats = computeStats(f.ticks, f.birds, degenerate, f.evictions)
	if degenerate > 0 {
		f.logger.Debugf("tick %d: %d degenerate normalizations", f.ticks, degenerate)
	}
	return f.Frame(), nil
}

// Update runs one Tick and hands the frame to render.
func (f *Flock) Update(width, height, dt float64, render RenderFunc) error {
	frame, err := f.Tick(width, height, dt)
	if err != nil {
		return err
	}
	if render != nil {
		render(frame.Vertices, frame.Colors)
	}
	return nil
}

// Frame exports the current population without stepping it.
func (f *Flock) Frame() Frame {
	return buildFrame(f.birds, f.species, f.layout)
}

// Stats returns the summary computed by the last Tick. Population and
// Evictions are always current.
func (f *Flock) Stats() Stats {
	s := f.stats.clone()
	s.Population = len(f.birds)
	s.Evictions = f.evictions
	return s
}
