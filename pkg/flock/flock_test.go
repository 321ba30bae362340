package flock

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/spatial"
)

func newTestFlock(t *testing.T, capacity int, policy EvictionPolicy) *Flock {
	t.Helper()
	f, err := New(Options{Capacity: capacity, Eviction: policy, Seed: 42})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := f.AddSpeciesConfig("x", behavior.DefaultSpecies()); err != nil {
		t.Fatalf("AddSpeciesConfig() error = %v", err)
	}
	return f
}

func at(x, y float64) BirdOption { return WithPosition(geometry.Vector2D{X: x, Y: y}) }

func still() BirdOption { return WithVelocity(geometry.Zero) }

func xs(birds []behavior.Bird) []float64 {
	out := make([]float64, len(birds))
	for i, b := range birds {
		out[i] = b.Position.X
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{"Zero capacity", Options{Capacity: 0, Eviction: EvictOldest}, ErrInvalidCapacity},
		{"Unset eviction", Options{Capacity: 10}, ErrNoEvictionPolicy},
		{"Bogus eviction", Options{Capacity: 10, Eviction: EvictionPolicy(9)}, ErrNoEvictionPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v; want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInsertBird_CapacityInvariant(t *testing.T) {
	for _, policy := range []EvictionPolicy{EvictOldest, EvictRandom} {
		t.Run(policy.String(), func(t *testing.T) {
			f := newTestFlock(t, 5, policy)
			for i := 0; i < 50; i++ {
				if err := f.InsertBird("x"); err != nil {
					t.Fatalf("InsertBird() error = %v", err)
				}
				if f.Len() > f.Capacity() {
					t.Fatalf("after insert %d: Len() = %d > capacity %d", i, f.Len(), f.Capacity())
				}
			}
			if f.Len() != 5 {
				t.Errorf("Len() = %d; want 5", f.Len())
			}
			if got := f.Stats().Evictions; got != 45 {
				t.Errorf("Evictions = %d; want 45", got)
			}
		})
	}
}

func TestInsertBird_UnknownSpeciesIsRejected(t *testing.T) {
	f := newTestFlock(t, 5, EvictOldest)
	_ = f.InsertBird("x")

	err := f.InsertBird("ghost")

	var unknown *UnknownSpeciesError
	if !errors.As(err, &unknown) || unknown.ID != "ghost" {
		t.Fatalf("InsertBird(ghost) error = %v; want *UnknownSpeciesError{ghost}", err)
	}
	if !errors.Is(err, ErrUnknownSpecies) {
		t.Error("error should match ErrUnknownSpecies")
	}
	if f.Len() != 1 {
		t.Errorf("Len() = %d; want 1", f.Len())
	}
	if _, err := f.InsertWeightedBird(100, 100); err != nil {
		t.Errorf("weighted insertion with a fallback species failed: %v", err)
	}
}

func TestInsertBird_OldestFirstScenario(t *testing.T) {
	f := newTestFlock(t, 2, EvictOldest)
	// A, B, C are told apart by position
	for _, x := range []float64{1, 2, 3} {
		if err := f.InsertBird("x", at(x, 0)); err != nil {
			t.Fatal(err)
		}
	}

	got := xs(f.Birds())
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("population = %v; want [B C] = [2 3]", got)
	}
}

func TestInsertBird_RandomEvictionIsSeeded(t *testing.T) {
	run := func() []float64 {
		f := newTestFlock(t, 3, EvictRandom)
		for i := 0; i < 10; i++ {
			_ = f.InsertBird("x", at(float64(i), 0))
		}
		return xs(f.Birds())
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed gave %v then %v", a, b)
		}
	}
}

func TestInsertBird_Defaults(t *testing.T) {
	f := newTestFlock(t, 10, EvictOldest)
	s, _ := f.SpeciesConfig("x")

	_ = f.InsertBird("x")
	_ = f.InsertBird("x", at(3, 4), WithVelocity(geometry.Vector2D{X: 1}), WithAcceleration(geometry.Vector2D{Y: 2}))

	birds := f.Birds()
	if !birds[0].Position.Eq(geometry.Zero) {
		t.Errorf("default position = %v; want origin", birds[0].Position)
	}
	if v := birds[0].Velocity; math.Abs(v.X) > s.MaxSpeed || math.Abs(v.Y) > s.MaxSpeed {
		t.Errorf("default velocity %v outside ±%v", v, s.MaxSpeed)
	}
	want := behavior.Bird{
		Position:     geometry.Vector2D{X: 3, Y: 4},
		Velocity:     geometry.Vector2D{X: 1},
		Acceleration: geometry.Vector2D{Y: 2},
		SpeciesID:    "x",
	}
	if birds[1] != want {
		t.Errorf("bird = %+v; want %+v", birds[1], want)
	}
}

func TestInsertBirdAtRandomPosition_StaysInArena(t *testing.T) {
	f := newTestFlock(t, 100, EvictOldest)
	for i := 0; i < 100; i++ {
		if err := f.InsertBirdAtRandomPosition("x", 200, 100); err != nil {
			t.Fatal(err)
		}
	}
	for _, b := range f.Birds() {
		if math.Abs(b.Position.X) > 100 || math.Abs(b.Position.Y) > 50 {
			t.Errorf("bird %v outside the 200x100 arena", b)
		}
	}
	if err := f.InsertBirdAtRandomPosition("ghost", 200, 100); !errors.Is(err, ErrUnknownSpecies) {
		t.Errorf("error = %v; want ErrUnknownSpecies", err)
	}
}

func TestInsertWeightedBird(t *testing.T) {
	f, _ := New(Options{Capacity: 1000, Eviction: EvictOldest, Seed: 7})
	if _, err := f.InsertWeightedBird(10, 10); !errors.Is(err, ErrNoSpecies) {
		t.Fatalf("empty table error = %v; want ErrNoSpecies", err)
	}

	common := behavior.DefaultSpecies() // weight -1, fallback
	rare := behavior.DefaultSpecies()
	rare.Weight = 0.1
	_ = f.AddSpeciesConfig("common", common)
	_ = f.AddSpeciesConfig("rare", rare)

	for i := 0; i < 1000; i++ {
		if _, err := f.InsertWeightedBird(100, 100); err != nil {
			t.Fatal(err)
		}
	}
	per := f.Stats()
	counts := map[string]int{}
	for _, b := range f.Birds() {
		counts[b.SpeciesID]++
	}
	if counts["rare"] < 50 || counts["rare"] > 150 {
		t.Errorf("rare picked %d times out of 1000; want about 100", counts["rare"])
	}
	if counts["common"]+counts["rare"] != per.Population {
		t.Errorf("counts %v do not add up to %d", counts, per.Population)
	}
}

func TestInsertWeightedBird_AllZeroWeights(t *testing.T) {
	f, _ := New(Options{Capacity: 100, Eviction: EvictOldest, Seed: 3})
	for _, id := range []string{"crow", "gull"} {
		s := behavior.DefaultSpecies()
		s.Weight = 0
		_ = f.AddSpeciesConfig(id, s)
	}

	counts := map[string]int{}
	for i := 0; i < 100; i++ {
		id, err := f.InsertWeightedBird(640, 480)
		if err != nil {
			t.Fatalf("InsertWeightedBird() error = %v", err)
		}
		counts[id]++
	}
	if f.Len() != 100 {
		t.Errorf("Len() = %d; want 100", f.Len())
	}
	if counts["crow"] == 0 || counts["gull"] == 0 {
		t.Errorf("zero weights should pick uniformly, got %v", counts)
	}
}

func TestSpeciesConfig_Lifecycle(t *testing.T) {
	f := newTestFlock(t, 10, EvictOldest)

	t.Run("UpdateMissing", func(t *testing.T) {
		err := f.UpdateSpeciesConfig("ghost", behavior.DefaultSpecies())
		var nf *NotFoundError
		if !errors.As(err, &nf) || !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateSpeciesConfig(ghost) error = %v; want *NotFoundError", err)
		}
		if _, ok := f.SpeciesConfig("ghost"); ok {
			t.Error("failed update must not create the species")
		}
	})

	t.Run("UpdateExisting", func(t *testing.T) {
		s := behavior.DefaultSpecies()
		s.MaxSpeed = 9
		if err := f.UpdateSpeciesConfig("x", s); err != nil {
			t.Fatal(err)
		}
		if got, _ := f.SpeciesConfig("x"); got.MaxSpeed != 9 {
			t.Errorf("MaxSpeed = %v; want 9", got.MaxSpeed)
		}
	})

	t.Run("AddIsIdempotent", func(t *testing.T) {
		s := behavior.DefaultSpecies()
		_ = f.AddSpeciesConfig("y", s)
		_ = f.AddSpeciesConfig("y", s)
		if ids := f.SpeciesIDs(); len(ids) != 2 || ids[0] != "x" || ids[1] != "y" {
			t.Errorf("SpeciesIDs() = %v; want [x y]", ids)
		}
	})

	t.Run("AddInvalid", func(t *testing.T) {
		s := behavior.DefaultSpecies()
		s.MaxForce = -1
		if err := f.AddSpeciesConfig("bad", s); !errors.Is(err, behavior.ErrInvalidSpecies) {
			t.Errorf("error = %v; want ErrInvalidSpecies", err)
		}
	})

	t.Run("RemoveCascades", func(t *testing.T) {
		_ = f.InsertBird("x")
		_ = f.InsertBird("y")
		_ = f.InsertBird("x")
		if n := f.RemoveSpeciesConfig("x"); n != 2 {
			t.Errorf("RemoveSpeciesConfig(x) = %d; want 2", n)
		}
		for _, b := range f.Birds() {
			if b.SpeciesID == "x" {
				t.Errorf("orphan %v survived its species", b)
			}
		}
		if _, err := f.Tick(1000, 1000, 1); err != nil {
			t.Errorf("Tick() after removal error = %v", err)
		}
		if n := f.RemoveSpeciesConfig("x"); n != 0 {
			t.Errorf("second removal = %d; want 0", n)
		}
	})
}

func TestSetCapacity(t *testing.T) {
	f := newTestFlock(t, 10, EvictOldest)
	for i := 0; i < 6; i++ {
		_ = f.InsertBird("x", at(float64(i), 0))
	}

	if err := f.SetCapacity(0); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("SetCapacity(0) error = %v; want ErrInvalidCapacity", err)
	}
	if err := f.SetCapacity(20); err != nil || f.Len() != 6 {
		t.Errorf("growing capacity changed the population: %d, %v", f.Len(), err)
	}
	if err := f.SetCapacity(4); err != nil {
		t.Fatal(err)
	}
	got := xs(f.Birds())
	if len(got) != 4 || got[0] != 2 {
		t.Errorf("population = %v; want the 4 youngest [2 3 4 5]", got)
	}
	if f.Capacity() != 4 {
		t.Errorf("Capacity() = %d; want 4", f.Capacity())
	}
}

func TestTick_OrderIndependence(t *testing.T) {
	type seed struct {
		name string
		pos  geometry.Vector2D
		vel  geometry.Vector2D
	}
	a := seed{"A", geometry.Vector2D{X: 0, Y: 0}, geometry.Vector2D{X: 1, Y: 0}}
	b := seed{"B", geometry.Vector2D{X: 20, Y: 5}, geometry.Vector2D{X: 0, Y: 1}}
	c := seed{"C", geometry.Vector2D{X: -10, Y: 15}, geometry.Vector2D{X: -1, Y: -1}}

	s := behavior.DefaultSpecies()
	s.MaxForce = 0.5
	s.DesiredSeparation = 25

	tickA := func(order []seed, kind spatial.Kind) geometry.Vector2D {
		f, _ := New(Options{Capacity: 10, Eviction: EvictOldest, Index: kind})
		for _, sd := range order {
			_ = f.AddSpeciesConfig(sd.name, s)
		}
		for _, sd := range order {
			_ = f.InsertBird(sd.name, WithPosition(sd.pos), WithVelocity(sd.vel))
		}
		if _, err := f.Tick(1000, 1000, 1); err != nil {
			t.Fatal(err)
		}
		for _, bird := range f.Birds() {
			if bird.SpeciesID == "A" {
				return bird.Position
			}
		}
		t.Fatal("A is gone")
		return geometry.Zero
	}

	for _, kind := range []spatial.Kind{spatial.KindKDTree, spatial.KindGrid} {
		t.Run(kind.String(), func(t *testing.T) {
			ab := tickA([]seed{a, b}, kind)
			ba := tickA([]seed{b, a}, kind)
			if !ab.Eq(ba) {
				t.Errorf("A moved to %v with order AB but %v with order BA", ab, ba)
			}
			abc := tickA([]seed{a, b, c}, kind)
			cba := tickA([]seed{c, b, a}, kind)
			bca := tickA([]seed{b, c, a}, kind)
			if !abc.Eq(cba) || !abc.Eq(bca) {
				t.Errorf("A moved to %v, %v, %v depending on order", abc, cba, bca)
			}
		})
	}
}

func TestTick_IsolatedBird(t *testing.T) {
	f, _ := New(Options{Capacity: 1, Eviction: EvictOldest})
	_ = f.AddSpeciesConfig("solo", behavior.Species{
		NeighborDistance: 25, DesiredSeparation: 25, MaxSpeed: 10, MaxForce: 5, BirdSize: 5,
	})
	_ = f.InsertBird("solo", WithVelocity(geometry.Vector2D{X: 1}))

	if _, err := f.Tick(10000, 10000, 1); err != nil {
		t.Fatal(err)
	}
	got := f.Birds()[0]
	if !got.Position.Eq(geometry.Vector2D{X: 1}) || !got.Acceleration.Eq(geometry.Zero) {
		t.Errorf("bird = %+v; want position (1, 0) and zero acceleration", got)
	}
	if st := f.Stats(); st.Tick != 1 || st.Degenerate != 0 || st.MeanSpeed != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestTick_GridWithHugeNeighborDistance(t *testing.T) {
	f, err := New(Options{Capacity: 2, Eviction: EvictOldest, Index: spatial.KindGrid, GridCellSize: 200})
	if err != nil {
		t.Fatal(err)
	}
	s := behavior.DefaultSpecies()
	s.NeighborDistance = 2e6
	s.DesiredSeparation = 2e6
	if err := f.AddSpeciesConfig("wide", s); err != nil {
		t.Fatal(err)
	}
	_ = f.InsertBird("wide", at(-100, 0), still())
	_ = f.InsertBird("wide", at(100, 0), still())

	done := make(chan error, 1)
	go func() {
		_, err := f.Tick(1000, 1000, 1)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tick with a huge neighbor distance did not finish")
	}

	for _, b := range f.Birds() {
		if math.IsNaN(b.Position.X) || math.IsInf(b.Position.X, 0) {
			t.Errorf("position = %v; want finite", b.Position)
		}
	}
}

func TestAddSpeciesConfig_RejectsNonFinite(t *testing.T) {
	f := newTestFlock(t, 10, EvictOldest)
	s := behavior.DefaultSpecies()
	s.MaxSpeed = math.NaN()
	if err := f.AddSpeciesConfig("nan", s); !errors.Is(err, behavior.ErrInvalidSpecies) {
		t.Fatalf("AddSpeciesConfig(NaN max speed) = %v; want ErrInvalidSpecies", err)
	}
	if _, ok := f.SpeciesConfig("nan"); ok {
		t.Error("a rejected species must not be stored")
	}

	_ = f.InsertBird("x", at(1, 2))
	if _, err := f.Tick(640, 480, 1); err != nil {
		t.Fatal(err)
	}
	p := f.Birds()[0].Position
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		t.Errorf("position = %v; want finite", p)
	}
}

func TestTick_FrameBuffers(t *testing.T) {
	s := behavior.DefaultSpecies()
	s.Color = behavior.Color{R: 0.25, G: 0.5, B: 1}
	s2 := behavior.DefaultSpecies()
	s2.Color = behavior.Color{R: 1, G: 0, B: 0}

	for _, layout := range []Layout{LineLoop, Triangles} {
		t.Run(layout.String(), func(t *testing.T) {
			f, _ := New(Options{Capacity: 10, Eviction: EvictOldest, Layout: layout})
			_ = f.AddSpeciesConfig("blue", s)
			_ = f.AddSpeciesConfig("red", s2)
			_ = f.InsertBird("blue", at(-100, 0))
			_ = f.InsertBird("red", at(100, 0))
			_ = f.InsertBird("blue", at(0, 100))

			var vertices, colors []float32
			calls := 0
			err := f.Update(1000, 1000, 1, func(v, c []float32) {
				calls++
				vertices, colors = v, c
			})
			if err != nil {
				t.Fatal(err)
			}

			per := layout.VerticesPerBird()
			if calls != 1 {
				t.Errorf("render called %d times; want 1", calls)
			}
			if len(vertices) != 3*per*3 || len(colors) != len(vertices) {
				t.Fatalf("len(vertices) = %d, len(colors) = %d; want %d", len(vertices), len(colors), 3*per*3)
			}
			for i := 2; i < len(vertices); i += 3 {
				if vertices[i] != 0 {
					t.Fatalf("z at %d = %v; want 0", i, vertices[i])
				}
			}
			// second bird's vertex group is red, third is blue again
			red := colors[per*3 : 2*per*3]
			for i := 0; i < len(red); i += 3 {
				if red[i] != 1 || red[i+1] != 0 || red[i+2] != 0 {
					t.Fatalf("bird 1 color = %v; want red", red[i:i+3])
				}
			}
			if colors[2*per*3+2] != 1 {
				t.Errorf("bird 2 blue component = %v; want 1", colors[2*per*3+2])
			}
			if fr := f.Frame(); fr.Birds() != 3 {
				t.Errorf("Frame().Birds() = %d; want 3", fr.Birds())
			}
		})
	}
}

func TestTick_EmptyFlock(t *testing.T) {
	f, _ := New(Options{Capacity: 3, Eviction: EvictRandom})
	frame, err := f.Tick(100, 100, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(frame.Vertices) != 0 || len(frame.Colors) != 0 || frame.Birds() != 0 {
		t.Errorf("empty flock exported %+v", frame)
	}
}

func TestNeighbors_FollowsPopulation(t *testing.T) {
	f := newTestFlock(t, 10, EvictOldest)
	_ = f.InsertBird("x", at(0, 0), still())
	_ = f.InsertBird("x", at(3, 4), still())
	_ = f.InsertBird("x", at(50, 0), still())

	if got := len(f.Neighbors(geometry.Zero, 5)); got != 2 {
		t.Errorf("Neighbors(0, 5) = %d birds; want 2", got)
	}

	_ = f.InsertBird("x", at(1, 1), still())
	if got := len(f.Neighbors(geometry.Zero, 5)); got != 3 {
		t.Errorf("after insert, Neighbors(0, 5) = %d birds; want 3", got)
	}

	f.Clear()
	if got := len(f.Neighbors(geometry.Zero, 5)); got != 0 || f.Len() != 0 {
		t.Errorf("after Clear, Neighbors = %d, Len = %d; want 0, 0", got, f.Len())
	}
	if len(f.SpeciesIDs()) != 1 {
		t.Error("Clear must keep species")
	}
}

func TestParseEvictionPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    EvictionPolicy
		wantErr bool
	}{
		{"oldest", EvictOldest, false},
		{"FIFO", EvictOldest, false},
		{"random", EvictRandom, false},
		{"", EvictionUnset, true},
		{"lifo", EvictionUnset, true},
	}
	for _, tt := range tests {
		got, err := ParseEvictionPolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseEvictionPolicy(%q) = %v, %v; want %v, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func BenchmarkTick(b *testing.B) {
	for _, kind := range []spatial.Kind{spatial.KindKDTree, spatial.KindGrid} {
		b.Run(kind.String(), func(b *testing.B) {
			f, _ := New(Options{Capacity: 2000, Eviction: EvictOldest, Index: kind, GridCellSize: 200, Seed: 1})
			_ = f.AddSpeciesConfig("default", behavior.DefaultSpecies())
			for i := 0; i < 2000; i++ {
				_ = f.InsertBirdAtRandomPosition("default", 1920, 1080)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = f.Tick(1920, 1080, 1)
			}
		})
	}
}
