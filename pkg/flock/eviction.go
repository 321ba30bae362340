package flock

import (
	"fmt"
	"strings"
)

// EvictionPolicy decides which bird leaves when the flock is over capacity.
// The zero value is invalid: callers must pick one.
type EvictionPolicy int

const (
	EvictionUnset EvictionPolicy = iota
	// EvictOldest removes the bird inserted first (FIFO).
	EvictOldest
	// EvictRandom removes a uniformly chosen bird using the flock's seeded source.
	EvictRandom
)

func (p EvictionPolicy) String() string {
	switch p {
	case EvictionUnset:
		return "unset"
	case EvictOldest:
		return "oldest"
	case EvictRandom:
		return "random"
	default:
		return fmt.Sprintf("EvictionPolicy(%d)", int(p))
	}
}

// ParseEvictionPolicy maps a configuration string to a policy.
func ParseEvictionPolicy(s string) (EvictionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oldest", "fifo", "oldest-first":
		return EvictOldest, nil
	case "random", "uniform-random":
		return EvictRandom, nil
	case "":
		return EvictionUnset, ErrNoEvictionPolicy
	default:
		return EvictionUnset, fmt.Errorf("unknown eviction policy %q", s)
	}
}

// victim returns the index of the bird to evict from a population of n > 0.
func (f *Flock) victim(n int) int {
	if f.eviction == EvictRandom {
		return f.rng.IntN(n)
	}
	return 0
}

// evict removes one bird according to the active policy.
func (f *Flock) evict() {
	i := f.victim(len(f.birds))
	gone := f.birds[i]
	f.birds = append(f.birds[:i], f.birds[i+1:]...)
	f.evictions++
	f.dirty = true
	f.logger.Debugf("evicted %s (policy %s, population %d)", gone, f.eviction, len(f.birds))
}
