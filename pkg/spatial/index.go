// Package spatial provides immutable neighbor indices over a snapshot of 2D points.
//
// An index is built once from a slice of positions and answers radius queries
// with indices into that slice. Indices never change after construction: when
// points move, build a new one.
package spatial

import (
	"fmt"
	"strings"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// Index answers "which points lie within r of q" over a fixed point set.
type Index interface {
	// WithinRadius returns, in ascending order, the indices of every point
	// whose euclidean distance to q is <= r. Points at distance 0 are
	// included; excluding self is the caller's job.
	WithinRadius(q geometry.Vector2D, r float64) []int
	// Len is the number of indexed points.
	Len() int
}

// Kind selects an Index implementation.
type Kind int

const (
	// KindKDTree is a 2-d tree: O(n log n) build, O(k + log n) query.
	KindKDTree Kind = iota
	// KindGrid is a uniform spatial hash, cheap to build for dense flocks.
	KindGrid
)

func (k Kind) String() string {
	switch k {
	case KindKDTree:
		return "kdtree"
	case KindGrid:
		return "grid"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a configuration string to a Kind. The empty string selects the kd-tree.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "kdtree", "kd-tree":
		return KindKDTree, nil
	case "grid":
		return KindGrid, nil
	default:
		return 0, fmt.Errorf("unknown spatial index kind %q", s)
	}
}

// Build creates an index of the requested kind. cellSize is only used by the grid.
func Build(kind Kind, points []geometry.Vector2D, cellSize float64) Index {
	if kind == KindGrid {
		return NewGrid(points, cellSize)
	}
	return NewKDTree(points)
}
