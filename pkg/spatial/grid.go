package spatial

import (
	"math"
	"sort"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// MinCellSize keeps the grid from degenerating into tiny cells or a division by zero.
const MinCellSize = 10.0

type gridKey struct {
	x, y int
}

// Grid is a uniform spatial hash over a point snapshot.
// Cell size should be close to the largest query radius so that most
// queries only touch a 3x3 block of cells.
type Grid struct {
	cellSize float64
	cells    map[gridKey][]int
	points   []geometry.Vector2D

	// bounding box of the occupied cells
	minKey, maxKey gridKey
}

var _ Index = (*Grid)(nil)

// NewGrid hashes a copy of points into cells of cellSize.
func NewGrid(points []geometry.Vector2D, cellSize float64) *Grid {
	g := &Grid{
		cellSize: math.Max(cellSize, MinCellSize),
		cells:    make(map[gridKey][]int),
		points:   append([]geometry.Vector2D(nil), points...),
	}
	for i, p := range g.points {
		key := g.keyOf(p.X, p.Y)
		g.cells[key] = append(g.cells[key], i)
		if i == 0 {
			g.minKey, g.maxKey = key, key
			continue
		}
		g.minKey.x, g.maxKey.x = min(g.minKey.x, key.x), max(g.maxKey.x, key.x)
		g.minKey.y, g.maxKey.y = min(g.minKey.y, key.y), max(g.maxKey.y, key.y)
	}
	return g
}

// CellSize is the effective side of a cell after clamping.
func (g *Grid) CellSize() float64 { return g.cellSize }

func (g *Grid) Len() int { return len(g.points) }

func (g *Grid) keyOf(x, y float64) gridKey {
	return gridKey{
		x: int(math.Floor(x / g.cellSize)),
		y: int(math.Floor(y / g.cellSize)),
	}
}

// Nearby returns every point index stored in the 3x3 block of cells around (x, y),
// without any distance filtering.
func (g *Grid) Nearby(x, y float64) []int {
	c := g.keyOf(x, y)
	var out []int
	for i := c.x - 1; i <= c.x+1; i++ {
		for j := c.y - 1; j <= c.y+1; j++ {
			out = append(out, g.cells[gridKey{x: i, y: j}]...)
		}
	}
	return out
}

// cellIndex is the cell coordinate of v along one axis, clamped to the
// occupied range [lo, hi] before the conversion to int.
func (g *Grid) cellIndex(v float64, lo, hi int) int {
	c := math.Floor(v / g.cellSize)
	if c < float64(lo) {
		return lo
	}
	if c > float64(hi) {
		return hi
	}
	return int(c)
}

// WithinRadius only scans the occupied cells overlapping the bounding box of
// the query disc. When that window holds more cells than the grid has
// occupied ones, the occupied cells are scanned directly, so a huge radius
// costs O(n) and never more.
func (g *Grid) WithinRadius(q geometry.Vector2D, r float64) []int {
	if r < 0 || math.IsNaN(r) || len(g.points) == 0 {
		return nil
	}
	radiusSq := r * r
	x0 := g.cellIndex(q.X-r, g.minKey.x, g.maxKey.x)
	x1 := g.cellIndex(q.X+r, g.minKey.x, g.maxKey.x)
	y0 := g.cellIndex(q.Y-r, g.minKey.y, g.maxKey.y)
	y1 := g.cellIndex(q.Y+r, g.minKey.y, g.maxKey.y)

	var out []int
	collect := func(cell []int) {
		for _, i := range cell {
			if g.points[i].DistanceSquaredTo(q) <= radiusSq {
				out = append(out, i)
			}
		}
	}

	window := float64(x1-x0+1) * float64(y1-y0+1)
	if window > float64(len(g.cells)) {
		for key, cell := range g.cells {
			if key.x >= x0 && key.x <= x1 && key.y >= y0 && key.y <= y1 {
				collect(cell)
			}
		}
	} else {
		for gx := x0; gx <= x1; gx++ {
			for gy := y0; gy <= y1; gy++ {
				collect(g.cells[gridKey{x: gx, y: gy}])
			}
		}
	}
	sort.Ints(out)
	return out
}
