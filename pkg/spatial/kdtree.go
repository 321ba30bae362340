package spatial

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// KDTree is a 2-d tree over a point snapshot backed by gonum's kdtree.
type KDTree struct {
	tree *kdtree.Tree
	n    int
}

var _ Index = (*KDTree)(nil)

// NewKDTree builds a tree from points. The input slice is copied, the tree
// partitions its own storage.
func NewKDTree(points []geometry.Vector2D) *KDTree {
	if len(points) == 0 {
		return &KDTree{}
	}
	ps := make(treePoints, len(points))
	for i, p := range points {
		ps[i] = treePoint{pos: p, idx: i}
	}
	return &KDTree{tree: kdtree.New(ps, false), n: len(points)}
}

func (t *KDTree) Len() int { return t.n }

func (t *KDTree) WithinRadius(q geometry.Vector2D, r float64) []int {
	if t.tree == nil || r < 0 {
		return nil
	}
	// tree distances are squared, so is the keeper bound
	keep := kdtree.NewDistKeeper(r * r)
	t.tree.NearestSet(keep, treePoint{pos: q, idx: -1})

	out := make([]int, 0, len(keep.Heap))
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		out = append(out, c.Comparable.(treePoint).idx)
	}
	sort.Ints(out)
	return out
}

// treePoint is a position tagged with its index in the source snapshot.
type treePoint struct {
	pos geometry.Vector2D
	idx int
}

func (p treePoint) coord(d kdtree.Dim) float64 {
	if d == 0 {
		return p.pos.X
	}
	return p.pos.Y
}

// Compare returns the signed distance of p from the plane through c perpendicular to d.
func (p treePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coord(d) - c.(treePoint).coord(d)
}

func (p treePoint) Dims() int { return 2 }

// Distance is the squared euclidean distance, as kdtree expects.
func (p treePoint) Distance(c kdtree.Comparable) float64 {
	return p.pos.DistanceSquaredTo(c.(treePoint).pos)
}

type treePoints []treePoint

func (p treePoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p treePoints) Len() int                              { return len(p) }
func (p treePoints) Pivot(d kdtree.Dim) int                { return plane{Dim: d, treePoints: p}.Pivot() }
func (p treePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts a treePoints slice along one dimension.
type plane struct {
	kdtree.Dim
	treePoints
}

func (p plane) Less(i, j int) bool {
	return p.treePoints[i].coord(p.Dim) < p.treePoints[j].coord(p.Dim)
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{Dim: p.Dim, treePoints: p.treePoints[start:end]}
}
func (p plane) Swap(i, j int) {
	p.treePoints[i], p.treePoints[j] = p.treePoints[j], p.treePoints[i]
}
