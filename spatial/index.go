// Package spatial provides the nearest-neighbor machinery for the coupling
// engine: a k-d tree index over node coordinates and a radius search with
// bounded escalation.
package spatial

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/xinfuwcx/DeepCAD-sub002/mesh"
)

// Candidate is one query hit: a node id and its Euclidean distance from the
// query point.
type Candidate struct {
	NodeID   int
	Distance float64
}

// nodePoint adapts a mesh node to the k-d tree.
type nodePoint struct {
	pos r3.Vec
	id  int
}

// Compare returns the signed distance of p from the plane through c
// perpendicular to dimension d.
func (p nodePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(nodePoint)
	switch d {
	case 0:
		return p.pos.X - q.pos.X
	case 1:
		return p.pos.Y - q.pos.Y
	default:
		return p.pos.Z - q.pos.Z
	}
}

// Dims returns the number of dimensions.
func (p nodePoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between p and c.
func (p nodePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(nodePoint)
	return r3.Norm2(r3.Sub(p.pos, q.pos))
}

// nodePoints implements kdtree.Interface for tree construction.
type nodePoints []nodePoint

func (p nodePoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p nodePoints) Len() int                              { return len(p) }
func (p nodePoints) Pivot(d kdtree.Dim) int                { return plane{Dim: d, nodePoints: p}.Pivot() }
func (p nodePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts nodePoints along a single dimension. Embedding the slice
// promotes its Len, completing sort.Interface for kdtree.Partition.
type plane struct {
	kdtree.Dim
	nodePoints
}

func (p plane) Less(i, j int) bool {
	a, b := p.nodePoints[i].pos, p.nodePoints[j].pos
	switch p.Dim {
	case 0:
		return a.X < b.X
	case 1:
		return a.Y < b.Y
	default:
		return a.Z < b.Z
	}
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.nodePoints = p.nodePoints[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.nodePoints[i], p.nodePoints[j] = p.nodePoints[j], p.nodePoints[i]
}

var (
	_ kdtree.Interface  = nodePoints{}
	_ kdtree.SortSlicer = plane{}
	_ kdtree.Comparable = nodePoint{}
)

// NodeIndex answers radius and k-nearest queries over a fixed node set.
// Construction is O(N log N); queries are O(log N) on average. The index is
// immutable after construction and safe for concurrent queries.
type NodeIndex struct {
	tree *kdtree.Tree
	size int
}

// NewNodeIndex builds the index. The node slice may be empty; queries on an
// empty index return no candidates.
func NewNodeIndex(nodes []mesh.Node) *NodeIndex {
	ix := &NodeIndex{size: len(nodes)}
	if len(nodes) == 0 {
		return ix
	}
	pts := make(nodePoints, len(nodes))
	for i, n := range nodes {
		pts[i] = nodePoint{pos: n.Position, id: n.ID}
	}
	ix.tree = kdtree.New(pts, true)
	return ix
}

// Size returns the number of indexed nodes.
func (ix *NodeIndex) Size() int { return ix.size }

// Within returns every indexed node within radius of p, sorted by ascending
// distance with ties broken by ascending node id.
func (ix *NodeIndex) Within(p r3.Vec, radius float64) []Candidate {
	if ix.size == 0 || radius <= 0 {
		return nil
	}
	keep := kdtree.NewDistKeeper(radius * radius)
	ix.tree.NearestSet(keep, nodePoint{pos: p})
	return collect(keep.Heap)
}

// Nearest returns the k nodes closest to p, sorted by ascending distance
// with ties broken by ascending node id. Fewer than k are returned when the
// index is smaller than k.
func (ix *NodeIndex) Nearest(p r3.Vec, k int) []Candidate {
	if ix.size == 0 || k <= 0 {
		return nil
	}
	keep := kdtree.NewNKeeper(k)
	ix.tree.NearestSet(keep, nodePoint{pos: p})
	return collect(keep.Heap)
}

// collect drains a keeper heap, skipping the keeper's sentinel entries, and
// returns candidates in deterministic order. Keeper distances are squared.
func collect(h kdtree.Heap) []Candidate {
	out := make([]Candidate, 0, len(h))
	for _, c := range h {
		if c.Comparable == nil {
			continue
		}
		np := c.Comparable.(nodePoint)
		out = append(out, Candidate{NodeID: np.id, Distance: math.Sqrt(c.Dist)})
	}
	sortCandidates(out)
	return out
}

func sortCandidates(cands []Candidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Distance != cands[j].Distance {
			return cands[i].Distance < cands[j].Distance
		}
		return cands[i].NodeID < cands[j].NodeID
	})
}
