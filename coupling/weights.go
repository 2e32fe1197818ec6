package coupling

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/xinfuwcx/DeepCAD-sub002/mesh"
	"github.com/xinfuwcx/DeepCAD-sub002/spatial"
)

// WeightAssigner converts a query point and its candidate set into master
// weights. Implementations must return weights that are non-negative and
// sum to one, and must never invent the slave node as a master (candidates
// are pre-filtered, but strategies that reselect masters re-check).
type WeightAssigner interface {
	Assign(p r3.Vec, cands []spatial.Candidate) ([]MasterWeight, error)
}

// InverseDistance weights each candidate by 1/max(d, floor)^p, normalized.
// A candidate closer than the floor collapses the whole vector onto the
// nearest candidate: it gets weight one and every other weight is zero,
// keeping the master list aligned with the candidate list.
type InverseDistance struct {
	Exponent float64
	Floor    float64
}

// NewInverseDistance validates the parameters.
func NewInverseDistance(exponent, floor float64) (*InverseDistance, error) {
	if exponent < 0 {
		return nil, fmt.Errorf("inverse distance: exponent must be positive, got %g", exponent)
	}
	if floor <= 0 {
		return nil, fmt.Errorf("inverse distance: floor must be positive, got %g", floor)
	}
	return &InverseDistance{Exponent: exponent, Floor: floor}, nil
}

// Assign computes the weights. Candidates must be non-empty and sorted by
// ascending distance, which is what a Searcher produces.
func (w *InverseDistance) Assign(_ r3.Vec, cands []spatial.Candidate) ([]MasterWeight, error) {
	if len(cands) == 0 {
		return nil, fmt.Errorf("inverse distance: empty candidate set")
	}

	masters := make([]MasterWeight, len(cands))
	for i, c := range cands {
		masters[i] = MasterWeight{Node: c.NodeID}
	}

	// Coincident node: single-point collapse.
	if cands[0].Distance < w.Floor {
		masters[0].Weight = 1
		return masters, nil
	}

	inv := make([]float64, len(cands))
	for i, c := range cands {
		inv[i] = 1 / math.Pow(c.Distance, w.Exponent)
	}
	total := floats.Sum(inv)
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		// Degenerate sum: collapse rather than emit NaN weights.
		masters[0].Weight = 1
		return masters, nil
	}
	for i := range masters {
		masters[i].Weight = inv[i] / total
	}
	return masters, nil
}

// tetCell is one tetrahedral interpolation cell, either a Tet4/Tet10 corner
// tet or one of the five tets a Hex8 decomposes into.
type tetCell struct {
	nodes [4]int
	verts [4]r3.Vec
}

func (c tetCell) centroid() r3.Vec {
	s := r3.Add(r3.Add(c.verts[0], c.verts[1]), r3.Add(c.verts[2], c.verts[3]))
	return r3.Scale(0.25, s)
}

// Five-tet hexahedron decomposition over the Hex8 corner ordering.
var hexTets = [5][4]int{
	{0, 1, 3, 4},
	{1, 2, 3, 6},
	{1, 4, 5, 6},
	{3, 4, 6, 7},
	{1, 3, 4, 6},
}

// ShapeFunction interpolates with the barycentric coordinates of the query
// point inside its enclosing continuum cell. Points outside every cell near
// them fall back to inverse-distance weighting on the candidate set.
type ShapeFunction struct {
	cells     []tetCell
	centroids *spatial.NodeIndex
	probe     int
	fallback  *InverseDistance
}

// How far past zero a barycentric coordinate may go and still count as
// inside, absorbing roundoff on cell boundaries.
const insideTolerance = 1e-9

// NewShapeFunction builds the cell table and centroid index from the
// continuum elements. Elements referencing nodes without coordinates are
// skipped. probe sets how many nearby cells are tested per query; values
// below one select the default of 8.
func NewShapeFunction(m *mesh.Mesh, continuum []mesh.Element, fallback *InverseDistance, probe int) (*ShapeFunction, error) {
	if m == nil {
		return nil, fmt.Errorf("shape function: nil mesh")
	}
	if fallback == nil {
		return nil, fmt.Errorf("shape function: nil fallback assigner")
	}
	if probe < 1 {
		probe = 8
	}

	sf := &ShapeFunction{probe: probe, fallback: fallback}
	for _, e := range continuum {
		switch e.Topology {
		case mesh.Tet4, mesh.Tet10:
			if cell, ok := makeCell(m, e.NodeIDs[0], e.NodeIDs[1], e.NodeIDs[2], e.NodeIDs[3]); ok {
				sf.cells = append(sf.cells, cell)
			}
		case mesh.Hex8:
			for _, t := range hexTets {
				if cell, ok := makeCell(m, e.NodeIDs[t[0]], e.NodeIDs[t[1]], e.NodeIDs[t[2]], e.NodeIDs[t[3]]); ok {
					sf.cells = append(sf.cells, cell)
				}
			}
		}
	}

	// Index cell centroids as pseudo-nodes keyed by cell index.
	pseudo := make([]mesh.Node, len(sf.cells))
	for i, cell := range sf.cells {
		pseudo[i] = mesh.Node{ID: i, Position: cell.centroid()}
	}
	sf.centroids = spatial.NewNodeIndex(pseudo)
	return sf, nil
}

func makeCell(m *mesh.Mesh, a, b, c, d int) (tetCell, bool) {
	cell := tetCell{nodes: [4]int{a, b, c, d}}
	for i, id := range cell.nodes {
		n, ok := m.Node(id)
		if !ok {
			return tetCell{}, false
		}
		cell.verts[i] = n.Position
	}
	return cell, true
}

// Assign locates the enclosing cell among the probe nearest centroids and
// returns its corner weights; otherwise it delegates to inverse distance.
func (w *ShapeFunction) Assign(p r3.Vec, cands []spatial.Candidate) ([]MasterWeight, error) {
	for _, hit := range w.centroids.Nearest(p, w.probe) {
		cell := w.cells[hit.NodeID]
		lam, ok := barycentricTet(p, cell.verts)
		if !ok {
			continue
		}
		inside := true
		for _, l := range lam {
			if l < -insideTolerance {
				inside = false
				break
			}
		}
		if !inside {
			continue
		}
		// Clamp boundary roundoff and renormalize.
		sum := 0.0
		for i := range lam {
			if lam[i] < 0 {
				lam[i] = 0
			}
			sum += lam[i]
		}
		if sum <= 0 {
			continue
		}
		masters := make([]MasterWeight, 4)
		for i := range masters {
			masters[i] = MasterWeight{Node: cell.nodes[i], Weight: lam[i] / sum}
		}
		return masters, nil
	}
	return w.fallback.Assign(p, cands)
}

// CellCount reports how many interpolation cells were built.
func (w *ShapeFunction) CellCount() int { return len(w.cells) }

// barycentricTet solves for the barycentric coordinates of p in the tet
// spanned by v. A degenerate (near-zero volume) tet reports ok=false.
func barycentricTet(p r3.Vec, v [4]r3.Vec) ([4]float64, bool) {
	e1 := r3.Sub(v[1], v[0])
	e2 := r3.Sub(v[2], v[0])
	e3 := r3.Sub(v[3], v[0])
	d := r3.Sub(p, v[0])

	a := mat.NewDense(3, 3, []float64{
		e1.X, e2.X, e3.X,
		e1.Y, e2.Y, e3.Y,
		e1.Z, e2.Z, e3.Z,
	})
	b := mat.NewVecDense(3, []float64{d.X, d.Y, d.Z})

	var lam mat.VecDense
	if err := lam.SolveVec(a, b); err != nil {
		return [4]float64{}, false
	}
	l1, l2, l3 := lam.AtVec(0), lam.AtVec(1), lam.AtVec(2)
	if math.IsNaN(l1) || math.IsNaN(l2) || math.IsNaN(l3) {
		return [4]float64{}, false
	}
	return [4]float64{1 - l1 - l2 - l3, l1, l2, l3}, true
}
