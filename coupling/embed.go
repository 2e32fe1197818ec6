package coupling

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/xinfuwcx/DeepCAD-sub002/mesh"
)

// Masters below this weight are dropped from fallback constraints; they sit
// on the far side of the projected triangle and contribute nothing.
const dropWeightTolerance = 1e-12

// Projector is the fallback coupling strategy: it ties a node to the
// closest point on the continuum boundary skin using triangle barycentric
// weights. It never re-enters candidate search.
type Projector struct {
	tris    []projTriangle
	skipped int
}

type projTriangle struct {
	ids     [3]int
	a, b, c r3.Vec
}

// NewProjector resolves the skin triangles against the mesh coordinates.
// Triangles whose vertices lack coordinate entries are dropped and counted
// rather than failing the run; the caller surfaces them as a warning.
func NewProjector(m *mesh.Mesh, skin *mesh.Skin) (*Projector, error) {
	if m == nil || skin == nil {
		return nil, fmt.Errorf("projector: nil mesh or skin")
	}
	p := &Projector{tris: make([]projTriangle, 0, len(skin.Triangles))}
	for _, t := range skin.Triangles {
		va, okA := m.Node(t.A)
		vb, okB := m.Node(t.B)
		vc, okC := m.Node(t.C)
		if !okA || !okB || !okC {
			p.skipped++
			continue
		}
		p.tris = append(p.tris, projTriangle{
			ids: [3]int{t.A, t.B, t.C},
			a:   va.Position, b: vb.Position, c: vc.Position,
		})
	}
	return p, nil
}

// TriangleCount reports the number of usable skin triangles.
func (p *Projector) TriangleCount() int { return len(p.tris) }

// SkippedTriangles reports how many skin triangles had to be dropped.
func (p *Projector) SkippedTriangles() int { return p.skipped }

// Project couples the node to its closest skin point. It returns the
// fallback constraint and the projection distance. ok=false means the node
// stays uncoupled: the skin is empty or all projection weight would land on
// the node itself.
func (p *Projector) Project(node mesh.Node) (Constraint, float64, bool) {
	if len(p.tris) == 0 {
		return Constraint{}, 0, false
	}

	best := -1
	bestDist2 := math.Inf(1)
	var bestBary [3]float64
	for i, tri := range p.tris {
		q, bary := closestPointTriangle(node.Position, tri.a, tri.b, tri.c)
		d2 := r3.Norm2(r3.Sub(node.Position, q))
		if d2 < bestDist2 {
			best = i
			bestDist2 = d2
			bestBary = bary
		}
	}

	tri := p.tris[best]
	masters := make([]MasterWeight, 0, 3)
	for i, w := range bestBary {
		if w > dropWeightTolerance {
			masters = append(masters, MasterWeight{Node: tri.ids[i], Weight: w})
		}
	}
	masters = dropSlave(masters, node.ID)
	if len(masters) == 0 {
		return Constraint{}, 0, false
	}
	// Renormalize after drops so the sum is exact.
	total := 0.0
	for _, m := range masters {
		total += m.Weight
	}
	for i := range masters {
		masters[i].Weight /= total
	}

	c := Constraint{
		SlaveNode: node.ID,
		DOFs:      AllDOFs(),
		Masters:   masters,
		Strategy:  StrategyEmbeddedFallback,
	}
	if err := c.Verify(); err != nil {
		return Constraint{}, 0, false
	}
	return c, math.Sqrt(bestDist2), true
}

// closestPointTriangle returns the point of triangle abc closest to p and
// its barycentric coordinates (u,v,w) with respect to (a,b,c). Degenerate
// triangles resolve to the nearest vertex.
func closestPointTriangle(p, a, b, c r3.Vec) (r3.Vec, [3]float64) {
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	ap := r3.Sub(p, a)
	d1 := r3.Dot(ab, ap)
	d2 := r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a, [3]float64{1, 0, 0}
	}

	bp := r3.Sub(p, b)
	d3 := r3.Dot(ab, bp)
	d4 := r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b, [3]float64{0, 1, 0}
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		den := d1 - d3
		if den <= 0 {
			return nearestVertex(p, a, b, c)
		}
		v := d1 / den
		return r3.Add(a, r3.Scale(v, ab)), [3]float64{1 - v, v, 0}
	}

	cp := r3.Sub(p, c)
	d5 := r3.Dot(ab, cp)
	d6 := r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c, [3]float64{0, 0, 1}
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		den := d2 - d6
		if den <= 0 {
			return nearestVertex(p, a, b, c)
		}
		w := d2 / den
		return r3.Add(a, r3.Scale(w, ac)), [3]float64{1 - w, 0, w}
	}

	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		den := (d4 - d3) + (d5 - d6)
		if den <= 0 {
			return nearestVertex(p, a, b, c)
		}
		w := (d4 - d3) / den
		return r3.Add(b, r3.Scale(w, r3.Sub(c, b))), [3]float64{0, 1 - w, w}
	}

	denom := va + vb + vc
	if denom <= 0 || math.IsNaN(denom) {
		return nearestVertex(p, a, b, c)
	}
	v := vb / denom
	w := vc / denom
	q := r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
	return q, [3]float64{1 - v - w, v, w}
}

func nearestVertex(p, a, b, c r3.Vec) (r3.Vec, [3]float64) {
	da := r3.Norm2(r3.Sub(p, a))
	db := r3.Norm2(r3.Sub(p, b))
	dc := r3.Norm2(r3.Sub(p, c))
	switch {
	case da <= db && da <= dc:
		return a, [3]float64{1, 0, 0}
	case db <= dc:
		return b, [3]float64{0, 1, 0}
	default:
		return c, [3]float64{0, 0, 1}
	}
}
