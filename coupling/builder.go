package coupling

import (
	"fmt"

	"github.com/xinfuwcx/DeepCAD-sub002/mesh"
	"github.com/xinfuwcx/DeepCAD-sub002/spatial"
)

// Builder assembles weighted constraints from candidate search results.
// It never touches shared state; the engine owns accumulation.
type Builder struct {
	assigner      WeightAssigner
	minCandidates int
}

// NewBuilder returns a builder using the given weight strategy. Nodes with
// fewer than minCandidates usable candidates are refused so the engine can
// route them to the fallback projector.
func NewBuilder(assigner WeightAssigner, minCandidates int) (*Builder, error) {
	if assigner == nil {
		return nil, fmt.Errorf("builder: nil weight assigner")
	}
	if minCandidates < 1 {
		return nil, fmt.Errorf("builder: min candidates must be >= 1, got %d", minCandidates)
	}
	return &Builder{assigner: assigner, minCandidates: minCandidates}, nil
}

// Build produces the weighted constraint for one reinforcement node.
// Candidates must already exclude the slave node itself. ok=false means the
// node could not be coupled by the weighted strategy and must take the
// fallback path.
func (b *Builder) Build(node mesh.Node, cands []spatial.Candidate) (Constraint, bool) {
	if len(cands) < b.minCandidates {
		return Constraint{}, false
	}
	masters, err := b.assigner.Assign(node.Position, cands)
	if err != nil {
		return Constraint{}, false
	}
	// Strategies that reselect masters (shape function) can reintroduce the
	// slave on meshes where anchors share continuum nodes.
	masters = dropSlave(masters, node.ID)

	c := Constraint{
		SlaveNode: node.ID,
		DOFs:      AllDOFs(),
		Masters:   masters,
		Strategy:  StrategyWeighted,
	}
	if err := c.Verify(); err != nil {
		return Constraint{}, false
	}
	return c, true
}

// withoutSlave filters the slave node out of a candidate list, preserving
// order. The original slice is never mutated.
func withoutSlave(cands []spatial.Candidate, slave int) []spatial.Candidate {
	keep := true
	for _, c := range cands {
		if c.NodeID == slave {
			keep = false
			break
		}
	}
	if keep {
		return cands
	}
	out := make([]spatial.Candidate, 0, len(cands)-1)
	for _, c := range cands {
		if c.NodeID != slave {
			out = append(out, c)
		}
	}
	return out
}

// dropSlave removes the slave from a master list and renormalizes the
// remaining weights. A list that loses all its weight is returned as-is and
// rejected by constraint verification.
func dropSlave(masters []MasterWeight, slave int) []MasterWeight {
	present := false
	for _, m := range masters {
		if m.Node == slave {
			present = true
			break
		}
	}
	if !present {
		return masters
	}
	kept := make([]MasterWeight, 0, len(masters)-1)
	total := 0.0
	for _, m := range masters {
		if m.Node == slave {
			continue
		}
		kept = append(kept, m)
		total += m.Weight
	}
	if total <= 0 {
		return kept
	}
	for i := range kept {
		kept[i].Weight /= total
	}
	return kept
}
