package mesh

import (
	"fmt"
	"log/slog"
	"sort"
)

// Classification is the partition of a mesh into the reinforcement and
// continuum element sets, with the node sets derived from each.
type Classification struct {
	Reinforcement []Element
	Continuum     []Element

	// ReinforcementNodes and ContinuumNodes hold the ids of nodes incident
	// to each element set that have coordinate entries, ascending.
	ReinforcementNodes []int
	ContinuumNodes     []int

	// MissingReinforcementNodes are ids referenced by reinforcement elements
	// with no coordinate entry. They count toward the run total but can never
	// be coupled. MissingContinuumNodes likewise for the continuum side; such
	// nodes are dropped from the spatial index.
	MissingReinforcementNodes []int
	MissingContinuumNodes     []int

	// Skipped counts elements that are neither reinforcement nor continuum,
	// per topology.
	Skipped map[Topology]int

	Warnings []string
}

// Classifier partitions elements into reinforcement and continuum sets.
// Reinforcement means a 2-node line whose material id is in the configured
// set. Continuum means any 3D solid regardless of material. Everything else
// is skipped with a warning.
type Classifier struct {
	materials map[int]bool
	log       *slog.Logger
}

// NewClassifier returns a classifier for the given reinforcement material
// ids. An empty id set is legal and classifies every line element as
// skipped, which callers must treat as "nothing to couple".
func NewClassifier(reinforcementMaterialIDs []int, log *slog.Logger) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	mats := make(map[int]bool, len(reinforcementMaterialIDs))
	for _, id := range reinforcementMaterialIDs {
		mats[id] = true
	}
	return &Classifier{materials: mats, log: log}
}

// Classify partitions the mesh elements and derives the node sets.
func (c *Classifier) Classify(m *Mesh) (*Classification, error) {
	if m == nil {
		return nil, fmt.Errorf("classify: nil mesh")
	}

	cls := &Classification{Skipped: make(map[Topology]int)}
	reinfNodes := make(map[int]bool)
	contNodes := make(map[int]bool)

	for _, e := range m.Elements {
		switch {
		case e.Topology.IsLine() && c.materials[e.MaterialID]:
			cls.Reinforcement = append(cls.Reinforcement, e)
			for _, id := range e.NodeIDs {
				reinfNodes[id] = true
			}
		case e.Topology.IsSolid():
			cls.Continuum = append(cls.Continuum, e)
			for _, id := range e.NodeIDs {
				contNodes[id] = true
			}
		default:
			cls.Skipped[e.Topology]++
		}
	}

	cls.ReinforcementNodes, cls.MissingReinforcementNodes = splitPresent(m, reinfNodes)
	cls.ContinuumNodes, cls.MissingContinuumNodes = splitPresent(m, contNodes)

	for _, t := range skippedTopologies(cls.Skipped) {
		w := fmt.Sprintf("skipped %d %s element(s): neither reinforcement line nor 3D solid", cls.Skipped[t], t)
		cls.Warnings = append(cls.Warnings, w)
		c.log.Warn("elements skipped", "topology", t.String(), "count", cls.Skipped[t])
	}
	if n := len(cls.MissingContinuumNodes); n > 0 {
		cls.Warnings = append(cls.Warnings,
			fmt.Sprintf("%d continuum node id(s) have no coordinate entry and are excluded from the spatial index", n))
	}

	c.log.Debug("classification complete",
		"reinforcement_elements", len(cls.Reinforcement),
		"continuum_elements", len(cls.Continuum),
		"reinforcement_nodes", len(cls.ReinforcementNodes),
		"continuum_nodes", len(cls.ContinuumNodes))
	return cls, nil
}

// TotalReinforcementNodes is the run total: nodes with coordinates plus
// nodes referenced by reinforcement elements that are missing from the
// node table.
func (cls *Classification) TotalReinforcementNodes() int {
	return len(cls.ReinforcementNodes) + len(cls.MissingReinforcementNodes)
}

func splitPresent(m *Mesh, ids map[int]bool) (present, missing []int) {
	for id := range ids {
		if _, ok := m.Nodes[id]; ok {
			present = append(present, id)
		} else {
			missing = append(missing, id)
		}
	}
	sort.Ints(present)
	sort.Ints(missing)
	return present, missing
}

func skippedTopologies(skipped map[Topology]int) []Topology {
	ts := make([]Topology, 0, len(skipped))
	for t := range skipped {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts
}
