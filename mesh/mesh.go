// Package mesh holds the node/element data model consumed by the coupling
// engine, together with the derived views it needs: element classification,
// reinforcement chain analysis, and boundary skin extraction.
package mesh

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Topology identifies the node pattern of an element.
type Topology int

const (
	TopologyUnknown Topology = iota
	Line2                    // 2-node line (truss/anchor segment)
	Tri3                     // 3-node triangle (shell)
	Quad4                    // 4-node quadrilateral (shell)
	Tet4                     // 4-node tetrahedron
	Tet10                    // 10-node tetrahedron (corner nodes first)
	Hex8                     // 8-node hexahedron
)

// String returns the topology name.
func (t Topology) String() string {
	switch t {
	case Line2:
		return "Line2"
	case Tri3:
		return "Tri3"
	case Quad4:
		return "Quad4"
	case Tet4:
		return "Tet4"
	case Tet10:
		return "Tet10"
	case Hex8:
		return "Hex8"
	default:
		return "Unknown"
	}
}

// NodeCount returns the number of nodes the topology requires, or 0 for
// TopologyUnknown.
func (t Topology) NodeCount() int {
	switch t {
	case Line2:
		return 2
	case Tri3:
		return 3
	case Quad4:
		return 4
	case Tet4:
		return 4
	case Tet10:
		return 10
	case Hex8:
		return 8
	default:
		return 0
	}
}

// Dimension returns the manifold dimension of the topology (1 for lines,
// 2 for shells, 3 for solids).
func (t Topology) Dimension() int {
	switch t {
	case Line2:
		return 1
	case Tri3, Quad4:
		return 2
	case Tet4, Tet10, Hex8:
		return 3
	default:
		return 0
	}
}

// IsLine reports whether the topology is a 2-node line.
func (t Topology) IsLine() bool { return t == Line2 }

// IsSolid reports whether the topology is a 3D solid cell.
func (t Topology) IsSolid() bool { return t.Dimension() == 3 }

// Node is a mesh vertex. Positions are immutable once loaded.
type Node struct {
	ID       int    `json:"id"`
	Position r3.Vec `json:"position"`
}

// Element is a finite element with its connectivity and material tag.
// Whether an element acts as reinforcement or continuum is decided by the
// Classifier from topology and material, never stored on the element.
type Element struct {
	ID         int      `json:"id"`
	Topology   Topology `json:"topology"`
	NodeIDs    []int    `json:"node_ids"`
	MaterialID int      `json:"material_id"`
}

// Mesh is the read-only input collection for one coupling run.
type Mesh struct {
	Nodes    map[int]Node
	Elements []Element
}

// NewMesh builds a Mesh from node and element slices. Duplicate node or
// element IDs and connectivity lengths that contradict the declared topology
// are rejected; dangling node references are permitted here and surfaced
// later by the Classifier as per-node diagnostics.
func NewMesh(nodes []Node, elements []Element) (*Mesh, error) {
	m := &Mesh{
		Nodes:    make(map[int]Node, len(nodes)),
		Elements: make([]Element, 0, len(elements)),
	}
	for _, n := range nodes {
		if _, dup := m.Nodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %d", n.ID)
		}
		m.Nodes[n.ID] = n
	}
	seen := make(map[int]bool, len(elements))
	for _, e := range elements {
		if seen[e.ID] {
			return nil, fmt.Errorf("duplicate element id %d", e.ID)
		}
		if want := e.Topology.NodeCount(); want > 0 && len(e.NodeIDs) != want {
			return nil, fmt.Errorf("element %d: %s needs %d nodes, got %d",
				e.ID, e.Topology, want, len(e.NodeIDs))
		}
		seen[e.ID] = true
		m.Elements = append(m.Elements, e)
	}
	return m, nil
}

// Node returns the node with the given id.
func (m *Mesh) Node(id int) (Node, bool) {
	n, ok := m.Nodes[id]
	return n, ok
}

// NodeCount returns the number of nodes in the mesh.
func (m *Mesh) NodeCount() int { return len(m.Nodes) }

// ElementCount returns the number of elements in the mesh.
func (m *Mesh) ElementCount() int { return len(m.Elements) }

// NodeIDs returns all node ids in ascending order.
func (m *Mesh) NodeIDs() []int {
	ids := make([]int, 0, len(m.Nodes))
	for id := range m.Nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Positions resolves a connectivity list to coordinates. It fails on the
// first id without a coordinate entry.
func (m *Mesh) Positions(ids []int) ([]r3.Vec, error) {
	out := make([]r3.Vec, len(ids))
	for i, id := range ids {
		n, ok := m.Nodes[id]
		if !ok {
			return nil, fmt.Errorf("node %d has no coordinate entry", id)
		}
		out[i] = n.Position
	}
	return out, nil
}
