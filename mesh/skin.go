package mesh

import (
	"fmt"
	"sort"
)

// Triangle is one face of a boundary skin, referencing mesh node ids.
type Triangle struct {
	A, B, C int
}

// Skin is the boundary surface of a solid element set: every face that
// belongs to exactly one element. Quadrilateral hexahedron faces are split
// into two triangles so the skin is always a triangle soup.
type Skin struct {
	Triangles []Triangle
}

// Local face tables. Tet10 reuses the Tet4 table because its corner nodes
// come first in the connectivity.
var tetFaces = [4][3]int{
	{0, 1, 2},
	{0, 1, 3},
	{1, 2, 3},
	{0, 2, 3},
}

var hexFaces = [6][4]int{
	{0, 1, 2, 3},
	{4, 5, 6, 7},
	{0, 1, 5, 4},
	{1, 2, 6, 5},
	{2, 3, 7, 6},
	{3, 0, 4, 7},
}

// ExtractSkin computes the boundary skin of the solid elements in the given
// set. Non-solid elements are ignored. Faces are matched by their canonical
// sorted vertex signature; a signature seen exactly once is a boundary face.
// Output order follows element order, so the skin is deterministic.
func ExtractSkin(elements []Element) (*Skin, error) {
	count := make(map[string]int)
	for _, e := range elements {
		if !e.Topology.IsSolid() {
			continue
		}
		faces, err := elementFaces(e)
		if err != nil {
			return nil, err
		}
		for _, f := range faces {
			count[faceSignature(f)]++
		}
	}

	skin := &Skin{}
	for _, e := range elements {
		if !e.Topology.IsSolid() {
			continue
		}
		faces, _ := elementFaces(e)
		for _, f := range faces {
			if count[faceSignature(f)] != 1 {
				continue
			}
			switch len(f) {
			case 3:
				skin.Triangles = append(skin.Triangles, Triangle{f[0], f[1], f[2]})
			case 4:
				skin.Triangles = append(skin.Triangles,
					Triangle{f[0], f[1], f[2]},
					Triangle{f[0], f[2], f[3]})
			}
		}
	}
	return skin, nil
}

// elementFaces returns the global node ids of each face of a solid element.
func elementFaces(e Element) ([][]int, error) {
	switch e.Topology {
	case Tet4, Tet10:
		faces := make([][]int, 0, 4)
		for _, lf := range tetFaces {
			faces = append(faces, []int{e.NodeIDs[lf[0]], e.NodeIDs[lf[1]], e.NodeIDs[lf[2]]})
		}
		return faces, nil
	case Hex8:
		faces := make([][]int, 0, 6)
		for _, lf := range hexFaces {
			faces = append(faces, []int{e.NodeIDs[lf[0]], e.NodeIDs[lf[1]], e.NodeIDs[lf[2]], e.NodeIDs[lf[3]]})
		}
		return faces, nil
	default:
		return nil, fmt.Errorf("element %d: no face table for topology %s", e.ID, e.Topology)
	}
}

// faceSignature builds the canonical key for a face: its vertex ids sorted
// ascending. Two elements share a face exactly when their signatures match.
func faceSignature(ids []int) string {
	s := make([]int, len(ids))
	copy(s, ids)
	sort.Ints(s)
	key := ""
	for i, v := range s {
		if i > 0 {
			key += "-"
		}
		key += fmt.Sprintf("%d", v)
	}
	return key
}

// NodeIDs returns the distinct node ids referenced by the skin, ascending.
func (s *Skin) NodeIDs() []int {
	set := make(map[int]bool)
	for _, t := range s.Triangles {
		set[t.A] = true
		set[t.B] = true
		set[t.C] = true
	}
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Verify checks that every skin vertex has a coordinate entry in the mesh.
func (s *Skin) Verify(m *Mesh) error {
	for _, id := range s.NodeIDs() {
		if _, ok := m.Nodes[id]; !ok {
			return fmt.Errorf("skin references node %d with no coordinate entry", id)
		}
	}
	return nil
}
