package mesh

import "gonum.org/v1/gonum/spatial/r3"

// TestMeshes provides small canonical meshes shared by tests across
// packages. All solids use material 1, anchors material 13.
type TestMeshes struct {
	// SingleTet is one Tet4 spanning the unit corner.
	SingleTet *Mesh
	// CubeTets is a 2x2x2 cube decomposed into five tetrahedra.
	CubeTets *Mesh
	// CubeHex is the same cube as a single Hex8.
	CubeHex *Mesh
	// AnchoredCube is CubeTets plus a three-segment anchor line through
	// the cube interior (nodes 101-104, elements 101-103).
	AnchoredCube *Mesh
}

// Cube corner ids 1..8 in Hex8 order: bottom face 1-2-3-4, top face 5-6-7-8.
func cubeNodes() []Node {
	return []Node{
		{ID: 1, Position: r3.Vec{X: 0, Y: 0, Z: 0}},
		{ID: 2, Position: r3.Vec{X: 2, Y: 0, Z: 0}},
		{ID: 3, Position: r3.Vec{X: 2, Y: 2, Z: 0}},
		{ID: 4, Position: r3.Vec{X: 0, Y: 2, Z: 0}},
		{ID: 5, Position: r3.Vec{X: 0, Y: 0, Z: 2}},
		{ID: 6, Position: r3.Vec{X: 2, Y: 0, Z: 2}},
		{ID: 7, Position: r3.Vec{X: 2, Y: 2, Z: 2}},
		{ID: 8, Position: r3.Vec{X: 0, Y: 2, Z: 2}},
	}
}

// Five-tet decomposition: four corner tets plus the central octahedral tet.
func cubeTetElements() []Element {
	return []Element{
		{ID: 1, Topology: Tet4, NodeIDs: []int{1, 2, 4, 5}, MaterialID: 1},
		{ID: 2, Topology: Tet4, NodeIDs: []int{2, 3, 4, 7}, MaterialID: 1},
		{ID: 3, Topology: Tet4, NodeIDs: []int{2, 5, 6, 7}, MaterialID: 1},
		{ID: 4, Topology: Tet4, NodeIDs: []int{4, 5, 7, 8}, MaterialID: 1},
		{ID: 5, Topology: Tet4, NodeIDs: []int{2, 4, 5, 7}, MaterialID: 1},
	}
}

func anchorNodes() []Node {
	return []Node{
		{ID: 101, Position: r3.Vec{X: 1, Y: 1, Z: 0.2}},
		{ID: 102, Position: r3.Vec{X: 1, Y: 1, Z: 0.7}},
		{ID: 103, Position: r3.Vec{X: 1, Y: 1, Z: 1.3}},
		{ID: 104, Position: r3.Vec{X: 1, Y: 1, Z: 1.8}},
	}
}

func anchorElements() []Element {
	return []Element{
		{ID: 101, Topology: Line2, NodeIDs: []int{101, 102}, MaterialID: 13},
		{ID: 102, Topology: Line2, NodeIDs: []int{102, 103}, MaterialID: 13},
		{ID: 103, Topology: Line2, NodeIDs: []int{103, 104}, MaterialID: 13},
	}
}

// GetStandardTestMeshes constructs the shared fixtures. It panics on
// construction failure since the fixtures are compile-time constants in
// all but name.
func GetStandardTestMeshes() TestMeshes {
	single, err := NewMesh(
		[]Node{
			{ID: 1, Position: r3.Vec{X: 0, Y: 0, Z: 0}},
			{ID: 2, Position: r3.Vec{X: 1, Y: 0, Z: 0}},
			{ID: 3, Position: r3.Vec{X: 0, Y: 1, Z: 0}},
			{ID: 4, Position: r3.Vec{X: 0, Y: 0, Z: 1}},
		},
		[]Element{{ID: 1, Topology: Tet4, NodeIDs: []int{1, 2, 3, 4}, MaterialID: 1}},
	)
	if err != nil {
		panic(err)
	}

	cubeTets, err := NewMesh(cubeNodes(), cubeTetElements())
	if err != nil {
		panic(err)
	}

	cubeHex, err := NewMesh(cubeNodes(), []Element{
		{ID: 1, Topology: Hex8, NodeIDs: []int{1, 2, 3, 4, 5, 6, 7, 8}, MaterialID: 1},
	})
	if err != nil {
		panic(err)
	}

	anchored, err := NewMesh(
		append(cubeNodes(), anchorNodes()...),
		append(cubeTetElements(), anchorElements()...),
	)
	if err != nil {
		panic(err)
	}

	return TestMeshes{
		SingleTet:    single,
		CubeTets:     cubeTets,
		CubeHex:      cubeHex,
		AnchoredCube: anchored,
	}
}

// BlockMesh builds a structured nx*ny*nz grid of Hex8 cells with the given
// spacing, node ids starting at 1, element ids starting at 1.
func BlockMesh(nx, ny, nz int, spacing float64, materialID int) *Mesh {
	nodeID := func(i, j, k int) int {
		return 1 + i + j*(nx+1) + k*(nx+1)*(ny+1)
	}
	var nodes []Node
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				nodes = append(nodes, Node{
					ID: nodeID(i, j, k),
					Position: r3.Vec{
						X: float64(i) * spacing,
						Y: float64(j) * spacing,
						Z: float64(k) * spacing,
					},
				})
			}
		}
	}
	var elements []Element
	eid := 1
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				elements = append(elements, Element{
					ID:       eid,
					Topology: Hex8,
					NodeIDs: []int{
						nodeID(i, j, k), nodeID(i+1, j, k), nodeID(i+1, j+1, k), nodeID(i, j+1, k),
						nodeID(i, j, k+1), nodeID(i+1, j, k+1), nodeID(i+1, j+1, k+1), nodeID(i, j+1, k+1),
					},
					MaterialID: materialID,
				})
				eid++
			}
		}
	}
	m, err := NewMesh(nodes, elements)
	if err != nil {
		panic(err)
	}
	return m
}

// AnchorLine builds a straight run of Line2 elements from a to b with the
// given number of segments. Node ids start at firstNodeID, element ids at
// firstElementID.
func AnchorLine(firstNodeID, firstElementID int, a, b r3.Vec, segments, materialID int) ([]Node, []Element) {
	if segments < 1 {
		segments = 1
	}
	nodes := make([]Node, segments+1)
	for i := 0; i <= segments; i++ {
		t := float64(i) / float64(segments)
		nodes[i] = Node{
			ID:       firstNodeID + i,
			Position: r3.Add(a, r3.Scale(t, r3.Sub(b, a))),
		}
	}
	elements := make([]Element, segments)
	for i := 0; i < segments; i++ {
		elements[i] = Element{
			ID:         firstElementID + i,
			Topology:   Line2,
			NodeIDs:    []int{firstNodeID + i, firstNodeID + i + 1},
			MaterialID: materialID,
		}
	}
	return nodes, elements
}
