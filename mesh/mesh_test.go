package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestTopologyProperties(t *testing.T) {
	testCases := []struct {
		topo      Topology
		nodes     int
		dimension int
		line      bool
		solid     bool
	}{
		{Line2, 2, 1, true, false},
		{Tri3, 3, 2, false, false},
		{Quad4, 4, 2, false, false},
		{Tet4, 4, 3, false, true},
		{Tet10, 10, 3, false, true},
		{Hex8, 8, 3, false, true},
		{TopologyUnknown, 0, 0, false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.topo.String(), func(t *testing.T) {
			assert.Equal(t, tc.nodes, tc.topo.NodeCount())
			assert.Equal(t, tc.dimension, tc.topo.Dimension())
			assert.Equal(t, tc.line, tc.topo.IsLine())
			assert.Equal(t, tc.solid, tc.topo.IsSolid())
		})
	}
}

func TestNewMeshValidation(t *testing.T) {
	n := func(id int) Node { return Node{ID: id} }

	t.Run("duplicate node id", func(t *testing.T) {
		_, err := NewMesh([]Node{n(1), n(1)}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate node id 1")
	})

	t.Run("duplicate element id", func(t *testing.T) {
		_, err := NewMesh(
			[]Node{n(1), n(2)},
			[]Element{
				{ID: 7, Topology: Line2, NodeIDs: []int{1, 2}},
				{ID: 7, Topology: Line2, NodeIDs: []int{2, 1}},
			},
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate element id 7")
	})

	t.Run("connectivity length mismatch", func(t *testing.T) {
		_, err := NewMesh(
			[]Node{n(1), n(2), n(3)},
			[]Element{{ID: 1, Topology: Tet4, NodeIDs: []int{1, 2, 3}}},
		)
		require.Error(t, err)
	})

	t.Run("dangling node reference allowed", func(t *testing.T) {
		m, err := NewMesh(
			[]Node{n(1), n(2)},
			[]Element{{ID: 1, Topology: Line2, NodeIDs: []int{1, 99}}},
		)
		require.NoError(t, err)
		assert.Equal(t, 1, m.ElementCount())
	})
}

func TestMeshAccessors(t *testing.T) {
	tm := GetStandardTestMeshes()
	m := tm.AnchoredCube

	assert.Equal(t, 12, m.NodeCount())
	assert.Equal(t, 8, m.ElementCount())

	ids := m.NodeIDs()
	require.Len(t, ids, 12)
	assert.True(t, ids[0] == 1 && ids[11] == 104)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}

	pos, err := m.Positions([]int{101, 104})
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 1, Y: 1, Z: 0.2}, pos[0])
	assert.Equal(t, r3.Vec{X: 1, Y: 1, Z: 1.8}, pos[1])

	_, err = m.Positions([]int{1, 9999})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "9999")
}

func TestBlockMesh(t *testing.T) {
	m := BlockMesh(2, 2, 2, 1.0, 1)
	assert.Equal(t, 27, m.NodeCount())
	assert.Equal(t, 8, m.ElementCount())
	for _, e := range m.Elements {
		assert.Equal(t, Hex8, e.Topology)
		assert.Len(t, e.NodeIDs, 8)
	}

	// Far corner of the block.
	n, ok := m.Node(27)
	require.True(t, ok)
	assert.Equal(t, r3.Vec{X: 2, Y: 2, Z: 2}, n.Position)
}

func TestAnchorLine(t *testing.T) {
	nodes, elements := AnchorLine(200, 300, r3.Vec{}, r3.Vec{X: 0, Y: 0, Z: 3}, 3, 13)
	require.Len(t, nodes, 4)
	require.Len(t, elements, 3)

	assert.Equal(t, r3.Vec{X: 0, Y: 0, Z: 1}, nodes[1].Position)
	assert.Equal(t, []int{200, 201}, elements[0].NodeIDs)
	assert.Equal(t, 13, elements[2].MaterialID)
	assert.Equal(t, Line2, elements[1].Topology)
}
