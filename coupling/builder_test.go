package coupling

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/xinfuwcx/DeepCAD-sub002/mesh"
	"github.com/xinfuwcx/DeepCAD-sub002/spatial"
)

// stubAssigner lets tests exercise the builder's safety nets.
type stubAssigner struct {
	masters []MasterWeight
	err     error
}

func (s stubAssigner) Assign(r3.Vec, []spatial.Candidate) ([]MasterWeight, error) {
	return s.masters, s.err
}

func TestNewBuilderValidation(t *testing.T) {
	idw, _ := NewInverseDistance(2, 0.01)

	_, err := NewBuilder(nil, 2)
	require.Error(t, err)
	_, err = NewBuilder(idw, 0)
	require.Error(t, err)
	_, err = NewBuilder(idw, 2)
	require.NoError(t, err)
}

func TestBuildWeightedConstraint(t *testing.T) {
	idw, _ := NewInverseDistance(2, 0.01)
	b, err := NewBuilder(idw, 2)
	require.NoError(t, err)

	node := mesh.Node{ID: 100}
	c, ok := b.Build(node, cands(1, 1, 2, 1, 3, 1, 4, 1))
	require.True(t, ok)
	require.NoError(t, c.Verify())

	assert.Equal(t, 100, c.SlaveNode)
	assert.Equal(t, StrategyWeighted, c.Strategy)
	assert.Equal(t, AllDOFs(), c.DOFs)
	require.Len(t, c.Masters, 4)
	for _, m := range c.Masters {
		assert.InDelta(t, 0.25, m.Weight, 1e-12)
	}
}

func TestBuildRefusesBelowMinimum(t *testing.T) {
	idw, _ := NewInverseDistance(2, 0.01)
	b, _ := NewBuilder(idw, 2)

	_, ok := b.Build(mesh.Node{ID: 100}, cands(1, 1))
	assert.False(t, ok)
	_, ok = b.Build(mesh.Node{ID: 100}, nil)
	assert.False(t, ok)
}

func TestBuildRefusesOnAssignerError(t *testing.T) {
	b, _ := NewBuilder(stubAssigner{err: fmt.Errorf("boom")}, 1)
	_, ok := b.Build(mesh.Node{ID: 100}, cands(1, 1, 2, 1))
	assert.False(t, ok)
}

func TestBuildDropsReintroducedSlave(t *testing.T) {
	// A reselecting strategy hands back the slave itself; the builder must
	// strip it. With only one master left the weighted invariant fails and
	// the node is routed to the fallback.
	b, _ := NewBuilder(stubAssigner{masters: []MasterWeight{
		{Node: 100, Weight: 0.6},
		{Node: 1, Weight: 0.4},
	}}, 1)

	_, ok := b.Build(mesh.Node{ID: 100}, cands(1, 1, 2, 1))
	assert.False(t, ok)

	// With two non-slave masters remaining the constraint survives with
	// renormalized weights.
	b, _ = NewBuilder(stubAssigner{masters: []MasterWeight{
		{Node: 100, Weight: 0.5},
		{Node: 1, Weight: 0.25},
		{Node: 2, Weight: 0.25},
	}}, 1)

	c, ok := b.Build(mesh.Node{ID: 100}, cands(1, 1, 2, 1))
	require.True(t, ok)
	require.Len(t, c.Masters, 2)
	assert.InDelta(t, 0.5, c.Masters[0].Weight, 1e-12)
	assert.InDelta(t, 0.5, c.Masters[1].Weight, 1e-12)
	require.NoError(t, c.Verify())
}

func TestWithoutSlave(t *testing.T) {
	in := cands(1, 1, 100, 2, 3, 3)

	out := withoutSlave(in, 100)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].NodeID)
	assert.Equal(t, 3, out[1].NodeID)

	// Absent slave: the input slice is returned untouched.
	same := withoutSlave(in, 999)
	assert.Equal(t, &in[0], &same[0])
}

func TestDropSlave(t *testing.T) {
	t.Run("renormalizes", func(t *testing.T) {
		masters := dropSlave([]MasterWeight{
			{Node: 100, Weight: 0.5},
			{Node: 1, Weight: 0.25},
			{Node: 2, Weight: 0.25},
		}, 100)
		require.Len(t, masters, 2)
		assert.InDelta(t, 0.5, masters[0].Weight, 1e-12)
		assert.InDelta(t, 0.5, masters[1].Weight, 1e-12)
	})

	t.Run("all weight on slave", func(t *testing.T) {
		masters := dropSlave([]MasterWeight{
			{Node: 100, Weight: 1},
			{Node: 1, Weight: 0},
		}, 100)
		require.Len(t, masters, 1)
		assert.Equal(t, 0.0, masters[0].Weight)
	})

	t.Run("slave absent", func(t *testing.T) {
		in := []MasterWeight{{Node: 1, Weight: 1}}
		assert.Equal(t, in, dropSlave(in, 100))
	})
}
