package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/xinfuwcx/DeepCAD-sub002/coupling"
	"github.com/xinfuwcx/DeepCAD-sub002/logx"
	"github.com/xinfuwcx/DeepCAD-sub002/mesh"
)

// excavationFixture is a 4x4x4 m soil block with three anchors: two fully
// buried diagonals and one that leaves the block after its first segment.
func excavationFixture(t *testing.T) *mesh.Mesh {
	t.Helper()
	block := mesh.BlockMesh(4, 4, 4, 1.0, 1)

	nodes := make([]mesh.Node, 0, block.NodeCount())
	for _, id := range block.NodeIDs() {
		n, _ := block.Node(id)
		nodes = append(nodes, n)
	}
	elems := append([]mesh.Element(nil), block.Elements...)

	aNodes, aElems := mesh.AnchorLine(1000, 2000,
		r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, r3.Vec{X: 3.5, Y: 3.5, Z: 3.5}, 6, 13)
	bNodes, bElems := mesh.AnchorLine(1100, 2100,
		r3.Vec{X: 0.5, Y: 3.5, Z: 0.5}, r3.Vec{X: 3.5, Y: 0.5, Z: 3.5}, 6, 13)
	cNodes, cElems := mesh.AnchorLine(1200, 2200,
		r3.Vec{X: 2, Y: 2, Z: 2}, r3.Vec{X: 2, Y: 2, Z: 30}, 4, 13)

	nodes = append(append(append(nodes, aNodes...), bNodes...), cNodes...)
	elems = append(append(append(elems, aElems...), bElems...), cElems...)

	m, err := mesh.NewMesh(nodes, elems)
	require.NoError(t, err)
	return m
}

func TestCoupleExcavationBlock(t *testing.T) {
	m := excavationFixture(t)
	cfg := coupling.Config{
		ReinforcementMaterialIDs: []int{13},
		SearchRadius:             2,
	}

	sys, err := Couple(context.Background(), m, cfg, logx.Discard())
	require.NoError(t, err)
	require.NoError(t, sys.Verify())

	r := sys.Report()
	// Anchors A and B carry 7 nodes each, C carries 5; the 4 escaped nodes
	// of C embed onto the block's top face.
	assert.Equal(t, 19, r.Total)
	assert.Equal(t, 15, r.Coupled)
	assert.Equal(t, 4, r.Fallback)
	assert.Equal(t, 0, r.Uncoupled)
	assert.Equal(t, 0, r.Missing)
	assert.InDelta(t, 1.0, r.Coverage, 1e-12)
	assert.Empty(t, r.Warnings)

	require.Len(t, r.Chains, 3)
	assert.Equal(t, coupling.ChainCoverage{ChainID: 0, Total: 7, Coupled: 7}, r.Chains[0])
	assert.Equal(t, coupling.ChainCoverage{ChainID: 1, Total: 7, Coupled: 7}, r.Chains[1])
	assert.Equal(t, coupling.ChainCoverage{ChainID: 2, Total: 5, Coupled: 1, Fallback: 4}, r.Chains[2])

	assert.Equal(t, 19, r.Distances.Count)
	// The furthest escaped node sits at z=30 and projects onto z=4.
	assert.InDelta(t, 26.0, r.Distances.Max, 1e-9)
	// Anchor nodes coincident with grid nodes couple at distance zero.
	assert.Equal(t, 0.0, r.Distances.Min)

	for _, c := range sys.Result.Constraints {
		if c.SlaveNode >= 1201 {
			assert.Equal(t, coupling.StrategyEmbeddedFallback, c.Strategy, "slave %d", c.SlaveNode)
		} else {
			assert.Equal(t, coupling.StrategyWeighted, c.Strategy, "slave %d", c.SlaveNode)
		}
	}
}

func TestCoupleGridCoincidentAnchorNode(t *testing.T) {
	// Anchor A passes exactly through grid node 63 at (2,2,2): the weight
	// vector collapses onto it.
	m := excavationFixture(t)
	sys, err := Couple(context.Background(), m,
		coupling.Config{ReinforcementMaterialIDs: []int{13}, SearchRadius: 2}, logx.Discard())
	require.NoError(t, err)

	c, ok := sys.ConstraintFor(1003)
	require.True(t, ok)
	sum := 0.0
	for _, mw := range c.Masters {
		sum += mw.Weight
		if mw.Node == 63 {
			assert.Equal(t, 1.0, mw.Weight)
		} else {
			assert.Equal(t, 0.0, mw.Weight)
		}
	}
	assert.InDelta(t, 1.0, sum, coupling.WeightTolerance)
}

func TestDOFRecordsExpansion(t *testing.T) {
	tm := mesh.GetStandardTestMeshes()
	sys, err := Couple(context.Background(), tm.AnchoredCube, coupling.DefaultConfig(13), logx.Discard())
	require.NoError(t, err)
	require.NoError(t, sys.Verify())

	recs := sys.DOFRecords()
	require.Len(t, recs, 12) // 4 slaves x 3 DOFs

	wantSlaves := []int{101, 101, 101, 102, 102, 102, 103, 103, 103, 104, 104, 104}
	wantDOFs := []coupling.DOF{coupling.DOFX, coupling.DOFY, coupling.DOFZ}
	for i, rec := range recs {
		assert.Equal(t, wantSlaves[i], rec.SlaveNode)
		assert.Equal(t, wantDOFs[i%3], rec.DOF)
		assert.NotEmpty(t, rec.Masters)
	}
}

func TestDOFRecordsReproduceUniformField(t *testing.T) {
	// Solver-side sanity: a uniform displacement applied to all masters is
	// recovered exactly on every slave DOF.
	sys, err := Couple(context.Background(), excavationFixture(t),
		coupling.Config{ReinforcementMaterialIDs: []int{13}, SearchRadius: 2}, logx.Discard())
	require.NoError(t, err)

	field := map[coupling.DOF]float64{
		coupling.DOFX: 0.1,
		coupling.DOFY: -0.2,
		coupling.DOFZ: 0.3,
	}
	for _, rec := range sys.DOFRecords() {
		got := 0.0
		for _, mw := range rec.Masters {
			got += mw.Weight * field[rec.DOF]
		}
		assert.InDeltaf(t, field[rec.DOF], got, 1e-6, "slave %d dof %s", rec.SlaveNode, rec.DOF)
	}
}

func TestConstraintForMissingSlave(t *testing.T) {
	tm := mesh.GetStandardTestMeshes()
	sys, err := Couple(context.Background(), tm.AnchoredCube, coupling.DefaultConfig(13), logx.Discard())
	require.NoError(t, err)

	_, ok := sys.ConstraintFor(999)
	assert.False(t, ok)
}

func TestCoupleSurfacesNoCoupling(t *testing.T) {
	m, err := mesh.NewMesh(
		[]mesh.Node{
			{ID: 100, Position: r3.Vec{}},
			{ID: 101, Position: r3.Vec{X: 1}},
		},
		[]mesh.Element{{ID: 100, Topology: mesh.Line2, NodeIDs: []int{100, 101}, MaterialID: 13}},
	)
	require.NoError(t, err)

	sys, err := Couple(context.Background(), m, coupling.DefaultConfig(13), logx.Discard())
	require.Error(t, err)
	assert.True(t, errors.Is(err, coupling.ErrNoCoupling))
	require.NotNil(t, sys)
	assert.Equal(t, 2, sys.Report().Uncoupled)
}

func TestCoupleRejectsBadConfig(t *testing.T) {
	tm := mesh.GetStandardTestMeshes()
	sys, err := Couple(context.Background(), tm.AnchoredCube,
		coupling.Config{SearchRadius: -1}, logx.Discard())
	require.Error(t, err)
	assert.Nil(t, sys)
}
