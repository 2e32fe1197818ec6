package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id, a, b int) Element {
	return Element{ID: id, Topology: Line2, NodeIDs: []int{a, b}, MaterialID: 13}
}

func TestBuildChainsSingleAnchor(t *testing.T) {
	// 101 -- 102 -- 103 -- 104
	elements := []Element{line(1, 101, 102), line(2, 102, 103), line(3, 103, 104)}

	chains := BuildChains(elements)
	require.Len(t, chains, 1)

	ch := chains[0]
	assert.Equal(t, 0, ch.ID)
	assert.Equal(t, []int{1, 2, 3}, ch.ElementIDs)
	assert.Equal(t, []int{101, 102, 103, 104}, ch.NodeIDs)
	assert.Equal(t, []int{101, 104}, ch.Endpoints)
	assert.False(t, ch.Branching)
}

func TestBuildChainsTwoComponents(t *testing.T) {
	elements := []Element{
		line(10, 1, 2), line(11, 2, 3),
		line(20, 7, 8), line(21, 8, 9),
	}

	chains := BuildChains(elements)
	require.Len(t, chains, 2)

	// Chain ids follow the smallest member element id.
	assert.Equal(t, []int{10, 11}, chains[0].ElementIDs)
	assert.Equal(t, []int{20, 21}, chains[1].ElementIDs)
	assert.Equal(t, []int{1, 3}, chains[0].Endpoints)
	assert.Equal(t, []int{7, 9}, chains[1].Endpoints)
}

func TestBuildChainsBranching(t *testing.T) {
	// A T junction at node 2: three lines meet.
	elements := []Element{line(1, 1, 2), line(2, 2, 3), line(3, 2, 4)}

	chains := BuildChains(elements)
	require.Len(t, chains, 1)
	assert.True(t, chains[0].Branching)
	assert.Equal(t, []int{1, 3, 4}, chains[0].Endpoints)
}

func TestBuildChainsDuplicateSegments(t *testing.T) {
	// The same segment meshed twice: each node still has one distinct
	// neighbor, so both stay endpoints and nothing branches.
	elements := []Element{line(1, 1, 2), line(2, 1, 2)}

	chains := BuildChains(elements)
	require.Len(t, chains, 1)

	ch := chains[0]
	assert.Equal(t, []int{1, 2}, ch.ElementIDs)
	assert.Equal(t, []int{1, 2}, ch.Endpoints)
	assert.False(t, ch.Branching)

	// A duplicated run through a shared node: node 2 has two distinct
	// neighbors, not a branch.
	elements = []Element{line(1, 1, 2), line(2, 1, 2), line(3, 2, 3), line(4, 2, 3)}

	chains = BuildChains(elements)
	require.Len(t, chains, 1)
	assert.Equal(t, []int{1, 2, 3, 4}, chains[0].ElementIDs)
	assert.Equal(t, []int{1, 3}, chains[0].Endpoints)
	assert.False(t, chains[0].Branching)
}

func TestBuildChainsIgnoresNonLines(t *testing.T) {
	elements := []Element{
		{ID: 1, Topology: Tet4, NodeIDs: []int{1, 2, 3, 4}, MaterialID: 1},
		line(2, 10, 11),
	}

	chains := BuildChains(elements)
	require.Len(t, chains, 1)
	assert.Equal(t, []int{2}, chains[0].ElementIDs)
}

func TestBuildChainsEmpty(t *testing.T) {
	assert.Nil(t, BuildChains(nil))
	assert.Nil(t, BuildChains([]Element{{ID: 1, Topology: Tet4, NodeIDs: []int{1, 2, 3, 4}}}))
}

func TestBuildChainsDeterministic(t *testing.T) {
	// Same elements presented in a different order produce the same chains.
	forward := []Element{line(1, 1, 2), line(2, 2, 3), line(5, 20, 21)}
	backward := []Element{forward[2], forward[1], forward[0]}

	a := BuildChains(forward)
	b := BuildChains(backward)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i], b[i])
	}
}

func TestChainMembership(t *testing.T) {
	chains := BuildChains([]Element{line(1, 1, 2), line(7, 10, 11)})
	member := ChainMembership(chains)

	assert.Equal(t, 0, member[1])
	assert.Equal(t, 0, member[2])
	assert.Equal(t, 1, member[10])
	assert.Equal(t, 1, member[11])
	_, ok := member[99]
	assert.False(t, ok)
}
