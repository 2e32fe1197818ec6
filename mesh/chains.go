package mesh

import "sort"

// Chain is a connected run of reinforcement line elements, typically one
// physical anchor or bolt. Endpoints are the degree-1 nodes; a chain with
// a node of degree greater than two is marked branching, which usually
// indicates a modeling error upstream.
type Chain struct {
	ID         int
	ElementIDs []int
	NodeIDs    []int
	Endpoints  []int
	Branching  bool
}

// BuildChains groups line elements into connected components over shared
// nodes. Chain ids are assigned in order of each component's smallest
// element id, so the result is deterministic for a given element set.
func BuildChains(elements []Element) []Chain {
	// Node adjacency and node -> element incidence over line elements only.
	// Adjacency holds distinct neighbors: duplicate elements over the same
	// node pair count once toward node degree.
	adj := make(map[int]map[int]bool)
	incident := make(map[int][]int)
	byID := make(map[int]Element, len(elements))
	for _, e := range elements {
		if !e.Topology.IsLine() || len(e.NodeIDs) != 2 {
			continue
		}
		a, b := e.NodeIDs[0], e.NodeIDs[1]
		link(adj, a, b)
		link(adj, b, a)
		incident[a] = append(incident[a], e.ID)
		incident[b] = append(incident[b], e.ID)
		byID[e.ID] = e
	}
	if len(byID) == 0 {
		return nil
	}

	// BFS over elements through shared nodes.
	elemIDs := make([]int, 0, len(byID))
	for id := range byID {
		elemIDs = append(elemIDs, id)
	}
	sort.Ints(elemIDs)

	visited := make(map[int]bool, len(byID))
	var chains []Chain
	for _, seed := range elemIDs {
		if visited[seed] {
			continue
		}
		comp := []int{seed}
		visited[seed] = true
		for queue := []int{seed}; len(queue) > 0; {
			id := queue[0]
			queue = queue[1:]
			for _, nid := range byID[id].NodeIDs {
				for _, other := range incident[nid] {
					if !visited[other] {
						visited[other] = true
						comp = append(comp, other)
						queue = append(queue, other)
					}
				}
			}
		}
		chains = append(chains, buildChain(len(chains), comp, byID, adj))
	}
	return chains
}

func link(adj map[int]map[int]bool, from, to int) {
	if adj[from] == nil {
		adj[from] = make(map[int]bool)
	}
	adj[from][to] = true
}

func buildChain(id int, elemIDs []int, byID map[int]Element, adj map[int]map[int]bool) Chain {
	sort.Ints(elemIDs)
	nodeSet := make(map[int]bool)
	for _, eid := range elemIDs {
		for _, nid := range byID[eid].NodeIDs {
			nodeSet[nid] = true
		}
	}
	ch := Chain{ID: id, ElementIDs: elemIDs}
	for nid := range nodeSet {
		ch.NodeIDs = append(ch.NodeIDs, nid)
	}
	sort.Ints(ch.NodeIDs)
	for _, nid := range ch.NodeIDs {
		switch deg := len(adj[nid]); {
		case deg == 1:
			ch.Endpoints = append(ch.Endpoints, nid)
		case deg > 2:
			ch.Branching = true
		}
	}
	return ch
}

// ChainMembership maps every chain node id to its chain id.
func ChainMembership(chains []Chain) map[int]int {
	member := make(map[int]int)
	for _, ch := range chains {
		for _, nid := range ch.NodeIDs {
			member[nid] = ch.ID
		}
	}
	return member
}
