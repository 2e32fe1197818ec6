package spatial

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// SearchParams bounds one candidate search. Radius is the starting search
// radius; while fewer than MinCandidates nodes are found the radius is
// multiplied by GrowthFactor, at most MaxRetries times. The result is capped
// at the MaxCandidates nearest hits.
type SearchParams struct {
	Radius        float64
	GrowthFactor  float64
	MaxRetries    int
	MaxCandidates int
	MinCandidates int
}

// SearchResult carries the candidates found for one query point along with
// the radius that produced them and how many escalations were needed.
type SearchResult struct {
	Candidates []Candidate
	Radius     float64
	Retries    int
}

// Searcher runs bounded-escalation candidate searches against a NodeIndex.
// It is stateless beyond its parameters and safe for concurrent use.
type Searcher struct {
	index  *NodeIndex
	params SearchParams
}

// NewSearcher validates the parameters and returns a searcher.
func NewSearcher(index *NodeIndex, params SearchParams) (*Searcher, error) {
	if index == nil {
		return nil, fmt.Errorf("searcher: nil index")
	}
	if params.Radius <= 0 {
		return nil, fmt.Errorf("searcher: radius must be positive, got %g", params.Radius)
	}
	if params.GrowthFactor < 1 {
		return nil, fmt.Errorf("searcher: growth factor must be >= 1, got %g", params.GrowthFactor)
	}
	if params.MaxRetries < 0 {
		return nil, fmt.Errorf("searcher: max retries must be >= 0, got %d", params.MaxRetries)
	}
	if params.MaxCandidates < 1 {
		return nil, fmt.Errorf("searcher: max candidates must be >= 1, got %d", params.MaxCandidates)
	}
	if params.MinCandidates < 1 {
		return nil, fmt.Errorf("searcher: min candidates must be >= 1, got %d", params.MinCandidates)
	}
	return &Searcher{index: index, params: params}, nil
}

// Find searches around p. The escalation loop keeps all semantics of a plain
// radius query: results stay sorted by distance then id, and growing the
// radius can only add candidates, never remove them.
func (s *Searcher) Find(p r3.Vec) SearchResult {
	radius := s.params.Radius
	var (
		cands   []Candidate
		retries int
	)
	for attempt := 0; ; attempt++ {
		cands = s.index.Within(p, radius)
		if len(cands) >= s.params.MinCandidates || attempt == s.params.MaxRetries {
			retries = attempt
			break
		}
		radius *= s.params.GrowthFactor
	}
	if len(cands) > s.params.MaxCandidates {
		cands = cands[:s.params.MaxCandidates]
	}
	return SearchResult{Candidates: cands, Radius: radius, Retries: retries}
}

// Params returns the searcher's parameters.
func (s *Searcher) Params() SearchParams { return s.params }
