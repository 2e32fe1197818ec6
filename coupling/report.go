package coupling

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

// ErrNoCoupling is the only run-level failure: not a single reinforcement
// node could be coupled by any strategy, so downstream solving would be
// meaningless. Degraded-but-nonzero coverage is a warning, never an error.
var ErrNoCoupling = errors.New("no reinforcement node could be coupled")

// DiagKind tags the outcome for one reinforcement node.
type DiagKind int

const (
	// DiagWeighted means a weighted constraint was emitted.
	DiagWeighted DiagKind = iota
	// DiagFallback means a skin-embedding constraint was emitted.
	DiagFallback
	// DiagUncoupled means no strategy could produce a constraint.
	DiagUncoupled
	// DiagMissingNode means the node id had no coordinate entry; a
	// data-integrity failure of the upstream mesh, fatal for that node.
	DiagMissingNode
)

// String returns the diagnostic tag.
func (k DiagKind) String() string {
	switch k {
	case DiagWeighted:
		return "weighted"
	case DiagFallback:
		return "fallback"
	case DiagUncoupled:
		return "uncoupled"
	case DiagMissingNode:
		return "missing_node"
	default:
		return fmt.Sprintf("DiagKind(%d)", int(k))
	}
}

// NodeDiagnostic is the per-node record exposed for downstream debugging.
type NodeDiagnostic struct {
	NodeID int      `json:"node_id"`
	Kind   DiagKind `json:"kind"`
	// CandidateCount is the number of usable candidates after the final
	// search attempt, excluding the node itself.
	CandidateCount int `json:"candidate_count"`
	// Retries is how many radius escalations the search needed.
	Retries int `json:"retries"`
	// NearestDistance is the distance to the nearest master for weighted
	// nodes and the skin projection distance for fallback nodes; -1 when
	// no constraint was produced.
	NearestDistance float64 `json:"nearest_distance"`
	// ChainID identifies the anchor chain the node belongs to; -1 when the
	// node is not part of any chain.
	ChainID int    `json:"chain_id"`
	Detail  string `json:"detail,omitempty"`
}

// DistanceStats summarizes nearest-master distances across coupled nodes.
type DistanceStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Mean   float64 `json:"mean"`
	Max    float64 `json:"max"`
	P95    float64 `json:"p95"`
	StdDev float64 `json:"std_dev"`
}

// ChainCoverage is per-anchor coverage: how many of a chain's nodes were
// coupled by either strategy.
type ChainCoverage struct {
	ChainID  int `json:"chain_id"`
	Total    int `json:"total"`
	Coupled  int `json:"coupled"`
	Fallback int `json:"fallback"`
}

// Report is the run summary. It is created once at the end of a run and is
// read-only afterward.
type Report struct {
	RunID       string           `json:"run_id"`
	Total       int              `json:"total"`
	Coupled     int              `json:"coupled"`
	Fallback    int              `json:"fallback"`
	Uncoupled   int              `json:"uncoupled"`
	Missing     int              `json:"missing"`
	Coverage    float64          `json:"coverage"`
	Warnings    []string         `json:"warnings,omitempty"`
	Diagnostics []NodeDiagnostic `json:"diagnostics"`
	Distances   DistanceStats    `json:"distances"`
	Chains      []ChainCoverage  `json:"chains,omitempty"`
	Duration    time.Duration    `json:"duration"`
}

// Verify checks the report's internal consistency.
func (r *Report) Verify() error {
	if r.Coupled+r.Fallback+r.Uncoupled+r.Missing != r.Total {
		return fmt.Errorf("report: counts %d+%d+%d+%d do not sum to total %d",
			r.Coupled, r.Fallback, r.Uncoupled, r.Missing, r.Total)
	}
	if len(r.Diagnostics) != r.Total {
		return fmt.Errorf("report: %d diagnostics for %d nodes", len(r.Diagnostics), r.Total)
	}
	if r.Coverage < 0 || r.Coverage > 1 {
		return fmt.Errorf("report: coverage %g outside [0,1]", r.Coverage)
	}
	if r.Total > 0 {
		want := float64(r.Coupled+r.Fallback) / float64(r.Total)
		if !scalar.EqualWithinAbs(r.Coverage, want, 1e-12) {
			return fmt.Errorf("report: coverage %g does not match counts (%g)", r.Coverage, want)
		}
	}
	return nil
}

// Reporter aggregates per-node diagnostics into the final report.
type Reporter struct {
	threshold float64
	log       *slog.Logger
}

// NewReporter returns a reporter that warns when coverage drops below the
// given threshold.
func NewReporter(threshold float64, log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{threshold: threshold, log: log}
}

// Finalize computes counts, coverage, distance statistics, and per-chain
// coverage. The returned error is ErrNoCoupling (wrapped) when nothing
// could be coupled; the report is complete and usable in either case.
func (rp *Reporter) Finalize(runID string, diags []NodeDiagnostic, warnings []string, duration time.Duration) (*Report, error) {
	r := &Report{
		RunID:       runID,
		Total:       len(diags),
		Warnings:    append([]string(nil), warnings...),
		Diagnostics: diags,
		Duration:    duration,
	}

	chainAgg := make(map[int]*ChainCoverage)
	for _, d := range diags {
		switch d.Kind {
		case DiagWeighted:
			r.Coupled++
		case DiagFallback:
			r.Fallback++
		case DiagUncoupled:
			r.Uncoupled++
		case DiagMissingNode:
			r.Missing++
		}
		if d.ChainID >= 0 {
			cc := chainAgg[d.ChainID]
			if cc == nil {
				cc = &ChainCoverage{ChainID: d.ChainID}
				chainAgg[d.ChainID] = cc
			}
			cc.Total++
			switch d.Kind {
			case DiagWeighted:
				cc.Coupled++
			case DiagFallback:
				cc.Fallback++
			}
		}
	}
	if r.Total > 0 {
		r.Coverage = float64(r.Coupled+r.Fallback) / float64(r.Total)
	}
	r.Distances = distanceStats(diags)
	r.Chains = sortedChains(chainAgg)

	if r.Total > 0 && r.Coverage < rp.threshold {
		w := fmt.Sprintf("coverage %.1f%% below threshold %.1f%%: %d of %d reinforcement nodes coupled",
			100*r.Coverage, 100*rp.threshold, r.Coupled+r.Fallback, r.Total)
		r.Warnings = append(r.Warnings, w)
		rp.log.Warn("degraded coupling coverage",
			"coverage", r.Coverage, "threshold", rp.threshold,
			"coupled", r.Coupled, "fallback", r.Fallback, "total", r.Total)
	}

	if r.Total > 0 && r.Coupled+r.Fallback == 0 {
		return r, fmt.Errorf("%w: %d node(s), %d missing, %d uncoupled",
			ErrNoCoupling, r.Total, r.Missing, r.Uncoupled)
	}
	return r, nil
}

// distanceStats summarizes the nearest-master distances of coupled nodes.
func distanceStats(diags []NodeDiagnostic) DistanceStats {
	var ds []float64
	for _, d := range diags {
		if (d.Kind == DiagWeighted || d.Kind == DiagFallback) && d.NearestDistance >= 0 {
			ds = append(ds, d.NearestDistance)
		}
	}
	if len(ds) == 0 {
		return DistanceStats{}
	}
	sort.Float64s(ds)
	stddev := 0.0
	if len(ds) > 1 {
		stddev = stat.StdDev(ds, nil)
	}
	return DistanceStats{
		Count:  len(ds),
		Min:    floats.Min(ds),
		Mean:   stat.Mean(ds, nil),
		Max:    floats.Max(ds),
		P95:    stat.Quantile(0.95, stat.Empirical, ds, nil),
		StdDev: stddev,
	}
}

func sortedChains(agg map[int]*ChainCoverage) []ChainCoverage {
	out := make([]ChainCoverage, 0, len(agg))
	for _, cc := range agg {
		out = append(out, *cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}
