package coupling

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/xinfuwcx/DeepCAD-sub002/logx"
	"github.com/xinfuwcx/DeepCAD-sub002/mesh"
	"github.com/xinfuwcx/DeepCAD-sub002/spatial"
)

// Result is the output handed to the solver collaborator: the constraint
// collection in ascending slave-node order plus the run report.
type Result struct {
	Constraints []Constraint
	Report      *Report
}

// Engine runs one coupling pass over a mesh: classify, index, search,
// weight, build, fall back, report.
type Engine struct {
	m    *mesh.Mesh
	cfg  Config
	base *slog.Logger
	log  *slog.Logger
}

// NewEngine validates the configuration and binds the engine to a mesh.
// The mesh is treated as read-only for the lifetime of the engine.
func NewEngine(m *mesh.Mesh, cfg Config, log *slog.Logger) (*Engine, error) {
	if m == nil {
		return nil, fmt.Errorf("engine: nil mesh")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logx.Default()
	}
	return &Engine{
		m:    m,
		cfg:  cfg,
		base: log,
		log:  logx.ForComponent(log, "engine"),
	}, nil
}

// nodeResult is one worker's output for one reinforcement node. Workers
// write disjoint slice indices, so no locking is needed.
type nodeResult struct {
	constraint    Constraint
	hasConstraint bool
	diag          NodeDiagnostic
}

// Run executes the coupling pass. The returned error is non-nil only for a
// cancelled context, an unusable mesh, or ErrNoCoupling; in the latter case
// the Result still carries the completed report. Output is deterministic:
// identical mesh and config produce identical constraints regardless of the
// worker count.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()
	e.log.Info("coupling pass started",
		"run_id", runID,
		"nodes", e.m.NodeCount(),
		"elements", e.m.ElementCount(),
		"weighting", e.cfg.Weighting.String(),
		"workers", e.cfg.Workers)

	classifier := mesh.NewClassifier(e.cfg.ReinforcementMaterialIDs, logx.ForComponent(e.base, "classifier"))
	cls, err := classifier.Classify(e.m)
	if err != nil {
		return nil, err
	}

	chains := mesh.BuildChains(cls.Reinforcement)
	member := mesh.ChainMembership(chains)
	warnings := append([]string(nil), cls.Warnings...)
	for _, ch := range chains {
		if ch.Branching {
			warnings = append(warnings, fmt.Sprintf("anchor chain %d branches (a node joins more than two segments)", ch.ID))
		}
	}

	continuum := make([]mesh.Node, len(cls.ContinuumNodes))
	for i, id := range cls.ContinuumNodes {
		continuum[i], _ = e.m.Node(id)
	}
	index := spatial.NewNodeIndex(continuum)
	searcher, err := spatial.NewSearcher(index, e.cfg.searchParams())
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	builder, err := e.makeBuilder(cls)
	if err != nil {
		return nil, err
	}

	skin, err := mesh.ExtractSkin(cls.Continuum)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	projector, err := NewProjector(e.m, skin)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if n := projector.SkippedTriangles(); n > 0 {
		warnings = append(warnings, fmt.Sprintf("%d skin triangle(s) dropped: vertices without coordinates", n))
	}

	ids, missing := reinforcementWorkList(cls)
	results := make([]nodeResult, len(ids))

	if len(ids) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.Workers)
		chunk := (len(ids) + e.cfg.Workers - 1) / e.cfg.Workers
		for start := 0; start < len(ids); start += chunk {
			end := min(start+chunk, len(ids))
			g.Go(func() error {
				for i := start; i < end; i++ {
					if err := gctx.Err(); err != nil {
						return err
					}
					results[i] = e.coupleNode(ids[i], missing, member, searcher, builder, projector)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("coupling pass: %w", err)
		}
	}

	constraints := make([]Constraint, 0, len(ids))
	diags := make([]NodeDiagnostic, len(ids))
	for i, r := range results {
		diags[i] = r.diag
		if r.hasConstraint {
			constraints = append(constraints, r.constraint)
		}
	}

	reporter := NewReporter(e.cfg.CoverageWarningThreshold, logx.ForComponent(e.base, "reporter"))
	report, runErr := reporter.Finalize(runID, diags, warnings, time.Since(started))

	e.log.Info("coupling pass finished",
		"run_id", runID,
		"total", report.Total,
		"coupled", report.Coupled,
		"fallback", report.Fallback,
		"uncoupled", report.Uncoupled,
		"missing", report.Missing,
		"coverage", report.Coverage,
		"constraints", len(constraints),
		"duration", report.Duration)

	return &Result{Constraints: constraints, Report: report}, runErr
}

// makeBuilder wires the configured weighting strategy.
func (e *Engine) makeBuilder(cls *mesh.Classification) (*Builder, error) {
	idw, err := NewInverseDistance(e.cfg.WeightingExponent, e.cfg.DistanceFloor)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	var assigner WeightAssigner = idw
	if e.cfg.Weighting == WeightingShapeFunction {
		sf, err := NewShapeFunction(e.m, cls.Continuum, idw, e.cfg.MaxCandidates)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		assigner = sf
	}
	b, err := NewBuilder(assigner, e.cfg.MinCandidatesForWeighted)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return b, nil
}

// coupleNode processes a single reinforcement node: weighted first, then
// skin embedding, then uncoupled. Every path yields a diagnostic.
func (e *Engine) coupleNode(id int, missing map[int]bool, member map[int]int,
	searcher *spatial.Searcher, builder *Builder, projector *Projector) nodeResult {

	diag := NodeDiagnostic{NodeID: id, ChainID: chainIDOf(member, id), NearestDistance: -1}

	if missing[id] {
		diag.Kind = DiagMissingNode
		diag.Detail = "referenced by reinforcement elements but absent from the node table"
		return nodeResult{diag: diag}
	}

	node, _ := e.m.Node(id)
	sr := searcher.Find(node.Position)
	cands := withoutSlave(sr.Candidates, id)
	diag.CandidateCount = len(cands)
	diag.Retries = sr.Retries

	if c, ok := builder.Build(node, cands); ok {
		diag.Kind = DiagWeighted
		diag.NearestDistance = cands[0].Distance
		return nodeResult{constraint: c, hasConstraint: true, diag: diag}
	}

	if c, dist, ok := projector.Project(node); ok {
		diag.Kind = DiagFallback
		diag.NearestDistance = dist
		return nodeResult{constraint: c, hasConstraint: true, diag: diag}
	}

	diag.Kind = DiagUncoupled
	if len(cands) == 0 {
		diag.Detail = fmt.Sprintf("no continuum nodes within radius %.4g after %d escalation(s)", sr.Radius, sr.Retries)
	} else {
		diag.Detail = fmt.Sprintf("%d candidate(s) below the weighted minimum and no usable skin", len(cands))
	}
	return nodeResult{diag: diag}
}

// reinforcementWorkList merges present and missing reinforcement node ids
// into one ascending work list.
func reinforcementWorkList(cls *mesh.Classification) ([]int, map[int]bool) {
	ids := make([]int, 0, cls.TotalReinforcementNodes())
	ids = append(ids, cls.ReinforcementNodes...)
	ids = append(ids, cls.MissingReinforcementNodes...)
	sort.Ints(ids)
	missing := make(map[int]bool, len(cls.MissingReinforcementNodes))
	for _, id := range cls.MissingReinforcementNodes {
		missing[id] = true
	}
	return ids, missing
}

func chainIDOf(member map[int]int, id int) int {
	if cid, ok := member[id]; ok {
		return cid
	}
	return -1
}
