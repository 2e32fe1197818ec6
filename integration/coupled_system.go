// Package integration adapts the coupling engine's output into the form the
// downstream equilibrium solver consumes: a mesh paired with flat per-DOF
// constraint records.
package integration

import (
	"context"
	"log/slog"

	"github.com/xinfuwcx/DeepCAD-sub002/coupling"
	"github.com/xinfuwcx/DeepCAD-sub002/mesh"
)

// CoupledSystem binds a mesh to the constraint set produced for it.
type CoupledSystem struct {
	Mesh   *mesh.Mesh
	Result *coupling.Result
}

// Couple runs one coupling pass over the mesh and wraps the output. The
// error mirrors Engine.Run: when it wraps coupling.ErrNoCoupling the system
// is still returned with its completed report for post-mortem inspection.
func Couple(ctx context.Context, m *mesh.Mesh, cfg coupling.Config, log *slog.Logger) (*CoupledSystem, error) {
	engine, err := coupling.NewEngine(m, cfg, log)
	if err != nil {
		return nil, err
	}
	res, err := engine.Run(ctx)
	if res == nil {
		return nil, err
	}
	return &CoupledSystem{Mesh: m, Result: res}, err
}

// Report returns the run report.
func (s *CoupledSystem) Report() *coupling.Report {
	return s.Result.Report
}

// DOFRecords returns one record per coupled degree of freedom, ordered by
// ascending slave node and X, Y, Z within each node.
func (s *CoupledSystem) DOFRecords() []coupling.DOFConstraint {
	return coupling.ExpandPerDOF(s.Result.Constraints)
}

// ConstraintFor returns the constraint emitted for one slave node.
func (s *CoupledSystem) ConstraintFor(nodeID int) (coupling.Constraint, bool) {
	for _, c := range s.Result.Constraints {
		if c.SlaveNode == nodeID {
			return c, true
		}
	}
	return coupling.Constraint{}, false
}

// Verify re-checks every constraint and the report consistency. Solvers
// call it once before assembling the global system.
func (s *CoupledSystem) Verify() error {
	for i := range s.Result.Constraints {
		if err := s.Result.Constraints[i].Verify(); err != nil {
			return err
		}
	}
	return s.Result.Report.Verify()
}
