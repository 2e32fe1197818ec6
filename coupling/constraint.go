package coupling

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// DOF is a translational degree of freedom.
type DOF int

const (
	DOFX DOF = iota
	DOFY
	DOFZ
)

// String returns the axis name.
func (d DOF) String() string {
	switch d {
	case DOFX:
		return "X"
	case DOFY:
		return "Y"
	case DOFZ:
		return "Z"
	default:
		return fmt.Sprintf("DOF(%d)", int(d))
	}
}

// AllDOFs returns the three translational DOFs in canonical order.
func AllDOFs() []DOF {
	return []DOF{DOFX, DOFY, DOFZ}
}

// Strategy records which coupling path produced a constraint.
type Strategy int

const (
	// StrategyWeighted ties the slave to a weighted set of nearby
	// continuum nodes.
	StrategyWeighted Strategy = iota
	// StrategyEmbeddedFallback ties the slave to its projection onto the
	// continuum boundary skin.
	StrategyEmbeddedFallback
)

// String returns the strategy tag.
func (s Strategy) String() string {
	switch s {
	case StrategyWeighted:
		return "WEIGHTED"
	case StrategyEmbeddedFallback:
		return "EMBEDDED_FALLBACK"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// WeightTolerance bounds how far master weights may drift from summing to
// one before a constraint is rejected.
const WeightTolerance = 1e-6

// MasterWeight is one master node and its interpolation weight.
type MasterWeight struct {
	Node   int     `json:"node"`
	Weight float64 `json:"weight"`
}

// Constraint ties a slave reinforcement node to a weighted combination of
// master continuum nodes over a set of DOFs. Weights sum to one; the slave
// never appears among the masters; a weighted constraint carries at least
// two masters while a fallback constraint may carry a single one.
type Constraint struct {
	SlaveNode int            `json:"slave_node"`
	DOFs      []DOF          `json:"dofs"`
	Masters   []MasterWeight `json:"masters"`
	Strategy  Strategy       `json:"strategy"`
}

// Verify checks the constraint invariants.
func (c *Constraint) Verify() error {
	if len(c.DOFs) == 0 {
		return fmt.Errorf("constraint on node %d: no DOFs", c.SlaveNode)
	}
	if len(c.Masters) == 0 {
		return fmt.Errorf("constraint on node %d: no masters", c.SlaveNode)
	}
	if c.Strategy == StrategyWeighted && len(c.Masters) < 2 {
		return fmt.Errorf("constraint on node %d: weighted strategy with %d master(s)",
			c.SlaveNode, len(c.Masters))
	}
	sum := 0.0
	for _, m := range c.Masters {
		if m.Node == c.SlaveNode {
			return fmt.Errorf("constraint on node %d: slave appears among masters", c.SlaveNode)
		}
		if m.Weight < 0 || math.IsNaN(m.Weight) {
			return fmt.Errorf("constraint on node %d: invalid weight %g for master %d",
				c.SlaveNode, m.Weight, m.Node)
		}
		sum += m.Weight
	}
	if !scalar.EqualWithinAbs(sum, 1, WeightTolerance) {
		return fmt.Errorf("constraint on node %d: weights sum to %.9f", c.SlaveNode, sum)
	}
	return nil
}

// DOFConstraint is the flat per-DOF form handed to the solver: one record
// per coupled degree of freedom.
type DOFConstraint struct {
	SlaveNode int            `json:"slave_node"`
	DOF       DOF            `json:"dof"`
	Masters   []MasterWeight `json:"masters"`
	Strategy  Strategy       `json:"strategy"`
}

// PerDOF expands the constraint into one record per DOF. The master slice
// is shared, not copied; callers must treat it as read-only.
func (c *Constraint) PerDOF() []DOFConstraint {
	out := make([]DOFConstraint, len(c.DOFs))
	for i, d := range c.DOFs {
		out[i] = DOFConstraint{
			SlaveNode: c.SlaveNode,
			DOF:       d,
			Masters:   c.Masters,
			Strategy:  c.Strategy,
		}
	}
	return out
}

// ExpandPerDOF flattens a constraint collection into solver-facing per-DOF
// records, preserving order.
func ExpandPerDOF(constraints []Constraint) []DOFConstraint {
	out := make([]DOFConstraint, 0, 3*len(constraints))
	for i := range constraints {
		out = append(out, constraints[i].PerDOF()...)
	}
	return out
}
