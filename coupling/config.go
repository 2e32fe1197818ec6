// Package coupling implements the spatial constraint-coupling engine: it
// links reinforcement line elements (anchors, rock bolts) to a surrounding
// continuum mesh by synthesizing interpolation-weighted multi-point
// constraints, with a boundary-skin embedding as the fallback strategy.
package coupling

import (
	"fmt"
	"runtime"

	"github.com/xinfuwcx/DeepCAD-sub002/spatial"
)

// WeightingKind selects the master-weight strategy.
type WeightingKind int

const (
	// WeightingInverseDistance weights candidate nodes by inverse distance.
	WeightingInverseDistance WeightingKind = iota
	// WeightingShapeFunction interpolates inside the enclosing continuum
	// element using barycentric coordinates, falling back to inverse
	// distance when the query point lies outside every element.
	WeightingShapeFunction
)

// String returns the strategy name.
func (k WeightingKind) String() string {
	switch k {
	case WeightingInverseDistance:
		return "inverse_distance"
	case WeightingShapeFunction:
		return "shape_function"
	default:
		return fmt.Sprintf("WeightingKind(%d)", int(k))
	}
}

// Default parameter values. SearchRadius and MaxCandidates follow the
// values proven out on excavation models with anchor spacings of a few
// meters; the rest bound the escalation and weighting behavior.
const (
	DefaultSearchRadius             = 20.0
	DefaultMaxCandidates            = 8
	DefaultRadiusGrowthFactor       = 1.5
	DefaultMaxRadiusRetries         = 2
	DefaultWeightingExponent        = 2.0
	DefaultMinCandidatesForWeighted = 2
	DefaultCoverageWarningThreshold = 0.8
	DefaultDistanceFloor            = 1e-2
)

// Config is the immutable run configuration. The zero value of every field
// except ReinforcementMaterialIDs is replaced by its default in Validate;
// an empty material id set is legal and means nothing will be coupled.
type Config struct {
	// ReinforcementMaterialIDs selects which line elements are anchors.
	ReinforcementMaterialIDs []int

	// SearchRadius is the initial candidate search radius in length units.
	SearchRadius float64
	// MaxCandidates caps how many masters a weighted constraint may have.
	MaxCandidates int
	// RadiusGrowthFactor multiplies the radius on each search escalation.
	RadiusGrowthFactor float64
	// MaxRadiusRetries bounds the number of escalations per node.
	MaxRadiusRetries int
	// WeightingExponent is the inverse-distance exponent p in 1/d^p.
	WeightingExponent float64
	// MinCandidatesForWeighted is the smallest candidate set that still
	// produces a weighted constraint; below it the node takes the fallback.
	MinCandidatesForWeighted int
	// CoverageWarningThreshold flags the run as degraded when the coupled
	// fraction falls below it.
	CoverageWarningThreshold float64
	// DistanceFloor is the epsilon below which a candidate distance counts
	// as coincident and the weight vector collapses onto that candidate.
	DistanceFloor float64

	// Weighting selects the master-weight strategy.
	Weighting WeightingKind
	// Workers bounds the number of concurrent coupling goroutines.
	// Zero means one per CPU.
	Workers int
}

// DefaultConfig returns a config with every knob at its default.
func DefaultConfig(reinforcementMaterialIDs ...int) Config {
	cfg := Config{ReinforcementMaterialIDs: reinforcementMaterialIDs}
	// Validate cannot fail on a zero config.
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

// Validate fills zero values with defaults and rejects contradictory
// settings. It must be called (directly or via NewEngine) before use.
func (c *Config) Validate() error {
	if c.SearchRadius == 0 {
		c.SearchRadius = DefaultSearchRadius
	}
	if c.MaxCandidates == 0 {
		c.MaxCandidates = DefaultMaxCandidates
	}
	if c.RadiusGrowthFactor == 0 {
		c.RadiusGrowthFactor = DefaultRadiusGrowthFactor
	}
	if c.MaxRadiusRetries == 0 {
		c.MaxRadiusRetries = DefaultMaxRadiusRetries
	}
	if c.WeightingExponent == 0 {
		c.WeightingExponent = DefaultWeightingExponent
	}
	if c.MinCandidatesForWeighted == 0 {
		c.MinCandidatesForWeighted = DefaultMinCandidatesForWeighted
	}
	if c.CoverageWarningThreshold == 0 {
		c.CoverageWarningThreshold = DefaultCoverageWarningThreshold
	}
	if c.DistanceFloor == 0 {
		c.DistanceFloor = DefaultDistanceFloor
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}

	switch {
	case c.SearchRadius < 0:
		return fmt.Errorf("config: search radius must be positive, got %g", c.SearchRadius)
	case c.MaxCandidates < 1:
		return fmt.Errorf("config: max candidates must be >= 1, got %d", c.MaxCandidates)
	case c.RadiusGrowthFactor < 1:
		return fmt.Errorf("config: radius growth factor must be >= 1, got %g", c.RadiusGrowthFactor)
	case c.MaxRadiusRetries < 0:
		return fmt.Errorf("config: max radius retries must be >= 0, got %d", c.MaxRadiusRetries)
	case c.WeightingExponent < 0:
		return fmt.Errorf("config: weighting exponent must be positive, got %g", c.WeightingExponent)
	case c.MinCandidatesForWeighted < 1:
		return fmt.Errorf("config: min candidates for weighted must be >= 1, got %d", c.MinCandidatesForWeighted)
	case c.MinCandidatesForWeighted > c.MaxCandidates:
		return fmt.Errorf("config: min candidates %d exceeds max candidates %d",
			c.MinCandidatesForWeighted, c.MaxCandidates)
	case c.CoverageWarningThreshold < 0 || c.CoverageWarningThreshold > 1:
		return fmt.Errorf("config: coverage warning threshold must be in [0,1], got %g", c.CoverageWarningThreshold)
	case c.DistanceFloor < 0:
		return fmt.Errorf("config: distance floor must be positive, got %g", c.DistanceFloor)
	case c.Workers < 1:
		return fmt.Errorf("config: workers must be >= 1, got %d", c.Workers)
	case c.Weighting != WeightingInverseDistance && c.Weighting != WeightingShapeFunction:
		return fmt.Errorf("config: unknown weighting kind %d", int(c.Weighting))
	}
	return nil
}

// searchParams maps the config onto the spatial search contract.
func (c *Config) searchParams() spatial.SearchParams {
	return spatial.SearchParams{
		Radius:        c.SearchRadius,
		GrowthFactor:  c.RadiusGrowthFactor,
		MaxRetries:    c.MaxRadiusRetries,
		MaxCandidates: c.MaxCandidates,
		MinCandidates: c.MinCandidatesForWeighted,
	}
}
