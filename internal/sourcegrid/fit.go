package sourcegrid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/snyder18/mixcoatl/internal/geometry"
)

// Aggregate selects how per-source nearest-node distances are combined
// into a single objective value.
type Aggregate int

const (
	// AggregateMedian uses the median mismatch (robust default).
	AggregateMedian Aggregate = iota
	// AggregateSum uses the total mismatch.
	AggregateSum
)

// FitConfig controls the two-stage grid fit.
type FitConfig struct {
	// Brute enables the coarse bounded search over the lattice origin
	// before local refinement.
	Brute bool
	// VaryTheta frees the rotation during the refinement stage. The
	// spacings always stay fixed; they are well constrained by the
	// pitch estimate and are not re-fit.
	VaryTheta bool
	// Aggregate combines per-source mismatches into the objective.
	Aggregate Aggregate
	// MaxIterations bounds the local minimizer.
	MaxIterations int
}

// DefaultFitConfig returns the standard fit settings.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		Brute:         true,
		VaryTheta:     true,
		Aggregate:     AggregateMedian,
		MaxIterations: 500,
	}
}

// Objective evaluates the nearest-neighbor mismatch between the ideal
// grid generated by params and the observed sources: for every
// observed source the distance to its nearest lattice node is
// computed, and the distances are aggregated. Lower is better.
//
// The direction matters: measuring from observed sources to the grid,
// rather than the reverse, keeps the objective robust against extra or
// missing detections.
func Objective(params GridParams, obs geometry.PointSet, agg Aggregate) (float64, error) {
	grid, err := params.MakeIdealGrid()
	if err != nil {
		return 0, err
	}
	_, dists, err := geometry.NearestNeighbors(obs, grid)
	if err != nil {
		return 0, err
	}
	if agg == AggregateSum {
		total := 0.0
		for _, d := range dists {
			total += d
		}
		return total, nil
	}
	return median(dists), nil
}

// FitGrid refines the lattice origin (and optionally rotation) of seed
// against the observed centroids, minimizing the nearest-neighbor
// mismatch. Spacings and grid dimensions are taken from seed and held
// fixed.
//
// Stage one (when cfg.Brute is set) scans origin candidates on a
// bounded lattice: Y0 within one row spacing of the seed and X0 within
// one column spacing, stepping a quarter spacing in each direction,
// with rotation fixed. The coarse stage always scores candidates by
// total mismatch regardless of cfg.Aggregate: under noise the median
// can prefer a lattice shifted by a whole spacing, because the edge
// row such a shift strands falls past the median rank, while the sum
// charges every stranded source. Stage two runs a derivative-free
// local minimizer (Nelder-Mead) from the stage-one winner with the
// origin free and, when cfg.VaryTheta is set, the rotation free as
// well, using cfg.Aggregate.
//
// Each stage consumes the previous stage's parameters and returns a
// new value; seed is never mutated. When the local minimizer stops
// without converging, the last iterate is still returned, wrapped with
// ErrNotConverged so the caller can decide whether to accept it.
func FitGrid(seed GridParams, obs geometry.PointSet, cfg FitConfig) (GridParams, error) {
	if err := seed.Validate(); err != nil {
		return seed, err
	}
	valid, _ := obs.FilterValid()
	if valid.Len() == 0 {
		return seed, fmt.Errorf("%w: no valid sources to fit against", ErrInsufficientData)
	}

	params := seed
	if cfg.Brute {
		params = coarseSearch(params, valid)
	}
	return refine(params, valid, cfg)
}

// coarseSearch scans a discretized origin neighborhood and returns the
// parameters minimizing the total mismatch. Rotation and spacings are
// held at their seed values. The sum is used here even when the
// refinement aggregate is the median: every candidate in the scan is
// misaligned by construction, and the median lets a one-spacing alias
// hide its stranded edge row past the median rank.
func coarseSearch(seed GridParams, obs geometry.PointSet) GridParams {
	const steps = 4 // quarter-spacing resolution per side

	best := seed
	bestVal, err := Objective(seed, obs, AggregateSum)
	if err != nil {
		return seed
	}
	for iy := -steps; iy <= steps; iy++ {
		y0 := seed.Y0 + float64(iy)*seed.RowSpacing/steps
		for ix := -steps; ix <= steps; ix++ {
			x0 := seed.X0 + float64(ix)*seed.ColSpacing/steps
			cand := seed.WithOrigin(y0, x0)
			val, err := Objective(cand, obs, AggregateSum)
			if err != nil {
				continue
			}
			if val < bestVal {
				best = cand
				bestVal = val
			}
		}
	}
	return best
}

// refine runs the continuous local minimization stage.
func refine(start GridParams, obs geometry.PointSet, cfg FitConfig) (GridParams, error) {
	fromVec := func(x []float64) GridParams {
		p := start.WithOrigin(x[0], x[1])
		if cfg.VaryTheta {
			p = p.WithTheta(x[2])
		}
		return p
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			val, err := Objective(fromVec(x), obs, cfg.Aggregate)
			if err != nil {
				// Invalid candidates are repelled, not fatal.
				return math.Inf(1)
			}
			return val
		},
	}

	x0 := []float64{start.Y0, start.X0}
	if cfg.VaryTheta {
		x0 = append(x0, start.Theta)
	}

	settings := &optimize.Settings{}
	if cfg.MaxIterations > 0 {
		settings.MajorIterations = cfg.MaxIterations
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if result == nil {
		return start, fmt.Errorf("%w: %v", ErrNotConverged, err)
	}

	fitted := fromVec(result.X)
	if err != nil {
		return fitted, fmt.Errorf("%w: %v", ErrNotConverged, err)
	}
	switch result.Status {
	case optimize.FunctionConvergence, optimize.MethodConverge,
		optimize.StepConvergence, optimize.GradientThreshold,
		optimize.FunctionThreshold, optimize.Success:
		return fitted, nil
	default:
		return fitted, fmt.Errorf("%w: minimizer stopped with status %v", ErrNotConverged, result.Status)
	}
}
