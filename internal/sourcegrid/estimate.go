package sourcegrid

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/snyder18/mixcoatl/internal/geometry"
)

// Statistic selects the central-tendency estimator used to aggregate
// per-source neighbor samples.
type Statistic int

const (
	// StatMedian aggregates with the sample median (robust default).
	StatMedian Statistic = iota
	// StatMean aggregates with the arithmetic mean.
	StatMean
)

// EstimateConfig controls the initial parameter estimation.
type EstimateConfig struct {
	// Neighbors is the number of nearest neighbors examined per
	// source. The lattice geometry makes 4 the natural choice.
	Neighbors int
	// PitchTolerance is the maximum deviation (pixels) of a neighbor
	// distance from the characteristic pitch before the pair is
	// rejected as a non-lattice edge.
	PitchTolerance float64
	// Statistic aggregates the surviving samples.
	Statistic Statistic
}

// DefaultEstimateConfig returns the standard estimator settings.
func DefaultEstimateConfig() EstimateConfig {
	return EstimateConfig{
		Neighbors:      4,
		PitchTolerance: 10.0,
		Statistic:      StatMedian,
	}
}

// Estimate holds coarse lattice parameters derived from raw centroid
// data, before any origin information is known.
type Estimate struct {
	RowSpacing float64
	ColSpacing float64
	Theta      float64

	// Sample counts that survived outlier rejection, for diagnostics.
	ThetaSamples int
	RowSamples   int
	ColSamples   int
}

// EstimateParams derives seed values for row spacing, column spacing
// and rotation from a raw centroid point set, using per-source
// nearest-neighbor angle and distance statistics. No grid hypothesis
// is required.
//
// For each source the Neighbors nearest other sources are classified
// by their position relative to the source: an up-and-right neighbor
// contributes a distance and an angle sample, a down-and-right
// neighbor contributes a distance sample in the orthogonal direction.
// Neighbor distances further than PitchTolerance from the median
// 4-nearest distance are rejected as defects or spurious detections.
//
// The lattice has a 90-degree rotational ambiguity; when the
// aggregated angle lands at or above pi/4 the natural axes are
// swapped: pi/2 is subtracted from theta and the row/column spacing
// assignments are exchanged, so the returned rotation is always the
// smallest-magnitude representative.
//
// Sources with missing coordinates are removed up front. Returns
// ErrInsufficientData when no valid angle or spacing samples survive.
func EstimateParams(obs geometry.PointSet, cfg EstimateConfig) (Estimate, error) {
	if cfg.Neighbors <= 0 {
		cfg.Neighbors = 4
	}
	if cfg.PitchTolerance <= 0 {
		cfg.PitchTolerance = 10.0
	}

	valid, _ := obs.FilterValid()
	n := valid.Len()
	if n < cfg.Neighbors+1 {
		return Estimate{}, fmt.Errorf("%w: %d valid sources, need at least %d",
			ErrInsufficientData, n, cfg.Neighbors+1)
	}

	indices, distances, err := geometry.CoordinateDistances(valid, valid)
	if err != nil {
		return Estimate{}, err
	}

	// Median distance to the 4 nearest other sources across the whole
	// set: a robust characteristic lattice pitch. Rank 0 is the
	// self-distance and is skipped.
	all := make([]float64, 0, n*cfg.Neighbors)
	for i := 0; i < n; i++ {
		all = append(all, distances[i][1:cfg.Neighbors+1]...)
	}
	medDist := median(all)

	var dist1, dist2, thetas []float64
	for i := 0; i < n; i++ {
		src := valid.At(i)
		for j := 1; j <= cfg.Neighbors; j++ {
			d := distances[i][j]
			if math.Abs(d-medDist) > cfg.PitchTolerance {
				continue
			}
			nb := valid.At(indices[i][j])
			if nb.X <= src.X {
				continue
			}
			if nb.Y > src.Y {
				// Quadrant 1 neighbor: lattice edge along one axis.
				dist1 = append(dist1, d)
				thetas = append(thetas, math.Atan((nb.Y-src.Y)/(nb.X-src.X)))
			} else {
				// Quadrant 4 neighbor: edge along the other axis.
				dist2 = append(dist2, d)
			}
		}
	}

	if len(thetas) == 0 {
		return Estimate{}, fmt.Errorf("%w: no valid angle samples", ErrInsufficientData)
	}
	if len(dist1) == 0 || len(dist2) == 0 {
		return Estimate{}, fmt.Errorf("%w: no valid spacing samples", ErrInsufficientData)
	}

	theta := aggregate(thetas, cfg.Statistic)
	est := Estimate{
		ThetaSamples: len(thetas),
		RowSamples:   len(dist2),
		ColSamples:   len(dist1),
	}
	if theta >= math.Pi/4 {
		// Axes swapped: pick the smallest-rotation representative and
		// exchange which distance family maps to rows vs columns.
		est.Theta = theta - math.Pi/2
		est.RowSpacing = aggregate(dist1, cfg.Statistic)
		est.ColSpacing = aggregate(dist2, cfg.Statistic)
		est.RowSamples, est.ColSamples = est.ColSamples, est.RowSamples
	} else {
		est.Theta = theta
		est.RowSpacing = aggregate(dist2, cfg.Statistic)
		est.ColSpacing = aggregate(dist1, cfg.Statistic)
	}
	return est, nil
}

func aggregate(values []float64, s Statistic) float64 {
	if s == StatMean {
		return stat.Mean(values, nil)
	}
	return median(values)
}

// median returns the sample median, averaging the two middle elements
// for even-length input. The input slice is not modified.
func median(values []float64) float64 {
	v := append([]float64(nil), values...)
	sort.Float64s(v)
	m := len(v) / 2
	if len(v)%2 == 1 {
		return v[m]
	}
	return (v[m-1] + v[m]) / 2
}
