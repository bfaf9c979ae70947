package sourcegrid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snyder18/mixcoatl/internal/geometry"
)

// lattice generates noiseless centroids from the given parameters.
func lattice(t *testing.T, p GridParams) geometry.PointSet {
	t.Helper()
	grid, err := p.MakeIdealGrid()
	require.NoError(t, err)
	return grid
}

func TestEstimateParams_RecoversLattice(t *testing.T) {
	p := GridParams{
		RowSpacing: 100, ColSpacing: 110,
		Theta: 0.05,
		Y0:    500, X0: 500,
		Rows: 9, Cols: 9,
	}

	est, err := EstimateParams(lattice(t, p), DefaultEstimateConfig())
	require.NoError(t, err)

	assert.InDelta(t, 100.0, est.RowSpacing, 1e-9)
	assert.InDelta(t, 110.0, est.ColSpacing, 1e-9)
	assert.InDelta(t, 0.05, est.Theta, 1e-9)
	assert.Positive(t, est.ThetaSamples)
	assert.Positive(t, est.RowSamples)
	assert.Positive(t, est.ColSamples)
}

func TestEstimateParams_AxisSwap(t *testing.T) {
	// A rotation past 45 degrees is indistinguishable from a smaller
	// rotation with the row and column axes exchanged; the estimator
	// must return the smallest-magnitude representative.
	theta := 80.0 * math.Pi / 180
	p := GridParams{
		RowSpacing: 100, ColSpacing: 110,
		Theta: theta,
		Y0:    500, X0: 500,
		Rows: 9, Cols: 9,
	}

	est, err := EstimateParams(lattice(t, p), DefaultEstimateConfig())
	require.NoError(t, err)

	assert.InDelta(t, theta-math.Pi/2, est.Theta, 1e-9)
	assert.Less(t, math.Abs(est.Theta), math.Pi/4)
	// Spacing assignments are exchanged along with the axes.
	assert.InDelta(t, 110.0, est.RowSpacing, 1e-9)
	assert.InDelta(t, 100.0, est.ColSpacing, 1e-9)
}

func TestEstimateParams_RejectsOutliers(t *testing.T) {
	p := GridParams{
		RowSpacing: 100, ColSpacing: 100,
		Theta: 0.05,
		Y0:    500, X0: 500,
		Rows: 9, Cols: 9,
	}
	grid := lattice(t, p)

	// A spurious detection between lattice nodes: close enough to
	// disturb nearest-neighbor sets, far enough from the characteristic
	// pitch to be rejected.
	ys := append(append([]float64(nil), grid.Y...), 530)
	xs := append(append([]float64(nil), grid.X...), 540)

	est, err := EstimateParams(geometry.NewPointSet(ys, xs), DefaultEstimateConfig())
	require.NoError(t, err)

	assert.InDelta(t, 100.0, est.RowSpacing, 0.5)
	assert.InDelta(t, 100.0, est.ColSpacing, 0.5)
	assert.InDelta(t, 0.05, est.Theta, 0.01)
}

func TestEstimateParams_IgnoresInvalidSources(t *testing.T) {
	p := GridParams{
		RowSpacing: 100, ColSpacing: 100,
		Theta: 0.05,
		Y0:    500, X0: 500,
		Rows: 7, Cols: 7,
	}
	grid := lattice(t, p)

	nan := math.NaN()
	ys := append(append([]float64(nil), grid.Y...), nan, 123)
	xs := append(append([]float64(nil), grid.X...), 456, nan)

	est, err := EstimateParams(geometry.NewPointSet(ys, xs), DefaultEstimateConfig())
	require.NoError(t, err)
	assert.InDelta(t, 100.0, est.RowSpacing, 1e-9)
	assert.InDelta(t, 100.0, est.ColSpacing, 1e-9)
}

func TestEstimateParams_InsufficientData(t *testing.T) {
	tests := []struct {
		name string
		obs  geometry.PointSet
	}{
		{"empty", geometry.PointSet{}},
		{"fewer than neighbors+1", geometry.NewPointSet(
			[]float64{0, 0, 100, 100},
			[]float64{0, 100, 0, 100},
		)},
		{"all invalid", geometry.NewPointSet(
			[]float64{math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()},
			[]float64{1, 2, 3, 4, 5},
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EstimateParams(tt.obs, DefaultEstimateConfig())
			assert.ErrorIs(t, err, ErrInsufficientData)
		})
	}
}

func TestEstimateParams_MeanStatistic(t *testing.T) {
	p := GridParams{
		RowSpacing: 100, ColSpacing: 100,
		Theta: 0.05,
		Y0:    500, X0: 500,
		Rows: 7, Cols: 7,
	}
	cfg := DefaultEstimateConfig()
	cfg.Statistic = StatMean

	est, err := EstimateParams(lattice(t, p), cfg)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, est.RowSpacing, 1e-9)
	assert.InDelta(t, 0.05, est.Theta, 1e-9)
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"odd", []float64{3, 1, 2}, 2},
		{"even averages middle pair", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, median(tt.values))
		})
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	median(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}
