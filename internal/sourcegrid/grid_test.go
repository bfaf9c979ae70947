package sourcegrid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridParamsValidate(t *testing.T) {
	valid := GridParams{RowSpacing: 10, ColSpacing: 10, Rows: 3, Cols: 3}

	tests := []struct {
		name   string
		mutate func(p GridParams) GridParams
		ok     bool
	}{
		{"valid", func(p GridParams) GridParams { return p }, true},
		{"zero rows", func(p GridParams) GridParams { p.Rows = 0; return p }, false},
		{"negative cols", func(p GridParams) GridParams { p.Cols = -1; return p }, false},
		{"zero row spacing", func(p GridParams) GridParams { p.RowSpacing = 0; return p }, false},
		{"negative col spacing", func(p GridParams) GridParams { p.ColSpacing = -5; return p }, false},
		{"nan spacing", func(p GridParams) GridParams { p.RowSpacing = math.NaN(); return p }, false},
		{"nan theta", func(p GridParams) GridParams { p.Theta = math.NaN(); return p }, false},
		{"inf origin", func(p GridParams) GridParams { p.X0 = math.Inf(1); return p }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(valid).Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidParams)
			}
		})
	}
}

func TestMakeIdealGrid_Unrotated(t *testing.T) {
	p := GridParams{
		RowSpacing: 10, ColSpacing: 20,
		Y0: 100, X0: 200,
		Rows: 3, Cols: 3,
	}

	grid, err := p.MakeIdealGrid()
	require.NoError(t, err)
	require.Equal(t, 9, grid.Len())

	// Row-major ordering: node (r, c) at index r*Cols + c.
	center := grid.At(1*3 + 1)
	assert.InDelta(t, 100.0, center.Y, 1e-12)
	assert.InDelta(t, 200.0, center.X, 1e-12)

	first := grid.At(0)
	assert.InDelta(t, 90.0, first.Y, 1e-12)
	assert.InDelta(t, 180.0, first.X, 1e-12)

	last := grid.At(8)
	assert.InDelta(t, 110.0, last.Y, 1e-12)
	assert.InDelta(t, 220.0, last.X, 1e-12)
}

func TestMakeIdealGrid_RotationPreservesCenter(t *testing.T) {
	p := GridParams{
		RowSpacing: 10, ColSpacing: 10,
		Theta: 0.3,
		Y0:    50, X0: 75,
		Rows: 5, Cols: 5,
	}

	grid, err := p.MakeIdealGrid()
	require.NoError(t, err)

	center := grid.At(2*5 + 2)
	assert.InDelta(t, 50.0, center.Y, 1e-12)
	assert.InDelta(t, 75.0, center.X, 1e-12)

	// Rotation is rigid: nearest-neighbor spacing is unchanged.
	a := grid.At(2*5 + 2)
	b := grid.At(2*5 + 3)
	assert.InDelta(t, 10.0, math.Hypot(b.Y-a.Y, b.X-a.X), 1e-12)
}

func TestMakeIdealGrid_Deterministic(t *testing.T) {
	p := GridParams{
		RowSpacing: 9.7, ColSpacing: 10.3,
		Theta: 0.01,
		Y0:    123.456, X0: 654.321,
		Rows: 7, Cols: 7,
	}

	g1, err := p.MakeIdealGrid()
	require.NoError(t, err)
	g2, err := p.MakeIdealGrid()
	require.NoError(t, err)

	// Identical parameters produce bit-identical output.
	assert.Equal(t, g1.Y, g2.Y)
	assert.Equal(t, g1.X, g2.X)
}

func TestMakeIdealGrid_Invalid(t *testing.T) {
	_, err := GridParams{Rows: 0, Cols: 5, RowSpacing: 1, ColSpacing: 1}.MakeIdealGrid()
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestGridParamsWith(t *testing.T) {
	p := GridParams{RowSpacing: 10, ColSpacing: 10, Theta: 0.1, Y0: 1, X0: 2, Rows: 3, Cols: 3}

	q := p.WithOrigin(5, 6).WithTheta(0.2)

	assert.Equal(t, 5.0, q.Y0)
	assert.Equal(t, 6.0, q.X0)
	assert.Equal(t, 0.2, q.Theta)
	// The receiver is unchanged.
	assert.Equal(t, 1.0, p.Y0)
	assert.Equal(t, 0.1, p.Theta)
}
