package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidPair(t *testing.T) {
	tests := []struct {
		name string
		y, x float64
		want bool
	}{
		{"both finite", 1.0, 2.0, true},
		{"zero is valid", 0.0, 0.0, true},
		{"nan y", math.NaN(), 2.0, false},
		{"nan x", 1.0, math.NaN(), false},
		{"both nan", math.NaN(), math.NaN(), false},
		{"positive inf", math.Inf(1), 2.0, false},
		{"negative inf", 1.0, math.Inf(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidPair(tt.y, tt.x))
		})
	}
}

func TestFilterValid(t *testing.T) {
	nan := math.NaN()
	p := NewPointSet(
		[]float64{1, nan, 3, 4, 5},
		[]float64{10, 20, nan, 40, 50},
	)

	valid, idx := p.FilterValid()

	require.Equal(t, 3, valid.Len())
	assert.Equal(t, []int{0, 3, 4}, idx)
	assert.Equal(t, []float64{1, 4, 5}, valid.Y)
	assert.Equal(t, []float64{10, 40, 50}, valid.X)
}

func TestFilterValid_AllValid(t *testing.T) {
	p := NewPointSet([]float64{1, 2}, []float64{3, 4})
	valid, idx := p.FilterValid()
	assert.Equal(t, 2, valid.Len())
	assert.Equal(t, []int{0, 1}, idx)
}

func TestFilterValid_Empty(t *testing.T) {
	valid, idx := PointSet{}.FilterValid()
	assert.Equal(t, 0, valid.Len())
	assert.Empty(t, idx)
}
