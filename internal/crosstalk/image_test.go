package crosstalk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantImage(rows, cols int, v float64) Image {
	im := NewImage(rows, cols)
	for i := range im.Pix {
		im.Pix[i] = v
	}
	return im
}

// gaussianSpot paints a Gaussian blob of the given amplitude and sigma
// onto a zeroed image.
func gaussianSpot(rows, cols, cy, cx int, amplitude, sigma float64) Image {
	im := NewImage(rows, cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			dy, dx := float64(y-cy), float64(x-cx)
			im.Set(y, x, amplitude*math.Exp(-(dy*dy+dx*dx)/(2*sigma*sigma)))
		}
	}
	return im
}

func TestStack(t *testing.T) {
	a := constantImage(2, 3, 2)
	b := constantImage(2, 3, 4)

	out, err := Stack([]Image{a, b}, 1.5)
	require.NoError(t, err)
	require.Equal(t, 2, out.Rows)
	require.Equal(t, 3, out.Cols)
	for _, v := range out.Pix {
		assert.InDelta(t, 4.5, v, 1e-12) // mean 3 times gain 1.5
	}
}

func TestStack_Errors(t *testing.T) {
	_, err := Stack(nil, 1)
	assert.ErrorIs(t, err, ErrEmptyStack)

	_, err = Stack([]Image{constantImage(2, 2, 1), constantImage(3, 2, 1)}, 1)
	assert.Error(t, err)
}

func TestGaussianSmooth_PreservesConstant(t *testing.T) {
	im := constantImage(16, 16, 7.5)
	out := GaussianSmooth(im, 3)
	for _, v := range out.Pix {
		assert.InDelta(t, 7.5, v, 1e-9)
	}
}

func TestGaussianSmooth_ZeroSigmaCopies(t *testing.T) {
	im := gaussianSpot(8, 8, 4, 4, 100, 1)
	out := GaussianSmooth(im, 0)
	assert.Equal(t, im.Pix, out.Pix)
	// A copy, not an alias.
	out.Set(0, 0, 999)
	assert.NotEqual(t, im.At(0, 0), out.At(0, 0))
}

func TestGaussianSmooth_ReducesPeak(t *testing.T) {
	im := gaussianSpot(32, 32, 16, 16, 1000, 2)
	out := GaussianSmooth(im, 2)

	py, px := Peak(out)
	assert.Equal(t, 16, py)
	assert.Equal(t, 16, px)
	assert.Less(t, out.At(16, 16), im.At(16, 16))
}

func TestPeak(t *testing.T) {
	im := NewImage(4, 5)
	im.Set(2, 3, 42)
	y, x := Peak(im)
	assert.Equal(t, 2, y)
	assert.Equal(t, 3, x)
}

func TestDiskMean(t *testing.T) {
	im := constantImage(10, 10, 3)
	assert.InDelta(t, 3.0, DiskMean(im, 5, 5, 2.5), 1e-12)

	// Radius so small no pixel falls inside the open disk.
	assert.True(t, math.IsNaN(DiskMean(im, 5, 5, 0)))
}

func TestMakeStamp_Centered(t *testing.T) {
	im := NewImage(100, 100)
	im.Set(50, 60, 5)

	st := MakeStamp(im, 50, 60, 20)
	require.Equal(t, 20, st.Rows)
	require.Equal(t, 20, st.Cols)
	assert.Equal(t, 40, st.Y0)
	assert.Equal(t, 50, st.X0)
	assert.Equal(t, 5.0, st.At(10, 10))
}

func TestMakeStamp_ClampedAtCorner(t *testing.T) {
	im := NewImage(100, 100)
	im.Set(0, 0, 9)

	st := MakeStamp(im, 2, 3, 20)
	require.Equal(t, 20, st.Rows)
	assert.Equal(t, 0, st.Y0)
	assert.Equal(t, 0, st.X0)
	assert.Equal(t, 9.0, st.At(0, 0))
}

func TestMakeStamp_ShrinksForSmallImage(t *testing.T) {
	im := constantImage(8, 12, 1)

	st := MakeStamp(im, 4, 6, 200)
	assert.Equal(t, 8, st.Rows)
	assert.Equal(t, 8, st.Cols)
}
