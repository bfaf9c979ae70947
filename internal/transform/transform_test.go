package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantX    float64
		wantY    float64
		wantErr  bool
	}{
		{
			name:     "standard exposure name",
			filename: "spot_flat_251.0X_316.5Y.fits",
			wantX:    251.0,
			wantY:    316.5,
		},
		{
			name:     "catalog extension",
			filename: "spot_flat_251.0X_316.5Y.db",
			wantX:    251.0,
			wantY:    316.5,
		},
		{
			name:     "full path",
			filename: "/data/run5/spot_-12.5X_0.0Y.fits",
			wantX:    -12.5,
			wantY:    0.0,
		},
		{
			name:     "integer coordinates",
			filename: "exp_10X_20Y.fits",
			wantX:    10,
			wantY:    20,
		},
		{
			name:     "missing unit letters",
			filename: "spot_251.0_316.5.fits",
			wantErr:  true,
		},
		{
			name:     "swapped unit letters",
			filename: "spot_316.5Y_251.0X.fits",
			wantErr:  true,
		},
		{
			name:     "no underscores",
			filename: "catalog.fits",
			wantErr:  true,
		},
		{
			name:     "non-numeric coordinate",
			filename: "spot_abcX_1.0Y.fits",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := ParsePosition(tt.filename)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantX, pos.X)
			assert.Equal(t, tt.wantY, pos.Y)
		})
	}
}

func TestLinearTransform(t *testing.T) {
	tr := LinearTransform{PixelSizeMM: 0.01, OriginXMM: 1.0, OriginYMM: -2.0}

	x, y, err := tr.FocalToPixel(2.0, 0.0)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, x, 1e-9)
	assert.InDelta(t, 200.0, y, 1e-9)
}

func TestLinearTransform_InvalidPixelSize(t *testing.T) {
	_, _, err := LinearTransform{}.FocalToPixel(1, 1)
	assert.Error(t, err)
}

func TestOriginGuesser(t *testing.T) {
	g := OriginGuesser{
		Transform: LinearTransform{PixelSizeMM: 0.01},
	}

	// Projector position (x=10mm, y=5mm): the transform takes camera
	// coordinates (y, x), and the x guess is mirrored across the serial
	// register width.
	y0, x0, err := g.Guess("spot_10.0X_5.0Y.db")
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, y0, 1e-9)
	assert.InDelta(t, DefaultSerialWidth-500.0, x0, 1e-9)
}

func TestOriginGuesser_CustomSerialWidth(t *testing.T) {
	g := OriginGuesser{
		Transform:   LinearTransform{PixelSizeMM: 0.01},
		SerialWidth: 1000,
	}

	_, x0, err := g.Guess("spot_1.0X_1.0Y.db")
	require.NoError(t, err)
	assert.InDelta(t, 900.0, x0, 1e-9)
}

func TestOriginGuesser_BadFilename(t *testing.T) {
	g := OriginGuesser{Transform: LinearTransform{PixelSizeMM: 0.01}}
	_, _, err := g.Guess("not_a_position.db")
	assert.Error(t, err)
}
