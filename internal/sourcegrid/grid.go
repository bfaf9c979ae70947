package sourcegrid

import (
	"fmt"
	"math"

	"github.com/snyder18/mixcoatl/internal/geometry"
)

// GridParams describes an idealized lattice of projected spots: the
// spacing between rows and columns, the rotation of the lattice with
// respect to the sensor axes, the position of the lattice center, and
// the fixed integer grid dimensions.
//
// GridParams is a value type. The fitting stages never mutate a shared
// instance; each stage returns a new value derived from its input.
type GridParams struct {
	RowSpacing float64 // pitch between rows, pixels (> 0)
	ColSpacing float64 // pitch between columns, pixels (> 0)
	Theta      float64 // lattice rotation, radians; 90-degree periodic
	Y0         float64 // lattice center y, pixels
	X0         float64 // lattice center x, pixels
	Rows       int
	Cols       int
}

// NumNodes returns the total number of lattice nodes.
func (p GridParams) NumNodes() int {
	return p.Rows * p.Cols
}

// Validate checks the parameters for physical plausibility.
func (p GridParams) Validate() error {
	if p.Rows <= 0 || p.Cols <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidParams, p.Rows, p.Cols)
	}
	if !(p.RowSpacing > 0) || !(p.ColSpacing > 0) {
		return fmt.Errorf("%w: spacing (%g, %g)", ErrInvalidParams, p.RowSpacing, p.ColSpacing)
	}
	if !isFinite(p.RowSpacing) || !isFinite(p.ColSpacing) {
		return fmt.Errorf("%w: non-finite spacing", ErrInvalidParams)
	}
	if !isFinite(p.Theta) {
		return fmt.Errorf("%w: non-finite rotation %g", ErrInvalidParams, p.Theta)
	}
	if !isFinite(p.Y0) || !isFinite(p.X0) {
		return fmt.Errorf("%w: non-finite origin (%g, %g)", ErrInvalidParams, p.Y0, p.X0)
	}
	return nil
}

// WithOrigin returns a copy of p with a new lattice center.
func (p GridParams) WithOrigin(y0, x0 float64) GridParams {
	p.Y0 = y0
	p.X0 = x0
	return p
}

// WithTheta returns a copy of p with a new rotation.
func (p GridParams) WithTheta(theta float64) GridParams {
	p.Theta = theta
	return p
}

// MakeIdealGrid generates the lattice node coordinates for p: a
// centered axis-aligned (Rows x Cols) lattice, rotated by Theta and
// translated to (Y0, X0). Nodes are returned in row-major order, so
// node (r, c) is at index r*Cols + c.
//
// The result is a pure function of p: identical parameters always
// produce bit-identical output.
func (p GridParams) MakeIdealGrid() (geometry.PointSet, error) {
	if err := p.Validate(); err != nil {
		return geometry.PointSet{}, err
	}

	sinT, cosT := math.Sincos(p.Theta)
	yHalf := float64(p.Rows-1) * p.RowSpacing / 2
	xHalf := float64(p.Cols-1) * p.ColSpacing / 2

	n := p.NumNodes()
	ys := make([]float64, 0, n)
	xs := make([]float64, 0, n)
	for r := 0; r < p.Rows; r++ {
		ly := float64(r)*p.RowSpacing - yHalf
		for c := 0; c < p.Cols; c++ {
			lx := float64(c)*p.ColSpacing - xHalf
			ys = append(ys, sinT*lx+cosT*ly+p.Y0)
			xs = append(xs, cosT*lx-sinT*ly+p.X0)
		}
	}
	return geometry.NewPointSet(ys, xs), nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
