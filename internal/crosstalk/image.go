// Package crosstalk measures electrical crosstalk between sensor
// readout channels: it locates bright aggressor spots in calibrated
// amplifier stacks and fits the signal they induce in every victim
// channel, accumulating the coefficients into a CrosstalkMatrix.
package crosstalk

import (
	"errors"
	"fmt"
	"math"
)

// Image is a calibrated amplifier image in electrons, stored row-major.
type Image struct {
	Pix  []float64
	Rows int
	Cols int
}

// NewImage allocates a zeroed image.
func NewImage(rows, cols int) Image {
	return Image{Pix: make([]float64, rows*cols), Rows: rows, Cols: cols}
}

// At returns the pixel at (y, x).
func (im Image) At(y, x int) float64 { return im.Pix[y*im.Cols+x] }

// Set writes the pixel at (y, x).
func (im Image) Set(y, x int, v float64) { im.Pix[y*im.Cols+x] = v }

// ErrEmptyStack is returned when a stack operation receives no images.
var ErrEmptyStack = errors.New("crosstalk: empty image stack")

// Stack computes the pixelwise mean of a set of same-shaped calibrated
// exposures, scaled by the amplifier gain. Bias and dark handling is
// the caller's concern; inputs are assumed calibrated.
func Stack(images []Image, gain float64) (Image, error) {
	if len(images) == 0 {
		return Image{}, ErrEmptyStack
	}
	rows, cols := images[0].Rows, images[0].Cols
	out := NewImage(rows, cols)
	for _, im := range images {
		if im.Rows != rows || im.Cols != cols {
			return Image{}, fmt.Errorf("crosstalk: stack shape mismatch: %dx%d vs %dx%d",
				im.Rows, im.Cols, rows, cols)
		}
		for i, v := range im.Pix {
			out.Pix[i] += v
		}
	}
	scale := gain / float64(len(images))
	for i := range out.Pix {
		out.Pix[i] *= scale
	}
	return out, nil
}

// GaussianSmooth convolves the image with a separable Gaussian kernel
// of the given sigma, truncated at 4 sigma. Edges are handled by
// renormalizing over the in-bounds kernel support.
func GaussianSmooth(im Image, sigma float64) Image {
	if sigma <= 0 {
		out := NewImage(im.Rows, im.Cols)
		copy(out.Pix, im.Pix)
		return out
	}
	radius := int(math.Ceil(4 * sigma))
	kernel := make([]float64, 2*radius+1)
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
	}

	// Horizontal pass then vertical pass.
	tmp := NewImage(im.Rows, im.Cols)
	for y := 0; y < im.Rows; y++ {
		for x := 0; x < im.Cols; x++ {
			sum, weight := 0.0, 0.0
			for k := -radius; k <= radius; k++ {
				xx := x + k
				if xx < 0 || xx >= im.Cols {
					continue
				}
				w := kernel[k+radius]
				sum += w * im.At(y, xx)
				weight += w
			}
			tmp.Set(y, x, sum/weight)
		}
	}
	out := NewImage(im.Rows, im.Cols)
	for y := 0; y < im.Rows; y++ {
		for x := 0; x < im.Cols; x++ {
			sum, weight := 0.0, 0.0
			for k := -radius; k <= radius; k++ {
				yy := y + k
				if yy < 0 || yy >= im.Rows {
					continue
				}
				w := kernel[k+radius]
				sum += w * tmp.At(yy, x)
				weight += w
			}
			out.Set(y, x, sum/weight)
		}
	}
	return out
}

// Peak returns the location of the brightest pixel.
func Peak(im Image) (y, x int) {
	best := math.Inf(-1)
	for i, v := range im.Pix {
		if v > best {
			best = v
			y, x = i/im.Cols, i%im.Cols
		}
	}
	return y, x
}

// DiskMean returns the mean over pixels within radius of (cy, cx).
func DiskMean(im Image, cy, cx int, radius float64) float64 {
	sum, count := 0.0, 0
	r2 := radius * radius
	for y := 0; y < im.Rows; y++ {
		for x := 0; x < im.Cols; x++ {
			dy, dx := float64(y-cy), float64(x-cx)
			if dy*dy+dx*dx >= r2 {
				continue
			}
			sum += im.At(y, x)
			count++
		}
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

// Stamp is a square cutout around an aggressor spot. Y0 and X0 record
// the cutout position in the parent image so the matching victim
// stamp can be extracted at identical coordinates.
type Stamp struct {
	Image
	Y0, X0 int
}

// MakeStamp extracts a size x size cutout centered on (cy, cx),
// clamped to the image bounds. The stamp shrinks when the image is
// smaller than the requested size.
func MakeStamp(im Image, cy, cx, size int) Stamp {
	if size > im.Rows {
		size = im.Rows
	}
	if size > im.Cols {
		size = im.Cols
	}
	half := size / 2
	y0 := clamp(cy-half, 0, im.Rows-size)
	x0 := clamp(cx-half, 0, im.Cols-size)
	out := NewImage(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			out.Set(y, x, im.At(y0+y, x0+x))
		}
	}
	return Stamp{Image: out, Y0: y0, X0: x0}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
