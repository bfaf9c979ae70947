// Package transform provides the camera-geometry collaborators of the
// grid pipeline: parsing projector positions out of exposure filenames
// and converting focal-plane coordinates to sensor pixels. The
// transform is an explicitly constructed dependency owned by the
// application entry point and injected where needed; nothing here is
// process-global.
package transform

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ProjectorPosition is the focal-plane position (mm) of the spot
// projector, as encoded in an exposure filename.
type ProjectorPosition struct {
	X float64
	Y float64
}

// ParsePosition extracts the projector position from a filename of the
// form `..._<x>X_<y>Y.<ext>`: the last two underscore-separated fields
// carry the coordinates, each with a trailing unit letter.
func ParsePosition(filename string) (ProjectorPosition, error) {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	parts := strings.Split(stem, "_")
	if len(parts) < 2 {
		return ProjectorPosition{}, fmt.Errorf("filename %q does not encode a projector position", base)
	}
	x, err := parseCoordinate(parts[len(parts)-2], 'X')
	if err != nil {
		return ProjectorPosition{}, fmt.Errorf("filename %q: %w", base, err)
	}
	y, err := parseCoordinate(parts[len(parts)-1], 'Y')
	if err != nil {
		return ProjectorPosition{}, fmt.Errorf("filename %q: %w", base, err)
	}
	return ProjectorPosition{X: x, Y: y}, nil
}

func parseCoordinate(field string, unit byte) (float64, error) {
	if len(field) < 2 || field[len(field)-1] != unit {
		return 0, fmt.Errorf("field %q is not a %c coordinate", field, unit)
	}
	v, err := strconv.ParseFloat(field[:len(field)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", field, err)
	}
	return v, nil
}

// CameraTransform converts focal-plane coordinates (mm) to sensor
// pixel coordinates. Implementations wrap instrument-specific geometry
// lookups; the pipeline depends only on this capability.
type CameraTransform interface {
	FocalToPixel(xmm, ymm float64) (x, y float64, err error)
}

// LinearTransform is a plate-scale camera model: pixel = (mm - origin)
// / pixel size. It stands in for full camera-geometry lookups on
// single-sensor data.
type LinearTransform struct {
	PixelSizeMM float64 // physical pixel pitch, mm/px
	OriginXMM   float64 // focal-plane x of pixel (0, 0)
	OriginYMM   float64 // focal-plane y of pixel (0, 0)
}

// FocalToPixel implements CameraTransform.
func (t LinearTransform) FocalToPixel(xmm, ymm float64) (x, y float64, err error) {
	if !(t.PixelSizeMM > 0) {
		return 0, 0, fmt.Errorf("invalid pixel size %g mm", t.PixelSizeMM)
	}
	return (xmm - t.OriginXMM) / t.PixelSizeMM, (ymm - t.OriginYMM) / t.PixelSizeMM, nil
}

// DefaultSerialWidth is the serial-register extent used to flip the x
// origin guess into readout orientation: 2 segments * 509 columns * 4
// amplifiers.
const DefaultSerialWidth = 2 * 509 * 4

// OriginGuesser turns a filename-encoded projector position into an
// initial guess for the lattice center, using an injected camera
// transform. The x coordinate is mirrored across the serial register
// width to account for readout orientation.
type OriginGuesser struct {
	Transform   CameraTransform
	SerialWidth float64 // defaults to DefaultSerialWidth when zero
}

// Guess returns the (y0, x0) origin seed for the exposure named by
// filename.
func (g OriginGuesser) Guess(filename string) (y0, x0 float64, err error) {
	pos, err := ParsePosition(filename)
	if err != nil {
		return 0, 0, err
	}
	// The projector encodes camera coordinates; the transform takes
	// them in (y, x) order.
	px, py, err := g.Transform.FocalToPixel(pos.Y, pos.X)
	if err != nil {
		return 0, 0, fmt.Errorf("origin guess for %s: %w", filepath.Base(filename), err)
	}
	width := g.SerialWidth
	if width == 0 {
		width = DefaultSerialWidth
	}
	return py, width - px, nil
}
