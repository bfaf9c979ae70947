package geometry

import "math"

// Point is a single (y, x) coordinate in pixel space. The y-first
// ordering follows the sensor convention used throughout the catalog
// pipeline.
type Point struct {
	Y float64
	X float64
}

// PointSet holds an ordered collection of coordinates as parallel Y/X
// slices. Entries may carry non-finite values (NaN or Inf) when a
// detection has no usable centroid; callers must drop those pairs with
// FilterValid before any neighbor computation.
type PointSet struct {
	Y []float64
	X []float64
}

// NewPointSet builds a PointSet from parallel coordinate slices.
// The slices are referenced, not copied.
func NewPointSet(y, x []float64) PointSet {
	return PointSet{Y: y, X: x}
}

// Len returns the number of coordinate pairs.
func (p PointSet) Len() int {
	return len(p.Y)
}

// At returns the i-th coordinate pair.
func (p PointSet) At(i int) Point {
	return Point{Y: p.Y[i], X: p.X[i]}
}

// IsValidPair reports whether both coordinates are finite. A missing
// value in either coordinate invalidates the whole pair.
func IsValidPair(y, x float64) bool {
	return !math.IsNaN(y) && !math.IsInf(y, 0) &&
		!math.IsNaN(x) && !math.IsInf(x, 0)
}

// FilterValid returns a new PointSet containing only the pairs where
// both coordinates are finite, plus the original index of each kept
// pair. This is the single documented choke point for missing-value
// removal: every neighbor computation operates on its output.
func (p PointSet) FilterValid() (PointSet, []int) {
	y := make([]float64, 0, len(p.Y))
	x := make([]float64, 0, len(p.X))
	idx := make([]int, 0, len(p.Y))
	for i := range p.Y {
		if !IsValidPair(p.Y[i], p.X[i]) {
			continue
		}
		y = append(y, p.Y[i])
		x = append(x, p.X[i])
		idx = append(idx, i)
	}
	return PointSet{Y: y, X: x}, idx
}
