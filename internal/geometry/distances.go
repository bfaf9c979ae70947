package geometry

import (
	"errors"
	"math"
	"sort"
)

// Metric computes the distance between two points. Euclidean is the
// default; alternate metrics can be supplied through the *WithMetric
// variants.
type Metric func(a, b Point) float64

// Euclidean is the standard L2 distance.
func Euclidean(a, b Point) float64 {
	return math.Hypot(a.Y-b.Y, a.X-b.X)
}

// ErrEmptyPointSet is returned when a distance computation receives a
// point set with no entries.
var ErrEmptyPointSet = errors.New("geometry: empty point set")

// CoordinateDistances computes, for every point in a, the distances to
// all points in b sorted ascending, along with the matching indices
// into b. Both returned matrices have shape (a.Len() x b.Len()), one
// row per point of a.
//
// The two sets may be identical: the self-distance 0 then occupies rank
// 0 of each row, and callers looking for the nearest other point must
// skip it.
func CoordinateDistances(a, b PointSet) (indices [][]int, distances [][]float64, err error) {
	return CoordinateDistancesWithMetric(a, b, Euclidean)
}

// CoordinateDistancesWithMetric is CoordinateDistances with a caller
// supplied metric.
func CoordinateDistancesWithMetric(a, b PointSet, metric Metric) ([][]int, [][]float64, error) {
	if a.Len() == 0 || b.Len() == 0 {
		return nil, nil, ErrEmptyPointSet
	}

	indices := make([][]int, a.Len())
	distances := make([][]float64, a.Len())
	for i := 0; i < a.Len(); i++ {
		row := make([]float64, b.Len())
		order := make([]int, b.Len())
		pa := a.At(i)
		for j := 0; j < b.Len(); j++ {
			row[j] = metric(pa, b.At(j))
			order[j] = j
		}
		sort.Slice(order, func(u, v int) bool {
			return row[order[u]] < row[order[v]]
		})

		sorted := make([]float64, b.Len())
		for k, j := range order {
			sorted[k] = row[j]
		}
		indices[i] = order
		distances[i] = sorted
	}
	return indices, distances, nil
}

// NearestNeighbors returns, for each point in a, the index into b of
// its nearest point and the corresponding distance.
func NearestNeighbors(a, b PointSet) (indices []int, distances []float64, err error) {
	idx, dist, err := CoordinateDistances(a, b)
	if err != nil {
		return nil, nil, err
	}
	indices = make([]int, a.Len())
	distances = make([]float64, a.Len())
	for i := range idx {
		indices[i] = idx[i][0]
		distances[i] = dist[i][0]
	}
	return indices, distances, nil
}
