package sourcegrid

// Node is one row of the per-node residual table of a fitted grid. Y
// and X are the ideal lattice node position. The model shape moments
// (XX, YY) and model flux are nominally zero, so the residual fields
// carry the matched source's measured values directly.
//
// Matched is the explicit missing-value indicator: when false, every
// residual field (DY, DX, DXX, DYY, DFlux) is meaningless and must be
// treated as missing. Persistence layers store them as NULL.
type Node struct {
	Y, X    float64
	Matched bool

	DY, DX   float64
	XX, YY   float64
	DXX, DYY float64
	Flux     float64
	DFlux    float64
}

// DistortedGrid is the final product of a grid fit: the fitted lattice
// parameters plus one Node per lattice node, in row-major node order.
// It is immutable after creation.
type DistortedGrid struct {
	Params GridParams
	Nodes  []Node
}

// NumMatched returns the number of nodes with a valid source match.
func (g *DistortedGrid) NumMatched() int {
	n := 0
	for _, node := range g.Nodes {
		if node.Matched {
			n++
		}
	}
	return n
}
