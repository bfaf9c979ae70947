package sourcegrid

import (
	"math"

	"github.com/snyder18/mixcoatl/internal/geometry"
)

// SourceCatalog is the schema capability the matcher requires from a
// catalog collaborator: positional, shape and flux measurements
// addressed by source index. Concrete stores map their own column
// names onto this interface; the core never sees field names.
type SourceCatalog interface {
	NumSources() int
	// Position returns the source centroid. Either coordinate may be
	// non-finite when the detection has no usable centroid; such
	// sources are simply unmatchable.
	Position(i int) (y, x float64)
	// Moments returns the second shape moments (xx, yy).
	Moments(i int) (xx, yy float64)
	// Flux returns the instrumental flux.
	Flux(i int) float64
}

// MatchConfig controls source-to-node matching.
type MatchConfig struct {
	// MaxDisplacement is the displacement threshold: a node whose
	// nearest source lies at or beyond this distance (pixels) is left
	// unmatched.
	MaxDisplacement float64
}

// DefaultMatchConfig returns the standard matching settings.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{MaxDisplacement: 10.0}
}

// MatchSources assigns every lattice node of the fitted grid to its
// nearest observed source and computes the per-node residuals,
// producing the final DistortedGrid.
//
// Every node appears exactly once in the output, matched or not. A
// node is unmatched when no valid source lies within MaxDisplacement;
// its residual fields are then missing (Node.Matched == false). An
// observed source may be matched by more than one node; matches are
// deliberately not deduplicated, which is a known limitation near
// lattice defects.
func MatchSources(params GridParams, cat SourceCatalog, cfg MatchConfig) (*DistortedGrid, error) {
	grid, err := params.MakeIdealGrid()
	if err != nil {
		return nil, err
	}

	nodes := make([]Node, grid.Len())
	for i := range nodes {
		nodes[i] = Node{Y: grid.Y[i], X: grid.X[i]}
	}

	ys := make([]float64, cat.NumSources())
	xs := make([]float64, cat.NumSources())
	for i := range ys {
		ys[i], xs[i] = cat.Position(i)
	}
	valid, origIdx := geometry.NewPointSet(ys, xs).FilterValid()
	if valid.Len() == 0 {
		// Nothing to match against: all nodes stay unmatched.
		return &DistortedGrid{Params: params, Nodes: nodes}, nil
	}

	nearest, _, err := geometry.NearestNeighbors(grid, valid)
	if err != nil {
		return nil, err
	}

	for i := range nodes {
		src := origIdx[nearest[i]]
		srcY, srcX := cat.Position(src)
		dy := srcY - nodes[i].Y
		dx := srcX - nodes[i].X
		if math.Hypot(dy, dx) >= cfg.MaxDisplacement {
			continue
		}
		xx, yy := cat.Moments(src)
		nodes[i].Matched = true
		nodes[i].DY = dy
		nodes[i].DX = dx
		nodes[i].DXX = xx
		nodes[i].DYY = yy
		nodes[i].DFlux = cat.Flux(src)
	}

	return &DistortedGrid{Params: params, Nodes: nodes}, nil
}
