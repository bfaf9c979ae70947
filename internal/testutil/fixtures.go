// Package testutil generates synthetic spot-grid fixtures shared by
// tests across packages.
package testutil

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snyder18/mixcoatl/internal/catalog"
	"github.com/snyder18/mixcoatl/internal/sourcegrid"
)

// GridCatalogOptions controls synthetic spot-grid catalog generation.
type GridCatalogOptions struct {
	// Sigma is the per-coordinate Gaussian jitter applied to each
	// centroid, in pixels.
	Sigma float64
	// Width is the value written to the second-moment columns; sources
	// must exceed the pipeline's min-width cut to survive curation.
	Width float64
	// Flux is the instrumental flux written for every source.
	Flux float64
	// Seed makes the jitter deterministic.
	Seed int64
}

// DefaultGridCatalogOptions returns options that survive the default
// curation cuts.
func DefaultGridCatalogOptions() GridCatalogOptions {
	return GridCatalogOptions{
		Sigma: 0.5,
		Width: 5.0,
		Flux:  50000.0,
		Seed:  1,
	}
}

// MakeGridTable builds a synthetic source table from an ideal lattice
// with Gaussian centroid jitter.
func MakeGridTable(t *testing.T, params sourcegrid.GridParams, opts GridCatalogOptions) *catalog.Table {
	t.Helper()

	grid, err := params.MakeIdealGrid()
	require.NoError(t, err, "invalid grid parameters for fixture")

	rng := rand.New(rand.NewSource(opts.Seed)) //nolint:gosec // deterministic test jitter
	n := grid.Len()
	ys := make([]float64, n)
	xs := make([]float64, n)
	xxs := make([]float64, n)
	yys := make([]float64, n)
	fluxes := make([]float64, n)
	for i := range n {
		p := grid.At(i)
		ys[i] = p.Y + rng.NormFloat64()*opts.Sigma
		xs[i] = p.X + rng.NormFloat64()*opts.Sigma
		xxs[i] = opts.Width
		yys[i] = opts.Width
		fluxes[i] = opts.Flux
	}
	return catalog.NewTable(ys, xs, xxs, yys, fluxes)
}

// WriteGridCatalog writes a synthetic spot-grid catalog to a SQLite
// file using the default column names.
func WriteGridCatalog(t *testing.T, path string, params sourcegrid.GridParams, opts GridCatalogOptions) {
	t.Helper()

	table := MakeGridTable(t, params, opts)
	require.NoError(t, catalog.WriteSQLite(path, table, catalog.DefaultFieldMap()),
		"failed to write fixture catalog: %s", path)
}
