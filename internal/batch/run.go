package batch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snyder18/mixcoatl/internal/catalog"
	"github.com/snyder18/mixcoatl/internal/geometry"
	"github.com/snyder18/mixcoatl/internal/sourcegrid"
)

// RunOne executes the full grid pipeline for a single catalog file:
// origin guess from the filename, catalog load and curation, seed
// estimation, two-stage fit, source matching, and persistence of the
// distorted grid. A non-converged fit is accepted with a warning; the
// last iterate is used.
func RunOne(path string, cfg Config) FileResult {
	start := time.Now()
	res := FileResult{Input: path}

	y0, x0, err := cfg.Guesser.Guess(path)
	if err != nil {
		res.Err = fmt.Errorf("origin guess: %w", err)
		res.Duration = time.Since(start)
		return res
	}

	table, err := catalog.ReadSQLite(path, cfg.Fields)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}

	curated := table.FilterMinWidth(cfg.MinSourceWidth)
	obs := geometry.NewPointSet(curated.Ys(), curated.Xs())

	est, err := sourcegrid.EstimateParams(obs, cfg.Estimate)
	if err != nil {
		res.Err = fmt.Errorf("estimate seed parameters: %w", err)
		res.Duration = time.Since(start)
		return res
	}

	seed := sourcegrid.GridParams{
		RowSpacing: est.RowSpacing,
		ColSpacing: est.ColSpacing,
		Theta:      est.Theta,
		Y0:         y0,
		X0:         x0,
		Rows:       cfg.Rows,
		Cols:       cfg.Cols,
	}

	fitted, err := sourcegrid.FitGrid(seed, obs, cfg.Fit)
	if err != nil {
		if !errors.Is(err, sourcegrid.ErrNotConverged) {
			res.Err = fmt.Errorf("grid fit: %w", err)
			res.Duration = time.Since(start)
			return res
		}
		res.Warning = err.Error()
	}
	res.Params = fitted

	// Match against the full catalog: sources dropped during curation
	// or lacking centroids are still candidates, just unmatchable when
	// invalid.
	grid, err := sourcegrid.MatchSources(fitted, table, sourcegrid.MatchConfig{
		MaxDisplacement: cfg.MaxDisplacement,
	})
	if err != nil {
		res.Err = fmt.Errorf("match sources: %w", err)
		res.Duration = time.Since(start)
		return res
	}
	res.Matched = grid.NumMatched()

	res.RunID = uuid.NewString()
	res.Output = outputPath(cfg.OutputDir, path)
	if err := catalog.WriteDistortedGrid(res.Output, grid, res.RunID); err != nil {
		res.Err = fmt.Errorf("persist distorted grid: %w", err)
	}
	res.Duration = time.Since(start)
	return res
}

// outputPath derives the uniquely named output file for an input
// catalog, so concurrent workers never write the same file.
func outputPath(outputDir, input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, stem+"_distorted_grid.db")
}
