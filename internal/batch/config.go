package batch

import (
	"time"

	"github.com/snyder18/mixcoatl/internal/catalog"
	"github.com/snyder18/mixcoatl/internal/sourcegrid"
	"github.com/snyder18/mixcoatl/internal/transform"
)

// Config holds all settings for a batch grid-fit run.
type Config struct {
	// Parallelism. Workers is clamped to the available cores minus
	// one, leaving headroom for the orchestrating process.
	Workers int

	// Output settings.
	OutputDir       string
	ContinueOnError bool

	// Grid dimensions.
	Rows int
	Cols int

	// Source curation: minimum shape magnitude hypot(xx, yy) for a
	// source to participate in estimation and fitting.
	MinSourceWidth float64

	// Matching threshold (pixels).
	MaxDisplacement float64

	// Catalog column names.
	Fields catalog.FieldMap

	// Stage configuration.
	Estimate sourcegrid.EstimateConfig
	Fit      sourcegrid.FitConfig

	// Guesser supplies the lattice origin seed from the filename
	// encoded projector position.
	Guesser transform.OriginGuesser

	// File discovery settings.
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string
}

// DefaultConfig returns the standard batch settings. The origin
// guesser must still be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		OutputDir:       ".",
		Rows:            49,
		Cols:            49,
		MinSourceWidth:  4.0,
		MaxDisplacement: 10.0,
		Fields:          catalog.DefaultFieldMap(),
		Estimate:        sourcegrid.DefaultEstimateConfig(),
		Fit:             sourcegrid.DefaultFitConfig(),
	}
}

// FileResult is the outcome of one catalog run.
type FileResult struct {
	Input    string
	Output   string
	RunID    string
	Params   sourcegrid.GridParams
	Matched  int
	Warning  string
	Err      error
	Duration time.Duration
}

// Result holds the outcome of a whole batch.
type Result struct {
	Files       []FileResult
	Duration    time.Duration
	WorkerCount int
}

// NumFailed returns the number of files that ended in an error.
func (r *Result) NumFailed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}
