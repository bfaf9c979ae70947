package cmd

import (
	"fmt"
	"runtime"

	"github.com/snyder18/mixcoatl/internal/batch"
	"github.com/snyder18/mixcoatl/internal/config"
	"github.com/snyder18/mixcoatl/internal/sourcegrid"
	"github.com/snyder18/mixcoatl/internal/transform"
	"github.com/spf13/cobra"
)

// gridCmd represents the grid command for batch spot-grid fitting.
var gridCmd = &cobra.Command{
	Use:   "grid [catalogs...]",
	Short: "Fit spot-grid geometry to source catalogs",
	Long: `Fit a distorted spot-grid model to each SQLite source catalog and
write per-node displacement records alongside the fitted grid
parameters. Catalogs are processed in parallel; each run writes a
uniquely named output database.

Input filenames must encode the projector position used to seed the
lattice origin, e.g. spot_flat_251.0X_316.5Y.db.

Examples:
  mixcoatl grid catalog.db
  mixcoatl grid catalogs/ --recursive --workers 8
  mixcoatl grid catalog.db --output-dir results --format json
  mixcoatl grid catalogs/ --brute=false --max-displacement 5`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runGridCommand,
}

// configToBatchConfig maps centralized configuration to batch.Config.
// CLI flags override config file values where given.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) batch.Config {
	bc := batch.DefaultConfig()

	bc.Workers = cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		bc.Workers, _ = cmd.Flags().GetInt("workers")
	}

	bc.OutputDir = cfg.Batch.OutputDir
	if cmd.Flags().Changed("output-dir") {
		bc.OutputDir, _ = cmd.Flags().GetString("output-dir")
	}

	bc.ContinueOnError = cfg.Batch.ContinueOnError
	if cmd.Flags().Changed("continue-on-error") {
		bc.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	}

	bc.Rows = cfg.Grid.Rows
	if cmd.Flags().Changed("rows") {
		bc.Rows, _ = cmd.Flags().GetInt("rows")
	}

	bc.Cols = cfg.Grid.Cols
	if cmd.Flags().Changed("cols") {
		bc.Cols, _ = cmd.Flags().GetInt("cols")
	}

	bc.MinSourceWidth = cfg.Grid.MinSourceWidth
	if cmd.Flags().Changed("min-source-width") {
		bc.MinSourceWidth, _ = cmd.Flags().GetFloat64("min-source-width")
	}

	bc.MaxDisplacement = cfg.Grid.MaxDisplacement
	if cmd.Flags().Changed("max-displacement") {
		bc.MaxDisplacement, _ = cmd.Flags().GetFloat64("max-displacement")
	}

	bc.Fields = cfg.Grid.Fields

	bc.Fit.Brute = cfg.Fit.Brute
	if cmd.Flags().Changed("brute") {
		bc.Fit.Brute, _ = cmd.Flags().GetBool("brute")
	}

	bc.Fit.VaryTheta = cfg.Fit.VaryTheta
	if cmd.Flags().Changed("vary-theta") {
		bc.Fit.VaryTheta, _ = cmd.Flags().GetBool("vary-theta")
	}

	bc.Fit.MaxIterations = cfg.Fit.MaxIterations

	switch cfg.Fit.Aggregate {
	case "sum":
		bc.Fit.Aggregate = sourcegrid.AggregateSum
	default:
		bc.Fit.Aggregate = sourcegrid.AggregateMedian
	}

	switch cfg.Fit.Statistic {
	case "mean":
		bc.Estimate.Statistic = sourcegrid.StatMean
	default:
		bc.Estimate.Statistic = sourcegrid.StatMedian
	}

	bc.Guesser = transform.OriginGuesser{
		Transform: transform.LinearTransform{
			PixelSizeMM: cfg.Transform.PixelSizeMM,
			OriginXMM:   cfg.Transform.OriginXMM,
			OriginYMM:   cfg.Transform.OriginYMM,
		},
		SerialWidth: cfg.Transform.SerialWidth,
	}

	bc.Recursive = cfg.Batch.Recursive
	if cmd.Flags().Changed("recursive") {
		bc.Recursive, _ = cmd.Flags().GetBool("recursive")
	}
	bc.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	bc.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")

	return bc
}

func runGridCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	bc := configToBatchConfig(cfg, cmd)

	result, err := batch.Run(cmd.Context(), args, bc)
	if result != nil {
		// Partial results are still reported when the batch fails.
		format, _ := cmd.Flags().GetString("format")
		out, ferr := result.FormatResults(format)
		if ferr != nil {
			return ferr
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
	}
	if err != nil {
		return fmt.Errorf("batch grid fit failed: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(gridCmd)

	// Grid geometry flags
	gridCmd.Flags().Int("rows", 49, "number of grid rows")
	gridCmd.Flags().Int("cols", 49, "number of grid columns")
	gridCmd.Flags().Float64("max-displacement", 10.0, "matching radius in pixels")
	gridCmd.Flags().Float64("min-source-width", 4.0, "minimum source shape magnitude for fitting")

	// Fit flags
	gridCmd.Flags().Bool("brute", true, "run the coarse origin search before refinement")
	gridCmd.Flags().Bool("vary-theta", true, "free the rotation angle during refinement")

	// Output flags
	gridCmd.Flags().StringP("output-dir", "o", ".", "directory for output databases")
	gridCmd.Flags().StringP("format", "f", "text", "summary format: text, json, yaml")

	// Parallel processing flags
	gridCmd.Flags().IntP("workers", "w", 0,
		fmt.Sprintf("number of parallel workers (default: %d)", runtime.NumCPU()-1))
	gridCmd.Flags().Bool("continue-on-error", false, "process remaining files after a failure")

	// File discovery flags
	gridCmd.Flags().BoolP("recursive", "r", false, "recursively scan directories")
	gridCmd.Flags().StringSlice("include", []string{}, "file patterns to include")
	gridCmd.Flags().StringSlice("exclude", []string{}, "file patterns to exclude")
}
