package config

import (
	"fmt"

	"github.com/snyder18/mixcoatl/internal/catalog"
)

// Config is the complete configuration for the mixcoatl calibration
// tools. It covers the grid and crosstalk commands and loads from
// configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Grid      GridConfig      `mapstructure:"grid" yaml:"grid" json:"grid"`
	Fit       FitConfig       `mapstructure:"fit" yaml:"fit" json:"fit"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch" json:"batch"`
	Transform TransformConfig `mapstructure:"transform" yaml:"transform" json:"transform"`
	Crosstalk CrosstalkConfig `mapstructure:"crosstalk" yaml:"crosstalk" json:"crosstalk"`
}

// GridConfig contains lattice and matching settings.
type GridConfig struct {
	Rows            int     `mapstructure:"rows" yaml:"rows" json:"rows"`
	Cols            int     `mapstructure:"cols" yaml:"cols" json:"cols"`
	MaxDisplacement float64 `mapstructure:"max_displacement" yaml:"max_displacement" json:"max_displacement"`
	MinSourceWidth  float64 `mapstructure:"min_source_width" yaml:"min_source_width" json:"min_source_width"`

	// Catalog column names for the capability fields.
	Fields catalog.FieldMap `mapstructure:"fields" yaml:"fields" json:"fields"`
}

// FitConfig contains optimizer settings.
type FitConfig struct {
	Brute         bool   `mapstructure:"brute" yaml:"brute" json:"brute"`
	VaryTheta     bool   `mapstructure:"vary_theta" yaml:"vary_theta" json:"vary_theta"`
	Aggregate     string `mapstructure:"aggregate" yaml:"aggregate" json:"aggregate"`
	MaxIterations int    `mapstructure:"max_iterations" yaml:"max_iterations" json:"max_iterations"`
	Statistic     string `mapstructure:"statistic" yaml:"statistic" json:"statistic"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	OutputDir       string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	ContinueOnError bool   `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Recursive       bool   `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
}

// TransformConfig contains the plate-scale camera model used for
// origin seeding.
type TransformConfig struct {
	PixelSizeMM float64 `mapstructure:"pixel_size_mm" yaml:"pixel_size_mm" json:"pixel_size_mm"`
	OriginXMM   float64 `mapstructure:"origin_x_mm" yaml:"origin_x_mm" json:"origin_x_mm"`
	OriginYMM   float64 `mapstructure:"origin_y_mm" yaml:"origin_y_mm" json:"origin_y_mm"`
	SerialWidth float64 `mapstructure:"serial_width" yaml:"serial_width" json:"serial_width"`
}

// CrosstalkConfig contains crosstalk measurement settings.
type CrosstalkConfig struct {
	NSig          float64 `mapstructure:"nsig" yaml:"nsig" json:"nsig"`
	NumIter       int     `mapstructure:"num_iter" yaml:"num_iter" json:"num_iter"`
	Noise         float64 `mapstructure:"noise" yaml:"noise" json:"noise"`
	Threshold     float64 `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	NumAmps       int     `mapstructure:"num_amps" yaml:"num_amps" json:"num_amps"`
	MaxAggressors int     `mapstructure:"max_aggressors" yaml:"max_aggressors" json:"max_aggressors"`
	StampSize     int     `mapstructure:"stamp_size" yaml:"stamp_size" json:"stamp_size"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Grid: GridConfig{
			Rows:            49,
			Cols:            49,
			MaxDisplacement: 10.0,
			MinSourceWidth:  4.0,
			Fields:          catalog.DefaultFieldMap(),
		},
		Fit: FitConfig{
			Brute:         true,
			VaryTheta:     true,
			Aggregate:     "median",
			MaxIterations: 500,
			Statistic:     "median",
		},
		Batch: BatchConfig{
			Workers:   0, // 0 = cores - 1
			OutputDir: ".",
		},
		Transform: TransformConfig{
			PixelSizeMM: 0.01,
			SerialWidth: 2 * 509 * 4,
		},
		Crosstalk: CrosstalkConfig{
			NSig:          5.0,
			NumIter:       3,
			Noise:         6.0,
			Threshold:     40000,
			NumAmps:       16,
			MaxAggressors: 4,
			StampSize:     200,
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.Grid.Rows <= 0 || c.Grid.Cols <= 0 {
		return fmt.Errorf("invalid grid dimensions %dx%d", c.Grid.Rows, c.Grid.Cols)
	}
	if c.Grid.MaxDisplacement <= 0 {
		return fmt.Errorf("max_displacement must be positive, got %g", c.Grid.MaxDisplacement)
	}
	switch c.Fit.Aggregate {
	case "median", "sum":
	default:
		return fmt.Errorf("invalid fit aggregate %q (want median or sum)", c.Fit.Aggregate)
	}
	switch c.Fit.Statistic {
	case "median", "mean":
	default:
		return fmt.Errorf("invalid fit statistic %q (want median or mean)", c.Fit.Statistic)
	}
	if c.Transform.PixelSizeMM <= 0 {
		return fmt.Errorf("pixel_size_mm must be positive, got %g", c.Transform.PixelSizeMM)
	}
	if c.Crosstalk.NumAmps <= 0 {
		return fmt.Errorf("num_amps must be positive, got %d", c.Crosstalk.NumAmps)
	}
	return nil
}
