// Package config loads mixcoatl configuration from files, environment
// variables, and command-line flags, in ascending precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files
	// (without extension).
	ConfigFileName = "mixcoatl"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "MIXCOATL"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader backed by the global viper instance so
// that cobra flag bindings are honored.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load reads configuration from the search paths, environment, and
// defaults, then validates it. A missing config file is not an error.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return l.unmarshal()
}

// LoadWithFile reads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}
	l.v.AddConfigPath("/etc/mixcoatl")
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "mixcoatl"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "mixcoatl"))
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	l.v.SetDefault("grid.rows", defaults.Grid.Rows)
	l.v.SetDefault("grid.cols", defaults.Grid.Cols)
	l.v.SetDefault("grid.max_displacement", defaults.Grid.MaxDisplacement)
	l.v.SetDefault("grid.min_source_width", defaults.Grid.MinSourceWidth)
	l.v.SetDefault("grid.fields.y", defaults.Grid.Fields.Y)
	l.v.SetDefault("grid.fields.x", defaults.Grid.Fields.X)
	l.v.SetDefault("grid.fields.xx", defaults.Grid.Fields.XX)
	l.v.SetDefault("grid.fields.yy", defaults.Grid.Fields.YY)
	l.v.SetDefault("grid.fields.flux", defaults.Grid.Fields.Flux)

	l.v.SetDefault("fit.brute", defaults.Fit.Brute)
	l.v.SetDefault("fit.vary_theta", defaults.Fit.VaryTheta)
	l.v.SetDefault("fit.aggregate", defaults.Fit.Aggregate)
	l.v.SetDefault("fit.max_iterations", defaults.Fit.MaxIterations)
	l.v.SetDefault("fit.statistic", defaults.Fit.Statistic)

	l.v.SetDefault("batch.workers", defaults.Batch.Workers)
	l.v.SetDefault("batch.output_dir", defaults.Batch.OutputDir)
	l.v.SetDefault("batch.continue_on_error", defaults.Batch.ContinueOnError)
	l.v.SetDefault("batch.recursive", defaults.Batch.Recursive)

	l.v.SetDefault("transform.pixel_size_mm", defaults.Transform.PixelSizeMM)
	l.v.SetDefault("transform.origin_x_mm", defaults.Transform.OriginXMM)
	l.v.SetDefault("transform.origin_y_mm", defaults.Transform.OriginYMM)
	l.v.SetDefault("transform.serial_width", defaults.Transform.SerialWidth)

	l.v.SetDefault("crosstalk.nsig", defaults.Crosstalk.NSig)
	l.v.SetDefault("crosstalk.num_iter", defaults.Crosstalk.NumIter)
	l.v.SetDefault("crosstalk.noise", defaults.Crosstalk.Noise)
	l.v.SetDefault("crosstalk.threshold", defaults.Crosstalk.Threshold)
	l.v.SetDefault("crosstalk.num_amps", defaults.Crosstalk.NumAmps)
	l.v.SetDefault("crosstalk.max_aggressors", defaults.Crosstalk.MaxAggressors)
	l.v.SetDefault("crosstalk.stamp_size", defaults.Crosstalk.StampSize)
}

// GetConfigSearchPaths returns the paths where configuration files are
// searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home, filepath.Join(home, ".config", "mixcoatl"))
	}
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "mixcoatl"))
	}
	paths = append(paths, "/etc/mixcoatl")
	return paths
}
