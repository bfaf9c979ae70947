package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	// Flag values persist on cobra commands between Execute calls;
	// clear the help flag so a prior --help run does not leak in.
	for _, c := range append(rootCmd.Commands(), rootCmd) {
		if f := c.Flags().Lookup("help"); f != nil {
			_ = f.Value.Set("false")
			f.Changed = false
		}
	}

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "mixcoatl", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.HasSubCommands())
}

func TestRootCommandHelp(t *testing.T) {
	output, err := executeCommand(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "spot grids")
	assert.Contains(t, output, "Available Commands:")
	assert.Contains(t, output, "Usage:")
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "grid")
	assert.Contains(t, names, "version")
}

func TestRootCommandInvalidFlag(t *testing.T) {
	output, err := executeCommand(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, output, "unknown flag")
}

func TestVersionCommand(t *testing.T) {
	output, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "mixcoatl")
}

func TestGridCommandHelp(t *testing.T) {
	output, err := executeCommand(t, "grid", "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "--rows")
	assert.Contains(t, output, "--max-displacement")
	assert.Contains(t, output, "--output-dir")
	assert.Contains(t, output, "--workers")
}

func TestGridCommandRequiresArgs(t *testing.T) {
	_, err := executeCommand(t, "grid")
	assert.Error(t, err)
}

func TestGetConfigValidatesFlagOverrides(t *testing.T) {
	// Start from a loaded, valid configuration.
	valid := GetConfig()
	require.NoError(t, valid.Validate())

	// Flag bindings land in viper after the initial load; an invalid
	// value must not reach callers through the reload path.
	viper.Set("log_level", "shouting")
	t.Cleanup(func() { viper.Set("log_level", valid.LogLevel) })

	cfg := GetConfig()
	assert.NotEqual(t, "shouting", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}
