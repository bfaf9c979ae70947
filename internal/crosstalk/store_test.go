package crosstalk

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadSQLite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crosstalk.db")

	m := NewMatrix("R22_S11", "R22_S10", 3)
	m.SetRow(1, map[int]float64{1: 1.0, 2: 2e-3, 3: -1e-4})
	m.SetRow(3, map[int]float64{1: 5e-4, 2: 1.0, 3: 0})

	require.NoError(t, WriteSQLite(path, m))

	got, err := ReadSQLite(path, "R22_S11", "R22_S10", 3)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3}, got.Rows())
	assert.Equal(t, 1.0, got.Coefficient(1, 1))
	assert.Equal(t, 2e-3, got.Coefficient(1, 2))
	assert.Equal(t, 5e-4, got.Coefficient(3, 1))
	assert.True(t, math.IsNaN(got.Coefficient(2, 1)), "unmeasured aggressor stays missing")
}

func TestWriteSQLite_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crosstalk.db")

	m := NewMatrix("a", "b", 2)
	m.SetRow(1, map[int]float64{1: 0.5, 2: 0.5})
	require.NoError(t, WriteSQLite(path, m))

	m.SetRow(1, map[int]float64{1: 0.7, 2: 0.7})
	require.NoError(t, WriteSQLite(path, m))

	got, err := ReadSQLite(path, "a", "b", 2)
	require.NoError(t, err)
	assert.Equal(t, 0.7, got.Coefficient(1, 1))
}

func TestReadSQLite_FiltersBySensorPair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crosstalk.db")

	m1 := NewMatrix("s1", "s1", 2)
	m1.SetRow(1, map[int]float64{1: 1.0, 2: 0.1})
	require.NoError(t, WriteSQLite(path, m1))

	m2 := NewMatrix("s1", "s2", 2)
	m2.SetRow(1, map[int]float64{1: 0.2, 2: 0.3})
	require.NoError(t, WriteSQLite(path, m2))

	got, err := ReadSQLite(path, "s1", "s2", 2)
	require.NoError(t, err)
	assert.Equal(t, 0.2, got.Coefficient(1, 1))

	other, err := ReadSQLite(path, "s2", "s1", 2)
	require.NoError(t, err)
	assert.Empty(t, other.Rows())
}
