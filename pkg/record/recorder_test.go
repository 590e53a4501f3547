package record

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHeader = []string{"Hora", "Calcio", "Nitratos", "Potasio"}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCreate_WritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "measures.csv")

	r, err := Create(path, testHeader)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, path, r.Path())
	assert.Equal(t, 0, r.Rows())
	assert.Equal(t, "Hora, Calcio, Nitratos, Potasio\n", readFile(t, path))
}

func TestCreate_TruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "measures.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale content\nmore\n"), 0644))

	r, err := Create(path, testHeader)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	assert.Equal(t, "Hora, Calcio, Nitratos, Potasio\n", readFile(t, path))
}

func TestCreate_BadPath(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "missing", "measures.csv"), testHeader)
	assert.Error(t, err)
}

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "measures.csv")
	r, err := Create(path, testHeader)
	require.NoError(t, err)

	require.NoError(t, r.Append("12:00:01", []float64{1.1, 2.2, 3.3}))
	// Rows are visible before Close
	assert.Equal(t, "Hora, Calcio, Nitratos, Potasio\n12:00:01, 1.1, 2.2, 3.3\n", readFile(t, path))

	require.NoError(t, r.Append("12:00:02", []float64{1, 0.25, 4}))
	assert.Equal(t, 2, r.Rows())
	require.NoError(t, r.Close())

	assert.Equal(t,
		"Hora, Calcio, Nitratos, Potasio\n"+
			"12:00:01, 1.1, 2.2, 3.3\n"+
			"12:00:02, 1.0, 0.25, 4.0\n",
		readFile(t, path))
}

func TestClose_Once(t *testing.T) {
	path := filepath.Join(t.TempDir(), "measures.csv")
	r, err := Create(path, testHeader)
	require.NoError(t, err)

	require.NoError(t, r.Append("a", []float64{1, 2, 3}))
	require.NoError(t, r.Close())
	assert.NoError(t, r.Close(), "second close is a no-op")

	assert.ErrorIs(t, r.Append("b", []float64{4, 5, 6}), ErrClosed)
	assert.Equal(t, "Hora, Calcio, Nitratos, Potasio\na, 1.0, 2.0, 3.0\n", readFile(t, path))
}

func TestFormatRow(t *testing.T) {
	tests := []struct {
		name   string
		label  string
		values []float64
		want   string
	}{
		{"three values", "12:00:01", []float64{1.1, 2.2, 3.3}, "12:00:01, 1.1, 2.2, 3.3"},
		{"integers keep a fraction", "t", []float64{1, 2, 3}, "t, 1.0, 2.0, 3.0"},
		{"negative and small", "t", []float64{-0.5, 0.0001}, "t, -0.5, 0.0001"},
		{"no values", "t", nil, "t"},
		{"empty label", "", []float64{1.5}, ", 1.5"},
		{"nan", "t", []float64{math.NaN()}, "t, nan"},
		{"inf", "t", []float64{math.Inf(1), math.Inf(-1)}, "t, inf, -inf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRow(tt.label, tt.values))
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0, "0.0"},
		{math.Copysign(0, -1), "-0.0"},
		{2, "2.0"},
		{3.5056, "3.5056"},
		{0.0001, "0.0001"},
		{0.00012, "0.00012"},
		{1e-05, "1e-05"},
		{-1.5e-07, "-1.5e-07"},
		{1e15, "1000000000000000.0"},
		{1e16, "1e+16"},
		{1.25e20, "1.25e+20"},
		{1e300, "1e+300"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.v))
		})
	}
}
