package table

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "signals.csv")

	f := New("symbol", "close")
	f.AppendRow("AAPL", "220.5")
	f.AppendRow("MSFT", "410")

	require.NoError(t, WriteCSV(f, path), "parent directory should be created")

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, f.Columns, got.Columns)
	assert.Equal(t, f.Rows, got.Rows)
}

func TestReadCSV_MissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestReadCSV_RaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	raw := "a,b,c\n1,2\n1,2,3,4\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	f, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", ""}, f.Rows[0])
	assert.Equal(t, []string{"1", "2", "3"}, f.Rows[1])
}

func TestAppendCSV_CreatesWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")

	f := New("symbol", "run_date")
	f.AppendRow("AAPL", "2025-08-04")
	require.NoError(t, AppendCSV(f, path))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"symbol", "run_date"}, got.Columns)
	assert.Equal(t, 1, got.NumRows())
}

func TestAppendCSV_AlignsToExistingHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")

	first := New("symbol", "run_date", "close")
	first.AppendRow("AAPL", "2025-08-04", "220")
	require.NoError(t, AppendCSV(first, path))

	// Later batch with reordered columns, one missing, one extra.
	second := New("run_date", "symbol", "volume")
	second.AppendRow("2025-08-05", "MSFT", "12345")
	require.NoError(t, AppendCSV(second, path))

	got, err := ReadCSV(path)
	require.NoError(t, err)

	// Single header, schema fixed by the first write.
	assert.Equal(t, []string{"symbol", "run_date", "close"}, got.Columns)
	require.Equal(t, 2, got.NumRows())
	assert.Equal(t, []string{"MSFT", "2025-08-05", ""}, got.Rows[1])
	assert.Equal(t, -1, got.Col("volume"), "columns absent from the file schema are dropped")
}
