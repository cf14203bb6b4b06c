package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendThenReadAllRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.wal")
	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append(Record{ID: 0, Content: "alpha", Metadata: "{}", Length: 1}))
	require.NoError(t, w.Append(Record{ID: 1, Content: "beta", Metadata: "{}", Length: 1}))

	records, err := w.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "alpha", records[0].Content)
	assert.Equal(t, "beta", records[1].Content)
}

func TestTruncateEmptiesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.wal")
	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append(Record{ID: 0, Content: "alpha", Metadata: "{}", Length: 1}))
	require.NoError(t, w.Truncate())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())

	records, err := w.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadAllSkipsMalformedTailLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.wal")
	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append(Record{ID: 0, Content: "alpha", Metadata: "{}", Length: 1}))
	// Simulate a crash mid-write of the second record: a torn JSON tail.
	_, err = w.file.WriteString(`{"id":1,"content":"bet`)
	require.NoError(t, err)

	records, err := w.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "alpha", records[0].Content)
}

func TestReadAllOnEmptyFileReturnsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.wal")
	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	records, err := w.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}
