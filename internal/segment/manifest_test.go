package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifestOnMissingFileReturnsEmpty(t *testing.T) {
	m, err := LoadManifest(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Manifest{}, m)
}

func TestSaveThenLoadManifestRoundTrips(t *testing.T) {
	dir := t.TempDir()
	want := Manifest{Segments: []string{"seg-0", "seg-1"}, TotalDocs: 42, AvgDL: 12.5}

	require.NoError(t, SaveManifest(dir, want))

	got, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveManifestOverwritesPreviousVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveManifest(dir, Manifest{Segments: []string{"seg-0"}, TotalDocs: 1}))
	require.NoError(t, SaveManifest(dir, Manifest{Segments: []string{"seg-0", "seg-1"}, TotalDocs: 2}))

	got, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"seg-0", "seg-1"}, got.Segments)
	assert.Equal(t, uint32(2), got.TotalDocs)
}
