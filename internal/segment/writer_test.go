package segment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBatch() BatchData {
	return BatchData{
		SegmentID: 0,
		BaseDocID: 0,
		Docs: []ProcessedDoc{
			{
				BookID: "alpha",
				Chunks: []ChunkFreq{
					{Length: 3, Freqs: map[string]uint32{"gato": 2, "sentou": 1}},
					{Length: 2, Freqs: map[string]uint32{"gato": 1}},
				},
			},
			{
				BookID: "beta",
				Chunks: []ChunkFreq{
					{Length: 4, Freqs: map[string]uint32{"umbrella": 1, "chuva": 2}},
				},
			},
		},
	}
}

func TestWriterBuildProducesExpectedFiles(t *testing.T) {
	dir := t.TempDir()
	batch := newTestBatch()
	batch.SegmentDir = dir

	w := NewWriter(zap.NewNop())
	meta, err := w.Build(batch)
	require.NoError(t, err)

	assert.Equal(t, uint32(3), meta.NumDocs)
	assert.Equal(t, uint32(0), meta.BaseDocID)
	assert.Equal(t, uint64(3+2+4), meta.TotalLength)

	for _, name := range []string{FileTermsFST, FileOffsets, FilePostingsDocs, FilePostingsFreqs, FileChunks, FileDocLengths, FileMeta} {
		_, statErr := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, statErr, "expected file %s to exist", name)
	}
}

func TestWriterSingletonFilter(t *testing.T) {
	dir := t.TempDir()
	batch := newTestBatch()
	batch.SegmentDir = dir

	w := NewWriter(zap.NewNop())
	_, err := w.Build(batch)
	require.NoError(t, err)

	r, err := Open(dir)
	require.NoError(t, err)
	defer r.Close()

	// "sentou", "umbrella" and "chuva" each appear in only one chunk and
	// are dropped by the singleton-term filter (MinPostingsPerTerm=2).
	_, found := r.GetDocFreq("sentou")
	assert.False(t, found)

	// "gato" appears in two chunks and survives.
	df, found := r.GetDocFreq("gato")
	assert.True(t, found)
	assert.Equal(t, uint32(2), df)
}

func TestWriterTermOrdering(t *testing.T) {
	dir := t.TempDir()
	batch := BatchData{
		BaseDocID: 0,
		Docs: []ProcessedDoc{
			{BookID: "a", Chunks: []ChunkFreq{
				{Length: 1, Freqs: map[string]uint32{"zebra": 1, "abacate": 1}},
			}},
			{BookID: "b", Chunks: []ChunkFreq{
				{Length: 1, Freqs: map[string]uint32{"zebra": 1, "abacate": 1}},
			}},
		},
		SegmentDir: dir,
	}

	w := NewWriter(zap.NewNop())
	_, err := w.Build(batch)
	require.NoError(t, err)

	r, err := Open(dir)
	require.NoError(t, err)
	defer r.Close()

	_, found := r.GetDocFreq("abacate")
	assert.True(t, found)
	_, found = r.GetDocFreq("zebra")
	assert.True(t, found)
}
