package realtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/enrell/boogle/internal/analysis"
	"github.com/enrell/boogle/internal/segment"
)

func writeSeedSegment(t *testing.T, indexDir string) {
	t.Helper()
	segDir := filepath.Join(indexDir, "segment-00000")
	w := segment.NewWriter(zap.NewNop())
	docs := make([]segment.ProcessedDoc, 0, 10)
	for i := 0; i < 10; i++ {
		docs = append(docs, segment.ProcessedDoc{
			BookID: "book-seed",
			Chunks: []segment.ChunkFreq{{Length: 3, Freqs: map[string]uint32{"gato": 1, "sentou": 1}}},
		})
	}
	meta, err := w.Build(segment.BatchData{SegmentDir: segDir, BaseDocID: 0, Docs: docs})
	require.NoError(t, err)

	require.NoError(t, segment.SaveManifest(indexDir, segment.Manifest{
		Segments:  []string{"segment-00000"},
		TotalDocs: meta.NumDocs,
		AvgDL:     3,
	}))
}

// TestControllerSurfacesNewDocumentBeforeFlush starts from a 10-chunk
// seed segment on disk, adds one document via the controller, and
// expects a term present only in that document to surface as a RAM hit
// without any flush.
func TestControllerSurfacesNewDocumentBeforeFlush(t *testing.T) {
	dir := t.TempDir()
	writeSeedSegment(t, dir)

	c, err := Open(dir, analysis.New(), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.AddDocument("umbrella appears here only", "{}")
	require.NoError(t, err)

	hits := c.Search("umbrella", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, RAMBookID, hits[0].BookID)
}

func TestControllerFlushMovesRAMDocsToNewSegmentAndTruncatesWAL(t *testing.T) {
	dir := t.TempDir()
	writeSeedSegment(t, dir)

	c, err := Open(dir, analysis.New(), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.AddDocument("umbrella appears here only", "{}")
	require.NoError(t, err)
	require.Equal(t, 1, c.ram.Len())
	// A second posting keeps "umbrella" past segment.MinPostingsPerTerm.
	_, err = c.AddDocument("umbrella appears here only", "{}")
	require.NoError(t, err)

	require.NoError(t, c.Flush())
	assert.Equal(t, 0, c.ram.Len())

	walInfo, err := os.Stat(filepath.Join(dir, "index.wal"))
	require.NoError(t, err)
	assert.Zero(t, walInfo.Size())

	// The RAM index is empty, so these hits come from the new segment,
	// which stores RAMBookID as the book id of flushed documents.
	hits := c.Search("umbrella", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, RAMBookID, hits[0].BookID)
}

func TestControllerReopenReplaysWAL(t *testing.T) {
	dir := t.TempDir()
	writeSeedSegment(t, dir)

	c, err := Open(dir, analysis.New(), zap.NewNop())
	require.NoError(t, err)
	_, err = c.AddDocument("umbrella appears here only", "{}")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c2, err := Open(dir, analysis.New(), zap.NewNop())
	require.NoError(t, err)
	defer c2.Close()

	hits := c2.Search("umbrella", 10)
	require.NotEmpty(t, hits)
}
