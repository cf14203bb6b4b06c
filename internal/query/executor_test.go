package query

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/enrell/boogle/internal/analysis"
	"github.com/enrell/boogle/internal/segment"
)

func buildTestSegment(t *testing.T, batch segment.BatchData) *segment.Reader {
	t.Helper()
	dir := t.TempDir()
	batch.SegmentDir = dir

	w := segment.NewWriter(zap.NewNop())
	_, err := w.Build(batch)
	require.NoError(t, err)

	r, err := segment.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

// TestExecutorShorterDocumentScoresHigher implements spec.md §8 scenario
// S1: "the cat sat" and "the cat" both contain "cat"; the shorter chunk
// must score strictly higher.
func TestExecutorShorterDocumentScoresHigher(t *testing.T) {
	seg := buildTestSegment(t, segment.BatchData{
		Docs: []segment.ProcessedDoc{
			{BookID: "book-0", Chunks: []segment.ChunkFreq{
				{Length: 3, Freqs: map[string]uint32{"cat": 1, "sat": 1}},
			}},
			{BookID: "book-1", Chunks: []segment.ChunkFreq{
				{Length: 2, Freqs: map[string]uint32{"cat": 1}},
			}},
		},
	})

	exec := NewExecutor(analysis.New())
	corpus := Corpus{TotalDocs: 2, AvgDL: 2.5}

	hits := exec.Search("cat", []*segment.Reader{seg}, corpus, 10)
	require.Len(t, hits, 2)

	byDocID := map[uint32]Hit{}
	for _, h := range hits {
		byDocID[h.DocID] = h
	}
	require.Contains(t, byDocID, uint32(0))
	require.Contains(t, byDocID, uint32(1))
	assert.Greater(t, byDocID[1].Score, byDocID[0].Score)
}

// TestExecutorIDFMatchesSpecExample implements spec.md §8 scenario S2:
// 300 chunks, "umbrella" appears in exactly one. IDF should evaluate to
// approximately 5.30.
func TestExecutorIDFMatchesSpecExample(t *testing.T) {
	got := idf(300, 1)
	assert.InDelta(t, 5.30, got, 0.01)
}

// TestExecutorRareTermTopsResults indexes "umbrella" in two of 300 chunks
// (a single posting would be dropped by segment.MinPostingsPerTerm), with
// the higher term frequency in chunk 42, which must rank first.
func TestExecutorRareTermTopsResults(t *testing.T) {
	docs := make([]segment.ProcessedDoc, 0, 300)
	for i := 0; i < 300; i++ {
		freqs := map[string]uint32{"filler": 1}
		if i == 42 {
			freqs["umbrella"] = 2
		}
		if i == 7 {
			freqs["umbrella"] = 1
		}
		docs = append(docs, segment.ProcessedDoc{
			BookID: "book",
			Chunks: []segment.ChunkFreq{{Length: 5, Freqs: freqs}},
		})
	}
	seg := buildTestSegment(t, segment.BatchData{Docs: docs})

	exec := NewExecutor(analysis.New())
	corpus := Corpus{TotalDocs: 300, AvgDL: 5}

	hits := exec.Search("umbrella", []*segment.Reader{seg}, corpus, 1)
	require.Len(t, hits, 1)
	assert.Equal(t, uint32(42), hits[0].DocID)
}

func TestExecutorFuzzyFallbackOnTypo(t *testing.T) {
	seg := buildTestSegment(t, segment.BatchData{
		Docs: []segment.ProcessedDoc{
			{BookID: "a", Chunks: []segment.ChunkFreq{
				{Length: 1, Freqs: map[string]uint32{"cat": 1}},
				{Length: 1, Freqs: map[string]uint32{"cat": 1}},
			}},
		},
	})

	exec := NewExecutor(analysis.New())
	corpus := Corpus{TotalDocs: 2, AvgDL: 1}

	hits := exec.Search("catt", []*segment.Reader{seg}, corpus, 10)
	assert.NotEmpty(t, hits)
}

func TestExecutorEmptyQueryAfterStopwordsReturnsNoResults(t *testing.T) {
	seg := buildTestSegment(t, segment.BatchData{
		Docs: []segment.ProcessedDoc{
			{BookID: "a", Chunks: []segment.ChunkFreq{
				{Length: 1, Freqs: map[string]uint32{"cat": 1}},
				{Length: 1, Freqs: map[string]uint32{"cat": 1}},
			}},
		},
	})

	exec := NewExecutor(analysis.New(), WithStopwords([]string{"cat"}))
	hits := exec.Search("cat", []*segment.Reader{seg}, Corpus{TotalDocs: 2, AvgDL: 1}, 10)
	assert.Empty(t, hits)
}

func TestExecutorNaNScoreTreatedAsEqualInSort(t *testing.T) {
	acc := map[uint32]float64{
		1: math.NaN(),
		2: 5.0,
	}
	seg := buildTestSegment(t, segment.BatchData{
		Docs: []segment.ProcessedDoc{
			{BookID: "a", Chunks: []segment.ChunkFreq{
				{Length: 1, Freqs: map[string]uint32{"x": 1}},
				{Length: 1, Freqs: map[string]uint32{"x": 1}},
			}},
		},
	})
	exec := NewExecutor(analysis.New())

	assert.NotPanics(t, func() {
		exec.topK(acc, []*segment.Reader{seg}, 10)
	})
}
