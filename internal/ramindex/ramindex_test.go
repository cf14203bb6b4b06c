package ramindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enrell/boogle/internal/analysis"
)

func TestInsertAssignsSequentialIDsFromOffset(t *testing.T) {
	idx := New(analysis.New(), 100)

	id0, _ := idx.Insert("the cat sat", "{}")
	id1, _ := idx.Insert("the cat", "{}")

	assert.Equal(t, uint32(100), id0)
	assert.Equal(t, uint32(101), id1)
	assert.Equal(t, uint32(102), idx.NextDocID())
}

func TestSearchFindsInsertedDocument(t *testing.T) {
	idx := New(analysis.New(), 0)
	idx.Insert("the cat sat on the mat", "{}")
	idx.Insert("a completely unrelated sentence", "{}")

	hits := idx.Search("cat", 10)
	require.Len(t, hits, 1)
	assert.Equal(t, uint32(0), hits[0].DocID)
}

func TestSearchShorterDocumentScoresHigher(t *testing.T) {
	idx := New(analysis.New(), 0)
	idx.Insert("the cat sat", "{}")
	idx.Insert("the cat", "{}")

	hits := idx.Search("cat", 10)
	require.Len(t, hits, 2)
	byDocID := map[uint32]Hit{}
	for _, h := range hits {
		byDocID[h.DocID] = h
	}
	assert.Greater(t, byDocID[1].Score, byDocID[0].Score)
}

func TestSnapshotReturnsDocsInDocIDOrder(t *testing.T) {
	idx := New(analysis.New(), 0)
	idx.Insert("bravo", "{}")
	idx.Insert("alpha", "{}")

	snap := idx.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, uint32(0), snap[0].DocID)
	assert.Equal(t, uint32(1), snap[1].DocID)
}

func TestClearEmptiesIndexButKeepsNextDocID(t *testing.T) {
	idx := New(analysis.New(), 0)
	idx.Insert("alpha", "{}")
	idx.Insert("beta", "{}")
	require.Equal(t, 2, idx.Len())

	idx.Clear()
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, uint32(2), idx.NextDocID())

	id, _ := idx.Insert("gamma", "{}")
	assert.Equal(t, uint32(2), id)
}

func TestInsertWithIDAdvancesNextDocIDPastReplayedID(t *testing.T) {
	idx := New(analysis.New(), 0)
	idx.InsertWithID(7, "replayed content", "{}", 2)
	assert.Equal(t, uint32(8), idx.NextDocID())
}

func TestSearchOnEmptyIndexReturnsNil(t *testing.T) {
	idx := New(analysis.New(), 0)
	assert.Nil(t, idx.Search("cat", 10))
}
