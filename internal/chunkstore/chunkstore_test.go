package chunkstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutThenGetRoundTrips(t *testing.T) {
	s := New(t.TempDir())

	chunks := []string{"the cat sat on the mat", "the cat sat again"}
	require.NoError(t, s.Put("book-001", chunks))

	got, err := s.Get("book-001")
	require.NoError(t, err)
	assert.Equal(t, chunks, got)
}

func TestExistsReflectsPut(t *testing.T) {
	s := New(t.TempDir())
	assert.False(t, s.Exists("book-001"))

	require.NoError(t, s.Put("book-001", []string{"chunk"}))
	assert.True(t, s.Exists("book-001"))
}

func TestShardPrefixPadsShortBookIDs(t *testing.T) {
	assert.Equal(t, "00", shard(""))
	assert.Equal(t, "0a", shard("a"))
	assert.Equal(t, "ab", shard("abc"))
}

func TestGetOnMissingBookReturnsError(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Get("nonexistent")
	assert.Error(t, err)
}
