package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextShortTextReturnsOneChunk(t *testing.T) {
	chunks := chunkText("the cat sat on the mat", 1000, 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "the cat sat on the mat", chunks[0])
}

func TestChunkTextEmptyTextReturnsNil(t *testing.T) {
	assert.Nil(t, chunkText("", 1000, 100))
	assert.Nil(t, chunkText("   ", 1000, 100))
}

func TestChunkTextLongTextProducesOverlappingChunks(t *testing.T) {
	word := "lorem "
	text := strings.Repeat(word, 1000) // 6000 chars
	chunks := chunkText(text, 1000, 100)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 1000)
	}
}

func TestChunkTextBreaksOnWordBoundary(t *testing.T) {
	text := strings.Repeat("a", 950) + " " + strings.Repeat("b", 949)
	chunks := chunkText(text, 1000, 100)
	require.NotEmpty(t, chunks)
	// The first chunk must not end mid-word: it should end at the space
	// boundary rather than hard-cutting "b"s.
	assert.False(t, strings.HasSuffix(chunks[0], "bb"))
}

func TestChunkTextMakesProgressWithDegenerateOverlap(t *testing.T) {
	text := strings.Repeat("x", 5000)
	chunks := chunkText(text, 100, 100)
	// overlap == chunk_size would stall without the force-progress guard.
	assert.NotEmpty(t, chunks)
	assert.Less(t, len(chunks), 1000)
}
