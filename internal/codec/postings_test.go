package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePostings(n int) []Posting {
	p := make([]Posting, n)
	docID := uint32(1)
	for i := 0; i < n; i++ {
		docID += uint32(1 + i%3)
		p[i] = Posting{DocID: docID, TF: uint32(1 + i%7)}
	}
	return p
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 2, 127, 128, 129, 255, 256, 257, 400} {
		n := n
		t.Run("", func(t *testing.T) {
			postings := makePostings(n)
			docs, freqs := EncodeSeparated(postings)
			got := DecodeSeparated(docs, freqs, n)
			require.Len(t, got, n)
			assert.Equal(t, postings, got)
		})
	}
}

func TestStreamingIteratorMatchesDecode(t *testing.T) {
	for _, n := range []int{127, 128, 129, 255, 256, 257} {
		postings := makePostings(n)
		docs, freqs := EncodeSeparated(postings)

		straight := DecodeSeparated(docs, freqs, n)

		it := NewPostingsIter(docs, freqs, n)
		var streamed []Posting
		for it.Next() {
			streamed = append(streamed, Posting{DocID: it.DocID(), TF: it.TF()})
		}
		assert.Equal(t, straight, streamed, "block boundary mismatch at n=%d", n)
	}
}

func TestBlockLayout400Postings(t *testing.T) {
	postings := makePostings(400)
	docs, _ := EncodeSeparated(postings)

	// 400 = 3*128 + 16: three full blocks (each a 1-byte header plus
	// bits*16 packed bytes) followed by a 16-entry varint tail.
	pos := 0
	for i := 0; i < 3; i++ {
		require.Less(t, pos, len(docs))
		bits := docs[pos]
		pos++
		pos += int(bits) * 16
	}
	require.Less(t, pos, len(docs), "expected a varint tail after three full blocks")
}

func TestEncodeSizeBound(t *testing.T) {
	postings := makePostings(50)
	docs, freqs := EncodeSeparated(postings)
	assert.LessOrEqual(t, len(docs)+len(freqs), 50*10)
}

func TestEncodeSortsOutOfOrderInput(t *testing.T) {
	p := []Posting{{DocID: 5, TF: 1}, {DocID: 1, TF: 2}}
	docs, freqs := EncodeSeparated(p)
	got := DecodeSeparated(docs, freqs, 2)
	assert.Equal(t, []Posting{{DocID: 1, TF: 2}, {DocID: 5, TF: 1}}, got)
}
