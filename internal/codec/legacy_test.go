package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLegacyRoundTrip(t *testing.T) {
	postings := makePostings(50)
	encoded := EncodeLegacy(postings)
	assert.Equal(t, postings, DecodeLegacy(encoded))
}

func TestLegacyEmpty(t *testing.T) {
	assert.Empty(t, DecodeLegacy(EncodeLegacy(nil)))
}

func TestMergeLegacy(t *testing.T) {
	a := EncodeLegacy([]Posting{{DocID: 1, TF: 3}, {DocID: 4, TF: 1}})
	b := EncodeLegacy([]Posting{{DocID: 2, TF: 2}, {DocID: 9, TF: 5}})

	merged := MergeLegacy(a, b)
	got := DecodeLegacy(merged)

	assert.Equal(t, []Posting{
		{DocID: 1, TF: 3},
		{DocID: 2, TF: 2},
		{DocID: 4, TF: 1},
		{DocID: 9, TF: 5},
	}, got)
}
