package codec

// EncodeLegacy is the interleaved all-varint variant: (Δdoc, tf, Δdoc,
// tf, ...) in one stream. It is the format merging two encoded lists
// operates on (decode both, concatenate, re-encode); no production
// caller uses it today.
func EncodeLegacy(postings []Posting) []byte {
	sorted := make([]Posting, len(postings))
	copy(sorted, postings)
	sortPostings(sorted)

	out := make([]byte, 0, len(sorted)*3)
	prevDoc := uint32(0)
	for _, p := range sorted {
		delta := p.DocID - prevDoc
		prevDoc = p.DocID
		out = appendVarint(out, delta)
		out = appendVarint(out, p.TF)
	}
	return out
}

// DecodeLegacy reverses EncodeLegacy.
func DecodeLegacy(data []byte) []Posting {
	var out []Posting
	pos := 0
	docID := uint32(0)
	for pos < len(data) {
		delta, next := readVarint(data, pos)
		if next == pos {
			break
		}
		pos = next

		tf, next2 := readVarint(data, pos)
		if next2 == pos {
			break
		}
		pos = next2

		docID += delta
		out = append(out, Posting{DocID: docID, TF: tf})
	}
	return out
}

// MergeLegacy decodes both interleaved streams, concatenates their
// postings, and re-encodes the result. It is the building block a
// deferred segment-compaction extension would use to merge two
// segments' postings for the same term; nothing in the core flush path
// calls it yet.
func MergeLegacy(a, b []byte) []byte {
	merged := append(DecodeLegacy(a), DecodeLegacy(b)...)
	return EncodeLegacy(merged)
}
