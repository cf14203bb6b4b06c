// Package codec implements the on-disk postings format: blocks of 128
// bit-packed (delta-doc, tf) pairs followed by a varint-encoded tail,
// plus a streaming decoder that never allocates in its hot loop.
package codec

// BlockLen is the number of postings packed into one bit-packed block
// before falling back to varints for the remainder.
const BlockLen = 128

// Posting is a single (docId, tf) pair prior to encoding.
type Posting struct {
	DocID uint32
	TF    uint32
}

// EncodeSeparated sorts postings by docId and produces the two parallel
// byte streams the segment writer stores as postings_docs.bin and
// postings_freqs.bin. Docs are delta-encoded against the previous docId
// (d_-1 = 0); freqs are stored raw. Every full block of BlockLen postings
// is bit-packed; the remainder is LEB128 varints, docs and freqs still in
// lockstep.
func EncodeSeparated(postings []Posting) (docsOut, freqsOut []byte) {
	sorted := make([]Posting, len(postings))
	copy(sorted, postings)
	sortPostings(sorted)

	docsOut = make([]byte, 0, len(sorted)*2)
	freqsOut = make([]byte, 0, len(sorted)*2)

	var docBlock, freqBlock [BlockLen]uint32
	count := 0
	prevDoc := uint32(0)

	for _, p := range sorted {
		delta := p.DocID - prevDoc
		prevDoc = p.DocID

		docBlock[count] = delta
		freqBlock[count] = p.TF
		count++

		if count == BlockLen {
			docsOut = appendBlock(docsOut, docBlock[:])
			freqsOut = appendBlock(freqsOut, freqBlock[:])
			count = 0
		}
	}

	for i := 0; i < count; i++ {
		docsOut = appendVarint(docsOut, docBlock[i])
		freqsOut = appendVarint(freqsOut, freqBlock[i])
	}

	return docsOut, freqsOut
}

// DecodeSeparated reverses EncodeSeparated given the expected total
// posting count (stored alongside the offsets table as doc_count).
func DecodeSeparated(docsData, freqsData []byte, numPostings int) []Posting {
	it := NewPostingsIter(docsData, freqsData, numPostings)
	out := make([]Posting, 0, numPostings)
	for it.Next() {
		out = append(out, Posting{DocID: it.DocID(), TF: it.TF()})
	}
	return out
}

func sortPostings(p []Posting) {
	// Insertion sort: docs arriving from the writer are usually already
	// close to sorted (one posting per chunk in doc order), so this stays
	// cheap; badly out-of-order input costs quadratic time.
	for i := 1; i < len(p); i++ {
		for j := i; j > 0 && p[j-1].DocID > p[j].DocID; j-- {
			p[j-1], p[j] = p[j], p[j-1]
		}
	}
}

func bitsNeeded(v uint32) uint8 {
	var bits uint8
	for v > 0 {
		bits++
		v >>= 1
	}
	return bits
}

// appendBlock bit-packs exactly BlockLen uint32s into dst, prefixed by a
// one-byte bit-width header. The packed region is always bits*16 bytes
// (128 values at `bits` bits each, byte-aligned).
func appendBlock(dst []byte, values []uint32) []byte {
	max := uint32(0)
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	bits := bitsNeeded(max)
	if bits == 0 {
		bits = 1
	}
	dst = append(dst, bits)

	packedLen := int(bits) * 16
	start := len(dst)
	dst = append(dst, make([]byte, packedLen)...)
	packed := dst[start:]

	var bitPos uint32
	for _, v := range values {
		writeBits(packed, bitPos, uint32(bits), v)
		bitPos += uint32(bits)
	}
	return dst
}

func readBlock(src []byte, bits uint8, out []uint32) {
	var bitPos uint32
	for i := range out {
		out[i] = readBits(src, bitPos, uint32(bits))
		bitPos += uint32(bits)
	}
}

func writeBits(dst []byte, bitPos, width, value uint32) {
	for i := uint32(0); i < width; i++ {
		if value&(1<<i) != 0 {
			bytePos := (bitPos + i) / 8
			bitOff := (bitPos + i) % 8
			dst[bytePos] |= 1 << bitOff
		}
	}
}

func readBits(src []byte, bitPos, width uint32) uint32 {
	var v uint32
	for i := uint32(0); i < width; i++ {
		bytePos := (bitPos + i) / 8
		bitOff := (bitPos + i) % 8
		if src[bytePos]&(1<<bitOff) != 0 {
			v |= 1 << i
		}
	}
	return v
}

func appendVarint(dst []byte, v uint32) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

func readVarint(data []byte, pos int) (uint32, int) {
	var result uint32
	var shift uint
	for {
		if pos >= len(data) {
			return result, pos
		}
		b := data[pos]
		pos++
		result |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return result, pos
}
