package codec

// PostingsIter streams (docId, tf) pairs lazily out of the two encoded
// byte streams without allocating in Next(). At most one block is
// decompressed ahead of the caller's position.
type PostingsIter struct {
	docData  []byte
	freqData []byte
	docPos   int
	freqPos  int

	remaining int
	curDocID  uint32

	docBuf, freqBuf [BlockLen]uint32
	bufIdx, bufLen  int

	curTF uint32
}

// NewPostingsIter constructs an iterator over exactly numPostings
// (docId, tf) pairs encoded by EncodeSeparated.
func NewPostingsIter(docData, freqData []byte, numPostings int) *PostingsIter {
	return &PostingsIter{
		docData:   docData,
		freqData:  freqData,
		remaining: numPostings,
		bufIdx:    BlockLen, // force a refill on the first Next()
	}
}

// Next advances the iterator. It returns false once all postings have
// been consumed.
func (it *PostingsIter) Next() bool {
	if it.remaining == 0 {
		return false
	}

	if it.bufIdx >= it.bufLen {
		it.refill()
	}

	delta := it.docBuf[it.bufIdx]
	it.curTF = it.freqBuf[it.bufIdx]
	it.bufIdx++
	it.curDocID += delta
	it.remaining--
	return true
}

// DocID returns the current posting's docId. Valid only after Next
// returned true.
func (it *PostingsIter) DocID() uint32 { return it.curDocID }

// TF returns the current posting's term frequency.
func (it *PostingsIter) TF() uint32 { return it.curTF }

func (it *PostingsIter) refill() {
	if it.remaining >= BlockLen && it.docPos < len(it.docData) {
		it.refillBlock()
		return
	}
	it.refillTailEntry()
}

func (it *PostingsIter) refillBlock() {
	docBits := it.docData[it.docPos]
	it.docPos++
	docBytes := int(docBits) * 16
	readBlock(it.docData[it.docPos:it.docPos+docBytes], docBits, it.docBuf[:])
	it.docPos += docBytes

	freqBits := it.freqData[it.freqPos]
	it.freqPos++
	freqBytes := int(freqBits) * 16
	readBlock(it.freqData[it.freqPos:it.freqPos+freqBytes], freqBits, it.freqBuf[:])
	it.freqPos += freqBytes

	it.bufIdx = 0
	it.bufLen = BlockLen
}

// refillTailEntry decodes exactly one varint-encoded (delta, tf) pair
// into slot 0 of the buffers; the tail is never block-refilled since it
// holds fewer than BlockLen entries.
func (it *PostingsIter) refillTailEntry() {
	delta, newDocPos := readVarint(it.docData, it.docPos)
	it.docPos = newDocPos

	tf, newFreqPos := readVarint(it.freqData, it.freqPos)
	it.freqPos = newFreqPos

	it.docBuf[0] = delta
	it.freqBuf[0] = tf
	it.bufIdx = 0
	it.bufLen = 1
}
