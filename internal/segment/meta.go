// Package segment builds and reads the immutable, mmap-backed on-disk
// segments that anchor the engine's persisted index.
package segment

// ChunkFreq is one chunk's contribution to a batch: its analyzed length
// in tokens and its term→frequency map after stopword removal.
type ChunkFreq struct {
	Length uint32
	Freqs  map[string]uint32
}

// ProcessedDoc is one book's worth of chunks, as handed to the writer by
// the streaming pipeline or by any other batch producer.
type ProcessedDoc struct {
	BookID string
	Chunks []ChunkFreq
}

// BatchData is the writer's sole input: a contiguous range of docIds
// starting at BaseDocID, to be written as one immutable segment.
type BatchData struct {
	SegmentID  int
	SegmentDir string
	BaseDocID  uint32
	Docs       []ProcessedDoc
}

// Meta is the small JSON header stored as meta.json inside a segment
// directory.
type Meta struct {
	NumDocs     uint32 `json:"num_docs"`
	BaseDocID   uint32 `json:"base_doc_id"`
	TotalLength uint64 `json:"total_length"`
}

// offsetsRowSize is the fixed 28-byte width of one row of offsets.bin:
// doc_off(u64) doc_len(u32) freq_off(u64) freq_len(u32) doc_count(u32).
const offsetsRowSize = 28

// MinPostingsPerTerm is the singleton-term filter: terms with fewer
// postings than this are dropped from a segment as a size optimization.
// This sacrifices exhaustive recall for hapax legomena within a single
// segment, an accepted trade, not a bug.
const MinPostingsPerTerm = 2

const (
	FileTermsFST        = "terms.fst"
	FileOffsets         = "offsets.bin"
	FilePostingsDocs    = "postings_docs.bin"
	FilePostingsFreqs   = "postings_freqs.bin"
	FileChunks          = "chunks.bin"
	FileDocLengths      = "doc_lengths.bin"
	FileMeta            = "meta.json"
)
