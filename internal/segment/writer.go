package segment

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/blevesearch/vellum"
	"go.uber.org/zap"

	"github.com/enrell/boogle/internal/codec"
)

// Writer builds one immutable segment per call to Build. It holds no
// state between calls; parallelism is internal to a single Build.
type Writer struct {
	logger *zap.Logger
}

// NewWriter returns a Writer that logs with logger (never nil; pass
// zap.NewNop() in tests that don't care).
func NewWriter(logger *zap.Logger) *Writer {
	return &Writer{logger: logger}
}

// Build performs the entire segment construction in one blocking call.
// Any I/O error aborts the build; the caller must not register the
// segment in index.json if Build returns an error, since partial files
// may have been left behind.
func (w *Writer) Build(data BatchData) (Meta, error) {
	if err := os.MkdirAll(data.SegmentDir, 0o755); err != nil {
		return Meta{}, fmt.Errorf("segment: create dir %s: %w", data.SegmentDir, err)
	}

	flat := flatten(data)

	terms := invert(flat.chunkFreqs)
	sortedTerms := sortedTermList(terms)

	encodedDocs, encodedFreqs, offsets := encodeAll(sortedTerms)

	if err := w.writeBinary(data.SegmentDir, FilePostingsDocs, encodedDocs); err != nil {
		return Meta{}, err
	}
	if err := w.writeBinary(data.SegmentDir, FilePostingsFreqs, encodedFreqs); err != nil {
		return Meta{}, err
	}
	if err := w.writeBinary(data.SegmentDir, FileOffsets, offsets); err != nil {
		return Meta{}, err
	}

	fstBytes, err := buildFST(sortedTerms)
	if err != nil {
		return Meta{}, fmt.Errorf("segment: build terms.fst: %w", err)
	}
	if err := w.writeBinary(data.SegmentDir, FileTermsFST, fstBytes); err != nil {
		return Meta{}, err
	}

	chunksBlob := buildChunksBlob(flat.chunkToBook, flat.bookIDs)
	if err := w.writeBinary(data.SegmentDir, FileChunks, chunksBlob); err != nil {
		return Meta{}, err
	}

	lengthsBlob := buildLengthsBlob(flat.docLengths)
	if err := w.writeBinary(data.SegmentDir, FileDocLengths, lengthsBlob); err != nil {
		return Meta{}, err
	}

	meta := Meta{
		NumDocs:     uint32(len(flat.docLengths)),
		BaseDocID:   data.BaseDocID,
		TotalLength: flat.totalLength,
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return Meta{}, fmt.Errorf("segment: marshal meta.json: %w", err)
	}
	if err := w.writeBinary(data.SegmentDir, FileMeta, metaBytes); err != nil {
		return Meta{}, err
	}

	w.logger.Info("Segment written",
		zap.String("dir", data.SegmentDir),
		zap.Uint32("num_docs", meta.NumDocs),
		zap.Int("num_terms", len(sortedTerms)),
	)
	return meta, nil
}

// flattened holds the per-docId bookkeeping built before the terms are
// inverted.
type flattened struct {
	bookIDs     []string           // indexed by book_idx (u16)
	chunkToBook []uint16           // indexed by local doc index
	docLengths  []uint32           // indexed by local doc index
	chunkFreqs  []docTermFreqs     // indexed by local doc index, doc_id = base+idx
	totalLength uint64
}

type docTermFreqs struct {
	docID uint32
	freqs map[string]uint32
}

func flatten(data BatchData) flattened {
	totalChunks := 0
	for _, d := range data.Docs {
		totalChunks += len(d.Chunks)
	}

	f := flattened{
		bookIDs:     make([]string, 0, len(data.Docs)),
		chunkToBook: make([]uint16, 0, totalChunks),
		docLengths:  make([]uint32, 0, totalChunks),
		chunkFreqs:  make([]docTermFreqs, 0, totalChunks),
	}

	for _, doc := range data.Docs {
		bookIdx := uint16(len(f.bookIDs))
		f.bookIDs = append(f.bookIDs, doc.BookID)

		for _, chunk := range doc.Chunks {
			docID := data.BaseDocID + uint32(len(f.chunkToBook))
			f.chunkToBook = append(f.chunkToBook, bookIdx)
			f.docLengths = append(f.docLengths, chunk.Length)
			f.totalLength += uint64(chunk.Length)
			f.chunkFreqs = append(f.chunkFreqs, docTermFreqs{docID: docID, freqs: chunk.Freqs})
		}
	}
	return f
}

// invert folds every chunk's (term, freq) pairs into a global
// term → postings map, dropping terms with fewer than MinPostingsPerTerm
// postings. Docs are processed in increasing docId order, so each
// term's posting list is built already sorted; no secondary sort pass
// is needed.
func invert(chunks []docTermFreqs) map[string][]codec.Posting {
	terms := make(map[string][]codec.Posting, 1<<19)
	for _, doc := range chunks {
		for term, freq := range doc.freqs {
			terms[term] = append(terms[term], codec.Posting{DocID: doc.docID, TF: freq})
		}
	}
	for term, postings := range terms {
		if len(postings) < MinPostingsPerTerm {
			delete(terms, term)
		}
	}
	return terms
}

type sortedTerm struct {
	term     string
	postings []codec.Posting
}

func sortedTermList(terms map[string][]codec.Posting) []sortedTerm {
	out := make([]sortedTerm, 0, len(terms))
	for term, postings := range terms {
		out = append(out, sortedTerm{term: term, postings: postings})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].term < out[j].term })
	return out
}

// encodeAll bit-packs every term's postings in parallel, then
// concatenates the results into the two blob files and builds the
// 28-byte-per-term offsets table.
func encodeAll(terms []sortedTerm) (docsBlob, freqsBlob, offsetsBlob []byte) {
	type encoded struct {
		docs, freqs []byte
	}
	results := make([]encoded, len(terms))

	var wg sync.WaitGroup
	numWorkers := parallelism(len(terms))
	jobs := make(chan int, len(terms))
	for i := range terms {
		jobs <- i
	}
	close(jobs)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				docs, freqs := codec.EncodeSeparated(terms[i].postings)
				results[i] = encoded{docs: docs, freqs: freqs}
			}
		}()
	}
	wg.Wait()

	offsetsBlob = make([]byte, 0, len(terms)*offsetsRowSize)
	var docOff, freqOff uint64

	for i, term := range terms {
		e := results[i]
		docsBlob = append(docsBlob, e.docs...)
		freqsBlob = append(freqsBlob, e.freqs...)

		row := make([]byte, offsetsRowSize)
		binary.LittleEndian.PutUint64(row[0:8], docOff)
		binary.LittleEndian.PutUint32(row[8:12], uint32(len(e.docs)))
		binary.LittleEndian.PutUint64(row[12:20], freqOff)
		binary.LittleEndian.PutUint32(row[20:24], uint32(len(e.freqs)))
		binary.LittleEndian.PutUint32(row[24:28], uint32(len(term.postings)))
		offsetsBlob = append(offsetsBlob, row...)

		docOff += uint64(len(e.docs))
		freqOff += uint64(len(e.freqs))
	}
	return docsBlob, freqsBlob, offsetsBlob
}

func parallelism(n int) int {
	if n < 256 {
		return 1
	}
	w := 8
	if w > n {
		w = n
	}
	return w
}

// buildFST maps each sorted term to its row index into the offsets
// table, giving O(|term|) lookup plus fuzzy automata search at read
// time.
func buildFST(terms []sortedTerm) ([]byte, error) {
	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, err
	}
	for idx, t := range terms {
		if err := builder.Insert([]byte(t.term), uint64(idx)); err != nil {
			return nil, fmt.Errorf("insert term %q: %w", t.term, err)
		}
	}
	if err := builder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buildChunksBlob lays out (num_chunks+1) u32 offsets followed by the
// concatenated book_id bytes, each chunk's book_id indirected through
// the book table.
func buildChunksBlob(chunkToBook []uint16, bookIDs []string) []byte {
	data := make([]byte, 0, len(chunkToBook)*8)
	offsets := make([]uint32, 0, len(chunkToBook)+1)

	for _, bookIdx := range chunkToBook {
		offsets = append(offsets, uint32(len(data)))
		data = append(data, bookIDs[bookIdx]...)
	}
	offsets = append(offsets, uint32(len(data)))

	blob := make([]byte, 0, len(offsets)*4+len(data))
	var tmp [4]byte
	for _, off := range offsets {
		binary.LittleEndian.PutUint32(tmp[:], off)
		blob = append(blob, tmp[:]...)
	}
	blob = append(blob, data...)
	return blob
}

func buildLengthsBlob(lengths []uint32) []byte {
	blob := make([]byte, len(lengths)*4)
	for i, l := range lengths {
		binary.LittleEndian.PutUint32(blob[i*4:i*4+4], l)
	}
	return blob
}

func (w *Writer) writeBinary(dir, name string, data []byte) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("segment: write %s: %w", path, err)
	}
	return nil
}
