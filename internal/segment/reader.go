package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/mmap-go"
	"github.com/blevesearch/vellum"
	"github.com/blevesearch/vellum/levenshtein"

	"github.com/enrell/boogle/internal/codec"
)

// Reader memory-maps one segment directory and answers term and docId
// lookups against it. It owns every mmap handle it opens; those mmaps
// must outlive any PostingsIter it hands out. A Reader is safe for
// concurrent use once Open returns, since all of its state is immutable
// afterward.
type Reader struct {
	dir string

	termsFile   *os.File
	termsMmap   mmap.MMap
	termsFST    *vellum.FST

	offsetsFile *os.File
	offsetsMmap mmap.MMap

	docsFile *os.File
	docsMmap mmap.MMap

	freqsFile *os.File
	freqsMmap mmap.MMap

	chunksFile *os.File
	chunksMmap mmap.MMap

	lengthsFile *os.File
	lengthsMmap mmap.MMap

	baseDocID uint32
	numDocs   uint32
}

// Open memory-maps every file in segmentDir and parses meta.json. A
// missing or unreadable file fails the open outright; a corrupt FST or
// header fails the open as well. Once open, individual out-of-range
// lookups return (zero, false) rather than erroring.
func Open(segmentDir string) (*Reader, error) {
	r := &Reader{dir: segmentDir}

	var err error
	if r.termsFile, r.termsMmap, err = openMmap(segmentDir, FileTermsFST); err != nil {
		r.Close()
		return nil, err
	}
	r.termsFST, err = vellum.Load(r.termsMmap)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("segment: parse terms.fst in %s: %w", segmentDir, err)
	}

	if r.offsetsFile, r.offsetsMmap, err = openMmap(segmentDir, FileOffsets); err != nil {
		r.Close()
		return nil, err
	}
	if r.docsFile, r.docsMmap, err = openMmap(segmentDir, FilePostingsDocs); err != nil {
		r.Close()
		return nil, err
	}
	if r.freqsFile, r.freqsMmap, err = openMmap(segmentDir, FilePostingsFreqs); err != nil {
		r.Close()
		return nil, err
	}
	if r.chunksFile, r.chunksMmap, err = openMmap(segmentDir, FileChunks); err != nil {
		r.Close()
		return nil, err
	}
	if r.lengthsFile, r.lengthsMmap, err = openMmap(segmentDir, FileDocLengths); err != nil {
		r.Close()
		return nil, err
	}

	metaBytes, err := os.ReadFile(filepath.Join(segmentDir, FileMeta))
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("segment: read meta.json in %s: %w", segmentDir, err)
	}
	var meta Meta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		r.Close()
		return nil, fmt.Errorf("segment: parse meta.json in %s: %w", segmentDir, err)
	}
	r.baseDocID = meta.BaseDocID
	r.numDocs = meta.NumDocs

	return r, nil
}

func openMmap(dir, name string) (*os.File, mmap.MMap, error) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("segment: open %s: %w", path, err)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("segment: mmap %s: %w", path, err)
	}
	return f, m, nil
}

// Close unmaps every file. It is safe to call on a partially-opened
// Reader (Open calls it on its own error paths).
func (r *Reader) Close() error {
	var firstErr error
	unmap := func(m mmap.MMap, f *os.File) {
		if m != nil {
			if err := m.Unmap(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if f != nil {
			f.Close()
		}
	}
	unmap(r.termsMmap, r.termsFile)
	unmap(r.offsetsMmap, r.offsetsFile)
	unmap(r.docsMmap, r.docsFile)
	unmap(r.freqsMmap, r.freqsFile)
	unmap(r.chunksMmap, r.chunksFile)
	unmap(r.lengthsMmap, r.lengthsFile)
	return firstErr
}

func (r *Reader) BaseDocID() uint32 { return r.baseDocID }
func (r *Reader) NumDocs() uint32   { return r.numDocs }

func readU32(buf []byte, pos int) (uint32, bool) {
	if pos < 0 || pos+4 > len(buf) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(buf[pos : pos+4]), true
}

func readU64(buf []byte, pos int) (uint64, bool) {
	if pos < 0 || pos+8 > len(buf) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(buf[pos : pos+8]), true
}

// offsetsRow resolves term to its 28-byte offsets row, or reports that
// the term is absent from this segment.
func (r *Reader) offsetsRow(term string) (pos int, ok bool) {
	idx, exists, err := r.termsFST.Get([]byte(term))
	if err != nil || !exists {
		return 0, false
	}
	return int(idx) * offsetsRowSize, true
}

// GetDocFreq returns the number of documents containing term in this
// segment, via a single FST lookup plus one 4-byte mmap read.
func (r *Reader) GetDocFreq(term string) (uint32, bool) {
	pos, ok := r.offsetsRow(term)
	if !ok {
		return 0, false
	}
	return readU32(r.offsetsMmap, pos+24)
}

// GetPostingsIter returns a lazy, non-allocating iterator over term's
// postings, or reports the term is absent. A corrupt offsets row that
// would read past either postings mmap returns (nil, false) rather than
// panicking.
func (r *Reader) GetPostingsIter(term string) (*codec.PostingsIter, bool) {
	pos, ok := r.offsetsRow(term)
	if !ok {
		return nil, false
	}

	docOff, ok := readU64(r.offsetsMmap, pos)
	if !ok {
		return nil, false
	}
	docLen, ok := readU32(r.offsetsMmap, pos+8)
	if !ok {
		return nil, false
	}
	freqOff, ok := readU64(r.offsetsMmap, pos+12)
	if !ok {
		return nil, false
	}
	freqLen, ok := readU32(r.offsetsMmap, pos+20)
	if !ok {
		return nil, false
	}
	docCount, ok := readU32(r.offsetsMmap, pos+24)
	if !ok {
		return nil, false
	}

	docEnd := docOff + uint64(docLen)
	freqEnd := freqOff + uint64(freqLen)
	if docEnd > uint64(len(r.docsMmap)) || freqEnd > uint64(len(r.freqsMmap)) {
		return nil, false
	}

	return codec.NewPostingsIter(
		r.docsMmap[docOff:docEnd],
		r.freqsMmap[freqOff:freqEnd],
		int(docCount),
	), true
}

// GetDocLength returns the analyzed token length of the chunk identified
// by the global docId, translating to a local id and bounds-checking
// first.
func (r *Reader) GetDocLength(globalDocID uint32) (uint32, bool) {
	if globalDocID < r.baseDocID {
		return 0, false
	}
	local := globalDocID - r.baseDocID
	if local >= r.numDocs {
		return 0, false
	}
	return readU32(r.lengthsMmap, int(local)*4)
}

// GetBookID returns the book_id string that owns the chunk identified by
// globalDocID, copying it out of the mmap (the returned string does not
// alias segment memory once the mmap is later unmapped).
func (r *Reader) GetBookID(globalDocID uint32) (string, bool) {
	if globalDocID < r.baseDocID {
		return "", false
	}
	local := globalDocID - r.baseDocID
	if local >= r.numDocs {
		return "", false
	}

	offsetsSize := (int(r.numDocs) + 1) * 4
	if offsetsSize > len(r.chunksMmap) {
		return "", false
	}

	start, ok := readU32(r.chunksMmap, int(local)*4)
	if !ok {
		return "", false
	}
	end, ok := readU32(r.chunksMmap, int(local)*4+4)
	if !ok {
		return "", false
	}

	dataStart := offsetsSize + int(start)
	dataEnd := offsetsSize + int(end)
	if dataEnd > len(r.chunksMmap) || dataStart > dataEnd {
		return "", false
	}

	b := r.chunksMmap[dataStart:dataEnd]
	return string(b), true
}

// GetFuzzyTerms runs a bounded Levenshtein automaton over the FST and
// collects every matching key.
func (r *Reader) GetFuzzyTerms(term string, maxDist uint8) []string {
	lev, err := levenshtein.New(term, int(maxDist))
	if err != nil {
		return nil
	}

	itr, err := r.termsFST.Search(lev, nil, nil)
	var out []string
	for err == nil {
		key, _ := itr.Current()
		out = append(out, string(append([]byte(nil), key...)))
		err = itr.Next()
	}
	return out
}
