// Package ramindex implements the in-memory counterpart to a segment: an
// inverted index over the documents that have not yet been migrated into
// an on-disk segment.
package ramindex

import (
	"math"
	"sort"
	"sync"

	"github.com/enrell/boogle/internal/analysis"
)

// K1 and B are the RAM index's default BM25 parameters. These
// intentionally differ from query.DefaultK1/DefaultB (a flagged
// parameter mismatch) rather than being unified with the disk executor;
// WithBM25Params overrides them per-Index.
const (
	K1 = 1.2
	B  = 0.75
)

type posting struct {
	docID uint32
	tf    uint32
}

type document struct {
	content  string
	metadata string
	length   uint32
}

// Index is an in-memory inverted index. All state is guarded by mu; the
// real-time controller takes no lock of its own around it and relies on
// mu alone.
type Index struct {
	mu sync.RWMutex

	analyzer *analysis.Analyzer
	k1, b    float64

	terms       map[string][]posting
	docs        map[uint32]document
	totalLength uint64
	nextDocID   uint32
}

// Option configures an Index built by New.
type Option func(*Index)

// WithBM25Params overrides the default K1/B constants (internal/config's
// BM25Config.RAMK1/RAMB).
func WithBM25Params(k1, b float64) Option {
	return func(idx *Index) {
		idx.k1 = k1
		idx.b = b
	}
}

// New returns an Index whose docIds start at nextDocID (the disk
// index's total_docs at the time of construction, so RAM and disk
// docIds never collide).
func New(analyzer *analysis.Analyzer, nextDocID uint32, opts ...Option) *Index {
	idx := &Index{
		analyzer:  analyzer,
		k1:        K1,
		b:         B,
		terms:     make(map[string][]posting),
		docs:      make(map[uint32]document),
		nextDocID: nextDocID,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Insert analyzes content, assigns the next docId, records it, and
// returns the assigned id and its analyzed length.
func (idx *Index) Insert(content, metadata string) (uint32, uint32) {
	terms := idx.analyzer.Analyze(content)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	docID := idx.nextDocID
	idx.nextDocID++

	freqs := make(map[string]uint32, len(terms))
	for _, t := range terms {
		freqs[t]++
	}
	for term, tf := range freqs {
		idx.terms[term] = append(idx.terms[term], posting{docID: docID, tf: tf})
	}

	length := uint32(len(terms))
	idx.docs[docID] = document{content: content, metadata: metadata, length: length}
	idx.totalLength += uint64(length)

	return docID, length
}

// InsertWithID is used by WAL replay, where the docId is already fixed
// by the logged record. The caller is responsible for replaying records
// in file order so nextDocID tracking stays correct.
func (idx *Index) InsertWithID(docID uint32, content, metadata string, length uint32) {
	terms := idx.analyzer.Analyze(content)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	freqs := make(map[string]uint32, len(terms))
	for _, t := range terms {
		freqs[t]++
	}
	for term, tf := range freqs {
		idx.terms[term] = append(idx.terms[term], posting{docID: docID, tf: tf})
	}

	idx.docs[docID] = document{content: content, metadata: metadata, length: length}
	idx.totalLength += uint64(length)
	if docID >= idx.nextDocID {
		idx.nextDocID = docID + 1
	}
}

// NextDocID returns the id that would be assigned to the next inserted
// document.
func (idx *Index) NextDocID() uint32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.nextDocID
}

// Len reports the number of documents currently held in RAM.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// Hit is one scored RAM document.
type Hit struct {
	DocID    uint32
	Metadata string
	Score    float32
}

// Search runs BM25 with the index's k1/b over the RAM-resident documents
// only; avgdl is computed from current RAM contents.
func (idx *Index) Search(query string, topK int) []Hit {
	terms := idx.analyzer.Analyze(query)
	if len(terms) == 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.docs) == 0 {
		return nil
	}
	avgdl := float64(idx.totalLength) / float64(len(idx.docs))
	totalDocs := uint32(len(idx.docs))

	acc := make(map[uint32]float64)
	for _, term := range terms {
		postings, ok := idx.terms[term]
		if !ok {
			continue
		}
		df := uint32(len(postings))
		idfVal := math.Log((float64(totalDocs)-float64(df)+0.5)/(float64(df)+0.5) + 1)

		for _, p := range postings {
			length := float64(idx.docs[p.docID].length)
			if length == 0 {
				length = 1
			}
			tf := float64(p.tf)
			denom := tf + idx.k1*(1-idx.b+idx.b*length/avgdl)
			acc[p.docID] += idfVal * tf * (idx.k1 + 1) / denom
		}
	}

	hits := make([]Hit, 0, len(acc))
	for docID, score := range acc {
		hits = append(hits, Hit{
			DocID:    docID,
			Metadata: idx.docs[docID].metadata,
			Score:    float32(score),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		si, sj := hits[i].Score, hits[j].Score
		if math.IsNaN(float64(si)) || math.IsNaN(float64(sj)) {
			return false
		}
		return si > sj
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// Snapshot is a point-in-time copy of every RAM document, used by
// flush() to build a new on-disk segment.
type Snapshot struct {
	DocID    uint32
	Content  string
	Metadata string
	Length   uint32
}

// Snapshot returns every document currently held, ordered by docId.
func (idx *Index) Snapshot() []Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]Snapshot, 0, len(idx.docs))
	for docID, d := range idx.docs {
		out = append(out, Snapshot{DocID: docID, Content: d.content, Metadata: d.metadata, Length: d.length})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })
	return out
}

// Clear empties the index in place after a successful flush, keeping
// nextDocID so future inserts continue from the right id (the disk
// segment the RAM contents were migrated into owns the range up to
// nextDocID).
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.terms = make(map[string][]posting)
	idx.docs = make(map[uint32]document)
	idx.totalLength = 0
}
