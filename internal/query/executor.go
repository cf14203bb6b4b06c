// Package query implements the BM25 accumulation, fuzzy fallback and
// top-K selection, driven entirely off the segment.Reader surface.
package query

import (
	"math"
	"sort"

	"github.com/enrell/boogle/internal/analysis"
	"github.com/enrell/boogle/internal/segment"
)

// DefaultK1 and DefaultB are the disk executor's BM25 parameters. The
// RAM index intentionally uses different values (see internal/ramindex);
// WithBM25Params overrides them per-Executor.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Hit is one scored result, resolved back to its owning book.
type Hit struct {
	BookID string
	DocID  uint32
	Score  float32
}

// Executor scores queries against a fixed set of segments plus global
// corpus statistics.
type Executor struct {
	analyzer  *analysis.Analyzer
	stopwords map[string]struct{}
	k1, b     float64
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// WithBM25Params overrides the default k1/b pair.
func WithBM25Params(k1, b float64) Option {
	return func(e *Executor) { e.k1, e.b = k1, b }
}

// WithStopwords sets the stopword set dropped after analysis.
func WithStopwords(words []string) Option {
	return func(e *Executor) {
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[w] = struct{}{}
		}
		e.stopwords = set
	}
}

// NewExecutor builds an Executor with the given analyzer and options.
func NewExecutor(analyzer *analysis.Analyzer, opts ...Option) *Executor {
	e := &Executor{
		analyzer: analyzer,
		k1:       DefaultK1,
		b:        DefaultB,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Corpus carries the global statistics BM25 needs beyond a single
// segment: total chunk count and average chunk length.
type Corpus struct {
	TotalDocs uint32
	AvgDL     float64
}

// Search analyzes query, scores it across segs under corpus's global
// statistics, and returns the top topK hits descending by score.
func (e *Executor) Search(query string, segs []*segment.Reader, corpus Corpus, topK int) []Hit {
	terms := e.analyzer.Analyze(query)
	terms = e.dropStopwords(terms)
	if len(terms) == 0 {
		return nil
	}

	acc := make(map[uint32]float64)

	for _, term := range terms {
		resolved, df := e.resolveTerm(term, segs)
		if df == 0 {
			continue
		}
		idf := idf(corpus.TotalDocs, df)
		for _, rt := range resolved {
			for _, seg := range segs {
				e.accumulateTerm(acc, seg, rt, idf, corpus.AvgDL)
			}
		}
	}

	return e.topK(acc, segs, topK)
}

// resolveTerm does an exact lookup first, falling back to fuzzy
// candidates only when the exact term is absent from every segment.
func (e *Executor) resolveTerm(term string, segs []*segment.Reader) ([]string, uint32) {
	var total uint32
	for _, seg := range segs {
		if df, ok := seg.GetDocFreq(term); ok {
			total += df
		}
	}
	if total > 0 {
		return []string{term}, total
	}

	dist := uint8(1)
	if len(term) > 4 {
		dist = 2
	}

	candidateSet := make(map[string]struct{})
	for _, seg := range segs {
		for _, cand := range seg.GetFuzzyTerms(term, dist) {
			candidateSet[cand] = struct{}{}
		}
	}
	if len(candidateSet) == 0 {
		return nil, 0
	}

	candidates := make([]string, 0, len(candidateSet))
	for c := range candidateSet {
		candidates = append(candidates, c)
	}

	var fuzzyTotal uint32
	for _, seg := range segs {
		for _, c := range candidates {
			if df, ok := seg.GetDocFreq(c); ok {
				fuzzyTotal += df
			}
		}
	}
	return candidates, fuzzyTotal
}

func (e *Executor) accumulateTerm(acc map[uint32]float64, seg *segment.Reader, term string, idf, avgdl float64) {
	it, ok := seg.GetPostingsIter(term)
	if !ok {
		return
	}
	for it.Next() {
		docID := it.DocID()
		tf := float64(it.TF())

		dl, ok := seg.GetDocLength(docID)
		length := float64(dl)
		if !ok || length == 0 {
			length = 1
		}

		denom := tf + e.k1*(1-e.b+e.b*length/avgdl)
		score := idf * tf * (e.k1 + 1) / denom
		acc[docID] += score
	}
}

// idf computes the Robertson-Spärck-Jones non-negative IDF.
func idf(totalDocs, df uint32) float64 {
	n := float64(totalDocs)
	d := float64(df)
	return math.Log((n-d+0.5)/(d+0.5) + 1)
}

func (e *Executor) dropStopwords(terms []string) []string {
	if len(e.stopwords) == 0 {
		return terms
	}
	out := terms[:0]
	for _, t := range terms {
		if _, skip := e.stopwords[t]; !skip {
			out = append(out, t)
		}
	}
	return out
}

// topK resolves the accumulated per-docId scores into Hits, selects the
// topK by score (NaN treated as equal), and returns them sorted
// descending.
func (e *Executor) topK(acc map[uint32]float64, segs []*segment.Reader, topK int) []Hit {
	hits := make([]Hit, 0, len(acc))
	for docID, score := range acc {
		bookID, ok := resolveBookID(docID, segs)
		if !ok {
			continue
		}
		hits = append(hits, Hit{BookID: bookID, DocID: docID, Score: float32(score)})
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

func resolveBookID(docID uint32, segs []*segment.Reader) (string, bool) {
	for _, seg := range segs {
		if bookID, ok := seg.GetBookID(docID); ok {
			return bookID, true
		}
	}
	return "", false
}
