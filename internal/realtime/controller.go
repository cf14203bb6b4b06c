// Package realtime composes the on-disk segments, the RAM index and the
// write-ahead log behind one search surface.
package realtime

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/enrell/boogle/internal/analysis"
	"github.com/enrell/boogle/internal/query"
	"github.com/enrell/boogle/internal/ramindex"
	"github.com/enrell/boogle/internal/segment"
	"github.com/enrell/boogle/internal/wal"
)

// RAMBookID is the sentinel book id surfaced for RAM-resident hits, and
// the book id Flush stores for the documents it moves to disk, since the
// core does not parse the caller's metadata JSON to recover a real book id.
const RAMBookID = "RAM_BOOK"

// diskSnapshot is the immutable set of opened segment readers plus the
// manifest that produced them, swapped in its entirety on every flush.
type diskSnapshot struct {
	readers  []*segment.Reader
	manifest segment.Manifest
}

// Controller holds a disk snapshot, a RAM index and a WAL behind a
// lock discipline of one RW-lock (diskMu) guarding the disk snapshot,
// the RAM index's own internal RW-lock, and the WAL's own internal mutex.
type Controller struct {
	logger    *zap.Logger
	indexDir  string
	analyzer  *analysis.Analyzer
	executor  *query.Executor
	stopwords map[string]struct{}

	diskMu sync.RWMutex
	disk   diskSnapshot

	ram *ramindex.Index
	log *wal.WAL
}

// Option configures a Controller built by Open.
type Option func(*options)

type options struct {
	diskOpts  []query.Option
	ramOpts   []ramindex.Option
	stopwords map[string]struct{}
}

// WithDiskBM25Params overrides the disk executor's BM25 k1/b pair
// (internal/config's BM25Config.DiskK1/DiskB).
func WithDiskBM25Params(k1, b float64) Option {
	return func(o *options) { o.diskOpts = append(o.diskOpts, query.WithBM25Params(k1, b)) }
}

// WithRAMBM25Params overrides the RAM index's BM25 k1/b pair
// (internal/config's BM25Config.RAMK1/RAMB).
func WithRAMBM25Params(k1, b float64) Option {
	return func(o *options) { o.ramOpts = append(o.ramOpts, ramindex.WithBM25Params(k1, b)) }
}

// WithStopwords sets the stopword set dropped by both the disk executor
// and a flush's re-analysis of RAM documents (internal/config's
// AnalysisConfig.StopwordsFile).
func WithStopwords(words []string) Option {
	return func(o *options) {
		o.diskOpts = append(o.diskOpts, query.WithStopwords(words))
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[w] = struct{}{}
		}
		o.stopwords = set
	}
}

// Open loads the persisted index manifest, opens every segment it
// lists, opens (or creates) the WAL, and replays it into a fresh RAM
// index in file order so ids stay deterministic.
func Open(indexDir string, analyzer *analysis.Analyzer, logger *zap.Logger, opts ...Option) (*Controller, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	manifest, err := segment.LoadManifest(indexDir)
	if err != nil {
		return nil, fmt.Errorf("realtime: load manifest: %w", err)
	}

	readers := make([]*segment.Reader, 0, len(manifest.Segments))
	for _, name := range manifest.Segments {
		r, err := segment.Open(filepath.Join(indexDir, name))
		if err != nil {
			for _, opened := range readers {
				opened.Close()
			}
			return nil, fmt.Errorf("realtime: open segment %s: %w", name, err)
		}
		readers = append(readers, r)
	}

	walPath := filepath.Join(indexDir, "index.wal")
	log, err := wal.Open(walPath)
	if err != nil {
		for _, r := range readers {
			r.Close()
		}
		return nil, fmt.Errorf("realtime: open wal: %w", err)
	}

	ram := ramindex.New(analyzer, manifest.TotalDocs, o.ramOpts...)
	records, err := log.ReadAll()
	if err != nil {
		log.Close()
		for _, r := range readers {
			r.Close()
		}
		return nil, fmt.Errorf("realtime: replay wal: %w", err)
	}
	for _, rec := range records {
		ram.InsertWithID(rec.ID, rec.Content, rec.Metadata, rec.Length)
	}

	c := &Controller{
		logger:    logger,
		indexDir:  indexDir,
		analyzer:  analyzer,
		executor:  query.NewExecutor(analyzer, o.diskOpts...),
		stopwords: o.stopwords,
		disk:      diskSnapshot{readers: readers, manifest: manifest},
		ram:       ram,
		log:       log,
	}
	logger.Info("Real-time controller opened",
		zap.Int("segments", len(readers)),
		zap.Int("replayed_records", len(records)),
	)
	return c, nil
}

// Close releases every open segment reader and the WAL handle.
func (c *Controller) Close() error {
	c.diskMu.Lock()
	defer c.diskMu.Unlock()

	var firstErr error
	for _, r := range c.disk.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.log.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// AddDocument inserts content into the RAM index, then appends the
// record to the WAL. The order is RAM-then-WAL: a crash between the two
// loses the uncommitted write, which is acceptable because the caller
// has not yet received the assigned id. A stricter WAL-first ordering
// would close that window at the cost of writing records the insert
// might still fail to apply.
func (c *Controller) AddDocument(content, metadata string) (uint32, error) {
	docID, length := c.ram.Insert(content, metadata)
	if err := c.log.Append(wal.Record{ID: docID, Content: content, Metadata: metadata, Length: length}); err != nil {
		return 0, fmt.Errorf("realtime: append wal record %d: %w", docID, err)
	}
	return docID, nil
}

func (c *Controller) dropStopwords(terms []string) []string {
	if len(c.stopwords) == 0 {
		return terms
	}
	out := terms[:0]
	for _, t := range terms {
		if _, skip := c.stopwords[t]; !skip {
			out = append(out, t)
		}
	}
	return out
}

// Hit is one merged search result, from either the disk executor or
// the RAM index.
type Hit struct {
	BookID string
	DocID  uint32
	Score  float32
}

// Search fans out to the disk executor and the RAM index concurrently,
// merges both result lists, sorts descending by score and truncates to
// topK.
func (c *Controller) Search(q string, topK int) []Hit {
	c.diskMu.RLock()
	readers := c.disk.readers
	manifest := c.disk.manifest
	c.diskMu.RUnlock()

	var wg sync.WaitGroup
	var diskHits []query.Hit
	var ramHits []ramindex.Hit

	wg.Add(2)
	go func() {
		defer wg.Done()
		corpus := query.Corpus{TotalDocs: manifest.TotalDocs, AvgDL: float64(manifest.AvgDL)}
		if corpus.AvgDL == 0 {
			corpus.AvgDL = 1
		}
		diskHits = c.executor.Search(q, readers, corpus, topK)
	}()
	go func() {
		defer wg.Done()
		ramHits = c.ram.Search(q, topK)
	}()
	wg.Wait()

	merged := make([]Hit, 0, len(diskHits)+len(ramHits))
	for _, h := range diskHits {
		merged = append(merged, Hit{BookID: h.BookID, DocID: h.DocID, Score: h.Score})
	}
	for _, h := range ramHits {
		merged = append(merged, Hit{BookID: RAMBookID, DocID: h.DocID, Score: h.Score})
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if topK > 0 && len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}

// Flush migrates every RAM-resident document into a new on-disk segment,
// clears the RAM index, truncates the WAL, and atomically rewrites the
// manifest to include the new segment. Until the manifest rewrite is
// visible, the previous snapshot remains the source of truth for
// concurrent readers.
func (c *Controller) Flush() error {
	snap := c.ram.Snapshot()
	if len(snap) == 0 {
		return nil
	}

	c.diskMu.Lock()
	defer c.diskMu.Unlock()

	baseDocID := snap[0].DocID
	segmentID := len(c.disk.manifest.Segments)
	segmentName := fmt.Sprintf("segment-%05d", segmentID)
	segmentDir := filepath.Join(c.indexDir, segmentName)

	docs := make([]segment.ProcessedDoc, 0, len(snap))
	for _, s := range snap {
		terms := c.dropStopwords(c.analyzer.Analyze(s.Content))
		freqs := make(map[string]uint32, len(terms))
		for _, t := range terms {
			freqs[t]++
		}
		docs = append(docs, segment.ProcessedDoc{
			BookID: RAMBookID,
			Chunks: []segment.ChunkFreq{{Length: s.Length, Freqs: freqs}},
		})
	}

	w := segment.NewWriter(c.logger)
	meta, err := w.Build(segment.BatchData{
		SegmentID:  segmentID,
		SegmentDir: segmentDir,
		BaseDocID:  baseDocID,
		Docs:       docs,
	})
	if err != nil {
		return fmt.Errorf("realtime: flush build segment: %w", err)
	}

	reader, err := segment.Open(segmentDir)
	if err != nil {
		return fmt.Errorf("realtime: flush open new segment: %w", err)
	}

	previousTotalLength := float64(c.disk.manifest.AvgDL) * float64(c.disk.manifest.TotalDocs)
	newTotalDocs := c.disk.manifest.TotalDocs + meta.NumDocs
	newTotalLength := previousTotalLength + float64(meta.TotalLength)

	newManifest := segment.Manifest{
		Segments:  append(append([]string{}, c.disk.manifest.Segments...), segmentName),
		TotalDocs: newTotalDocs,
	}
	if newTotalDocs > 0 {
		newManifest.AvgDL = float32(newTotalLength / float64(newTotalDocs))
	}

	if err := segment.SaveManifest(c.indexDir, newManifest); err != nil {
		reader.Close()
		return fmt.Errorf("realtime: flush save manifest: %w", err)
	}

	if err := c.log.Truncate(); err != nil {
		return fmt.Errorf("realtime: flush truncate wal: %w", err)
	}
	c.ram.Clear()

	c.disk.readers = append(c.disk.readers, reader)
	c.disk.manifest = newManifest

	c.logger.Info("Flushed RAM index to new segment",
		zap.String("segment", segmentName),
		zap.Uint32("num_docs", meta.NumDocs),
	)
	return nil
}
