// Package pipeline implements the three-stage streaming DAG: download →
// parse/analyze → index, with bounded queues providing backpressure
// between stages.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"lukechampine.com/blake3"

	"github.com/enrell/boogle/internal/analysis"
	"github.com/enrell/boogle/internal/bookregistry"
	"github.com/enrell/boogle/internal/chunkstore"
	"github.com/enrell/boogle/internal/docparser"
	"github.com/enrell/boogle/internal/segment"
)

// DefaultDownloadQueueSize and DefaultIndexQueueSize are the
// bounded-channel sizes used when Config leaves them unset.
const (
	DefaultDownloadQueueSize   = 50
	DefaultIndexQueueSize      = 500
	DefaultDownloadConcurrency = 20
	DefaultIndexBatchSize      = 1000
)

// BookSource is one item the downloader stage fetches: a stable book
// id, its source URL, and the file extension needed to pick a parser.
type BookSource struct {
	BookID    string
	URL       string
	Extension string
}

// Fetcher retrieves a book's raw bytes given its source URL. The actual
// network client is an external collaborator; Pipeline only depends on
// this narrow interface.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type rawBook struct {
	bookID    string
	extension string
	data      []byte
}

// Config bundles the pipeline's tunables, with defaults matching the
// constants above when left at zero.
type Config struct {
	DownloadConcurrency int
	DownloadQueueSize   int
	IndexQueueSize      int
	IndexBatchSize      int
	ChunkSize           int
	Overlap             int
	Stopwords           []string
}

// Pipeline wires together a Fetcher, a Parser, a chunk store, the
// analyzer, the segment writer and an optional book-metadata sink into
// the full download→parse→analyze→write DAG.
type Pipeline struct {
	cfg       Config
	logger    *zap.Logger
	fetcher   Fetcher
	parser    docparser.Parser
	chunks    *chunkstore.Store
	analyzer  *analysis.Analyzer
	writer    *segment.Writer
	registry  bookregistry.Sink
	indexDir  string
	stopwords map[string]struct{}

	// Progress counters, read periodically by a long-running caller (e.g.
	// a status endpoint) while Run is in flight.
	downloaded atomic.Int64
	processed  atomic.Int64
	skipped    atomic.Int64
}

// Progress returns a snapshot of the pipeline's running counters:
// books downloaded, successfully processed, and skipped (download or
// parse failure, duplicate or empty content, or already-indexed).
func (p *Pipeline) Progress() (downloaded, processed, skipped int64) {
	return p.downloaded.Load(), p.processed.Load(), p.skipped.Load()
}

// New constructs a Pipeline. A zero-value Config gets DefaultDownloadConcurrency,
// DefaultIndexBatchSize, DefaultDownloadQueueSize, DefaultIndexQueueSize,
// and a default chunk_size/overlap of 1000/100.
func New(cfg Config, indexDir string, fetcher Fetcher, parser docparser.Parser, chunks *chunkstore.Store, analyzer *analysis.Analyzer, registry bookregistry.Sink, logger *zap.Logger) *Pipeline {
	if cfg.DownloadConcurrency <= 0 {
		cfg.DownloadConcurrency = DefaultDownloadConcurrency
	}
	if cfg.DownloadQueueSize <= 0 {
		cfg.DownloadQueueSize = DefaultDownloadQueueSize
	}
	if cfg.IndexQueueSize <= 0 {
		cfg.IndexQueueSize = DefaultIndexQueueSize
	}
	if cfg.IndexBatchSize <= 0 {
		cfg.IndexBatchSize = DefaultIndexBatchSize
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.Overlap <= 0 {
		cfg.Overlap = 100
	}
	if registry == nil {
		registry = bookregistry.NopSink{}
	}
	stopwords := make(map[string]struct{}, len(cfg.Stopwords))
	for _, w := range cfg.Stopwords {
		stopwords[w] = struct{}{}
	}
	return &Pipeline{
		cfg:       cfg,
		logger:    logger,
		fetcher:   fetcher,
		parser:    parser,
		chunks:    chunks,
		analyzer:  analyzer,
		writer:    segment.NewWriter(logger),
		registry:  registry,
		indexDir:  indexDir,
		stopwords: stopwords,
	}
}

func (p *Pipeline) dropStopwords(terms []string) []string {
	if len(p.stopwords) == 0 {
		return terms
	}
	out := terms[:0]
	for _, t := range terms {
		if _, skip := p.stopwords[t]; !skip {
			out = append(out, t)
		}
	}
	return out
}

// seenHashes is the process-wide duplicate-suppression set: BLAKE3
// hashes of every parsed book's full text seen so far in this run.
type seenHashes struct {
	mu   sync.Mutex
	seen map[[32]byte]struct{}
}

func newSeenHashes() *seenHashes {
	return &seenHashes{seen: make(map[[32]byte]struct{})}
}

// markIfNew records hash if it has not been seen before, returning true
// if this call was the one to add it (i.e. the text is not a duplicate).
func (s *seenHashes) markIfNew(hash [32]byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[hash]; ok {
		return false
	}
	s.seen[hash] = struct{}{}
	return true
}

// Run drains sources through the three-stage pipeline and returns the
// final manifest once every batch has been written and the manifest has
// been committed atomically.
func (p *Pipeline) Run(ctx context.Context, sources []BookSource) (segment.Manifest, error) {
	downloadQueue := make(chan rawBook, p.cfg.DownloadQueueSize)
	indexQueue := make(chan segment.ProcessedDoc, p.cfg.IndexQueueSize)

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(downloadQueue)
		return p.runDownloader(gctx, sources, downloadQueue)
	})

	group.Go(func() error {
		defer close(indexQueue)
		return p.runProcessors(gctx, downloadQueue, indexQueue)
	})

	var manifest segment.Manifest
	group.Go(func() error {
		m, err := p.runIndexer(gctx, indexQueue)
		manifest = m
		return err
	})

	if err := group.Wait(); err != nil {
		return segment.Manifest{}, err
	}

	downloaded, processed, skipped := p.Progress()
	p.logger.Info("Pipeline run complete",
		zap.Int64("downloaded", downloaded), zap.Int64("processed", processed), zap.Int64("skipped", skipped))
	return manifest, nil
}

// runDownloader fetches every source under a bounded concurrency
// semaphore and pushes successfully fetched, not-yet-chunked books into
// out. Resume support: sources whose chunk blob already exists on disk
// are skipped.
func (p *Pipeline) runDownloader(ctx context.Context, sources []BookSource, out chan<- rawBook) error {
	sem := semaphore.NewWeighted(int64(p.cfg.DownloadConcurrency))
	group, gctx := errgroup.WithContext(ctx)

	for _, src := range sources {
		src := src
		if p.chunks.Exists(src.BookID) {
			p.skipped.Inc()
			continue
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			return group.Wait()
		}
		group.Go(func() error {
			defer sem.Release(1)
			data, err := p.fetcher.Fetch(gctx, src.URL)
			if err != nil {
				p.logger.Warn("Download failed, skipping book",
					zap.String("book_id", src.BookID), zap.Error(err))
				p.skipped.Inc()
				return nil
			}
			p.downloaded.Inc()
			select {
			case out <- rawBook{bookID: src.BookID, extension: src.Extension, data: data}:
			case <-gctx.Done():
				return gctx.Err()
			}
			return nil
		})
	}
	return group.Wait()
}

// runProcessors runs one worker per CPU, each parsing, chunking,
// persisting and analyzing books pulled from in, emitting ProcessedDocs
// into out.
func (p *Pipeline) runProcessors(ctx context.Context, in <-chan rawBook, out chan<- segment.ProcessedDoc) error {
	hashes := newSeenHashes()
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}

	group, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			for {
				select {
				case raw, ok := <-in:
					if !ok {
						return nil
					}
					doc, ok, err := p.processOne(raw, hashes)
					if err != nil {
						return err
					}
					if !ok {
						p.skipped.Inc()
						continue
					}
					p.processed.Inc()
					select {
					case out <- doc:
					case <-gctx.Done():
						return gctx.Err()
					}
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		})
	}
	return group.Wait()
}

// processOne parses, deduplicates, chunks, persists and analyzes one
// book. A false second return means the book was skipped (parse
// failure, duplicate content, or no text to chunk), not an error.
func (p *Pipeline) processOne(raw rawBook, hashes *seenHashes) (segment.ProcessedDoc, bool, error) {
	text, ok := p.parser.ParseBytes(raw.data, raw.extension)
	if !ok {
		p.logger.Warn("Could not parse book, skipping", zap.String("book_id", raw.bookID))
		return segment.ProcessedDoc{}, false, nil
	}

	contentHash := blake3.Sum256([]byte(text))
	if !hashes.markIfNew(contentHash) {
		p.logger.Info("Duplicate content, skipping", zap.String("book_id", raw.bookID))
		return segment.ProcessedDoc{}, false, nil
	}

	chunks := chunkText(text, p.cfg.ChunkSize, p.cfg.Overlap)
	if len(chunks) == 0 {
		return segment.ProcessedDoc{}, false, nil
	}

	if err := p.chunks.Put(raw.bookID, chunks); err != nil {
		return segment.ProcessedDoc{}, false, fmt.Errorf("pipeline: persist chunks for %s: %w", raw.bookID, err)
	}

	arena := analysis.NewArena(len(text))
	chunkFreqs := make([]segment.ChunkFreq, 0, len(chunks))
	for _, chunk := range chunks {
		terms := p.dropStopwords(p.analyzer.AnalyzeArena(chunk, arena))
		freqs := make(map[string]uint32, len(terms))
		for _, t := range terms {
			freqs[t]++
		}
		chunkFreqs = append(chunkFreqs, segment.ChunkFreq{Length: uint32(len(terms)), Freqs: freqs})
	}

	return segment.ProcessedDoc{BookID: raw.bookID, Chunks: chunkFreqs}, true, nil
}

// runIndexer accumulates ProcessedDocs into batches of IndexBatchSize,
// writing one segment per full batch (or a final partial batch once in
// closes), then atomically commits the manifest.
func (p *Pipeline) runIndexer(ctx context.Context, in <-chan segment.ProcessedDoc) (segment.Manifest, error) {
	manifest, err := segment.LoadManifest(p.indexDir)
	if err != nil {
		return segment.Manifest{}, fmt.Errorf("pipeline: load manifest: %w", err)
	}

	baseDocID := manifest.TotalDocs
	segmentID := len(manifest.Segments)
	var batch []segment.ProcessedDoc
	var totalLengthAccum float64 = float64(manifest.AvgDL) * float64(manifest.TotalDocs)

	flushBatch := func() error {
		if len(batch) == 0 {
			return nil
		}
		segmentName := fmt.Sprintf("segment-%05d", segmentID)
		meta, err := p.writer.Build(segment.BatchData{
			SegmentID:  segmentID,
			SegmentDir: filepath.Join(p.indexDir, segmentName),
			BaseDocID:  baseDocID,
			Docs:       batch,
		})
		if err != nil {
			return fmt.Errorf("pipeline: build segment %s: %w", segmentName, err)
		}

		for _, doc := range batch {
			_ = p.registry.Record(bookregistry.Entry{
				BookID:      doc.BookID,
				SegmentName: segmentName,
				BaseDocID:   baseDocID,
				NumChunks:   uint32(len(doc.Chunks)),
			})
		}

		manifest.Segments = append(manifest.Segments, segmentName)
		manifest.TotalDocs += meta.NumDocs
		totalLengthAccum += float64(meta.TotalLength)
		baseDocID += meta.NumDocs
		segmentID++
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case doc, ok := <-in:
			if !ok {
				if err := flushBatch(); err != nil {
					return segment.Manifest{}, err
				}
				if manifest.TotalDocs > 0 {
					manifest.AvgDL = float32(totalLengthAccum / float64(manifest.TotalDocs))
				}
				if err := segment.SaveManifest(p.indexDir, manifest); err != nil {
					return segment.Manifest{}, fmt.Errorf("pipeline: save manifest: %w", err)
				}
				return manifest, nil
			}
			batch = append(batch, doc)
			if len(batch) >= p.cfg.IndexBatchSize {
				if err := flushBatch(); err != nil {
					return segment.Manifest{}, err
				}
			}
		case <-ctx.Done():
			return segment.Manifest{}, ctx.Err()
		}
	}
}
