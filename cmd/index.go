// Package cmd holds the boogle subcommands: index (run the pipeline
// once) and serve (open the real-time controller for queries).
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/enrell/boogle/internal/analysis"
	"github.com/enrell/boogle/internal/bookregistry"
	"github.com/enrell/boogle/internal/chunkstore"
	"github.com/enrell/boogle/internal/config"
	"github.com/enrell/boogle/internal/docparser"
	"github.com/enrell/boogle/internal/pipeline"
)

// catalogEntry is one element of the JSON array in the catalog file
// (Paths.CatalogFile): a source the downloader stage will fetch.
type catalogEntry struct {
	BookID    string `json:"book_id"`
	URL       string `json:"url"`
	Extension string `json:"extension"`
}

func loadCatalog(path string) ([]pipeline.BookSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cmd: read catalog %s: %w", path, err)
	}
	var entries []catalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("cmd: parse catalog %s: %w", path, err)
	}
	sources := make([]pipeline.BookSource, 0, len(entries))
	for _, e := range entries {
		sources = append(sources, pipeline.BookSource{BookID: e.BookID, URL: e.URL, Extension: e.Extension})
	}
	return sources, nil
}

// Index runs the download → parse → analyze → write pipeline once over
// the books_dir catalog, committing a new index manifest on completion.
func Index(cfg *config.Config, logger *zap.Logger) error {
	sources, err := loadCatalog(cfg.Paths.CatalogFile)
	if err != nil {
		return err
	}
	logger.Info("Loaded catalog", zap.Int("sources", len(sources)))

	if err := os.MkdirAll(cfg.Paths.IndexDir, 0o755); err != nil {
		return fmt.Errorf("cmd: create index dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Paths.ChunksDir, 0o755); err != nil {
		return fmt.Errorf("cmd: create chunks dir: %w", err)
	}

	stopwords, err := config.LoadStopwords(cfg.Analysis.StopwordsFile)
	if err != nil {
		return err
	}
	analyzer := analysis.New(analysis.WithTermLenBounds(cfg.Analysis.MinTermLen, cfg.Analysis.MaxTermLen))

	p := pipeline.New(pipeline.Config{
		DownloadConcurrency: cfg.Pipeline.DownloadConcurrency,
		DownloadQueueSize:   cfg.Pipeline.DownloadQueueSize,
		IndexQueueSize:      cfg.Pipeline.IndexQueueSize,
		IndexBatchSize:      cfg.Pipeline.IndexBatchSize,
		ChunkSize:           cfg.Chunking.ChunkSize,
		Overlap:             cfg.Chunking.Overlap,
		Stopwords:           stopwords,
	},
		cfg.Paths.IndexDir,
		pipeline.NewHTTPFetcher(30*time.Second),
		docparser.PlainTextParser{},
		chunkstore.New(cfg.Paths.ChunksDir),
		analyzer,
		bookregistry.NopSink{},
		logger,
	)

	manifest, err := p.Run(context.Background(), sources)
	if err != nil {
		return fmt.Errorf("cmd: run pipeline: %w", err)
	}

	logger.Info("Indexing complete",
		zap.Int("segments", len(manifest.Segments)),
		zap.Uint32("total_docs", manifest.TotalDocs),
		zap.Float32("avgdl", manifest.AvgDL))
	return nil
}
