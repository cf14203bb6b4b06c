// Package config defines the engine's YAML-backed configuration tree
// and its flag overlay, adapted from heroiclabs-nakama/server/config.go:
// sensible defaults, then a YAML file if given, then command-line flags
// override whatever the file set.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/enrell/boogle/internal/flags"
)

// Config is the root configuration object. Every yaml-tagged field gets
// a matching command-line flag via internal/flags.
type Config struct {
	Paths    *PathsConfig    `yaml:"paths" usage:"Filesystem locations for books, index and chunk blobs."`
	Chunking *ChunkingConfig `yaml:"chunking" usage:"Chunk size and overlap for document splitting."`
	Pipeline *PipelineConfig `yaml:"pipeline" usage:"Streaming pipeline concurrency and batching."`
	Analysis *AnalysisConfig `yaml:"analysis" usage:"Analyzer stopwords and token length bounds."`
	BM25     *BM25Config     `yaml:"bm25" usage:"BM25 scoring parameters, disk and RAM."`
	Log      *LogConfig      `yaml:"log" usage:"Logging verbosity and destination."`
}

// PathsConfig locates the three directories the engine reads and
// writes: source books, the segmented index, and compressed chunk blobs.
type PathsConfig struct {
	BooksDir    string `yaml:"books_dir" usage:"Directory of source documents to ingest."`
	IndexDir    string `yaml:"index_dir" usage:"Directory holding segment directories and index.json."`
	ChunksDir   string `yaml:"chunks_dir" usage:"Directory holding zstd-compressed chunk blobs."`
	CatalogFile string `yaml:"catalog_file" usage:"JSON file listing {book_id, url, extension} sources for the indexing pipeline."`
}

// ChunkingConfig controls how a book's full text is split into
// overlapping chunks.
type ChunkingConfig struct {
	ChunkSize int `yaml:"chunk_size" usage:"Maximum chunk size in characters."`
	Overlap   int `yaml:"overlap" usage:"Minimum overlap in characters between consecutive chunks."`
}

// PipelineConfig controls the streaming pipeline's concurrency and
// queue capacities.
type PipelineConfig struct {
	DownloadConcurrency int `yaml:"download_concurrency" usage:"Max concurrent downloads."`
	DownloadQueueSize   int `yaml:"download_queue_size" usage:"Capacity of the downloader-to-processor queue."`
	IndexQueueSize      int `yaml:"index_queue_size" usage:"Capacity of the processor-to-indexer queue."`
	IndexBatchSize      int `yaml:"index_batch_size" usage:"Number of books accumulated before writing a segment."`
}

// AnalysisConfig overrides the analyzer's stopword list and token length
// bounds.
type AnalysisConfig struct {
	StopwordsFile string `yaml:"stopwords_file" usage:"Path to a newline-delimited stopwords file."`
	MinTermLen    int    `yaml:"min_term_len" usage:"Minimum surviving token length."`
	MaxTermLen    int    `yaml:"max_term_len" usage:"Maximum surviving token length."`
}

// BM25Config carries both scoring parameter pairs: the disk executor's
// and the RAM index's, which are intentionally allowed to diverge.
type BM25Config struct {
	DiskK1 float64 `yaml:"disk_k1" usage:"BM25 k1 for the on-disk query executor."`
	DiskB  float64 `yaml:"disk_b" usage:"BM25 b for the on-disk query executor."`
	RAMK1  float64 `yaml:"ram_k1" usage:"BM25 k1 for the RAM index."`
	RAMB   float64 `yaml:"ram_b" usage:"BM25 b for the RAM index."`
}

// LogConfig is adapted from heroiclabs-nakama's LogConfig: Verbose, plus a
// LogDir in place of nakama's stdout switch.
type LogConfig struct {
	Verbose bool   `yaml:"verbose" usage:"Turn on debug-level logging."`
	LogDir  string `yaml:"log_dir" usage:"Directory for a JSON log file; empty means log to stdout."`
}

// New returns a Config populated with the engine's defaults.
func New() *Config {
	cwd, _ := os.Getwd()
	return &Config{
		Paths: &PathsConfig{
			BooksDir:    filepath.Join(cwd, "books"),
			IndexDir:    filepath.Join(cwd, "index"),
			ChunksDir:   filepath.Join(cwd, "chunks"),
			CatalogFile: filepath.Join(cwd, "books", "catalog.json"),
		},
		Chunking: &ChunkingConfig{
			ChunkSize: 1000,
			Overlap:   100,
		},
		Pipeline: &PipelineConfig{
			DownloadConcurrency: 20,
			DownloadQueueSize:   50,
			IndexQueueSize:      500,
			IndexBatchSize:      1000,
		},
		Analysis: &AnalysisConfig{
			MinTermLen: 2,
			MaxTermLen: 25,
		},
		BM25: &BM25Config{
			DiskK1: 1.5,
			DiskB:  0.75,
			RAMK1:  1.2,
			RAMB:   0.75,
		},
		Log: &LogConfig{},
	}
}

// Load builds the default Config, overlays a YAML file at path if
// non-empty, then overlays args as command-line flags, which win over
// both defaults and the file. A missing or malformed file at path is
// reported as an error rather than silently falling back to defaults.
func Load(path string, args []string) (*Config, error) {
	cfg := New()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	fm := flags.NewFlagMakerAdv(&flags.FlagMakingOptions{
		UseLowerCase: true,
		Flatten:      false,
		TagName:      "yaml",
		TagUsage:     "usage",
	})
	if _, err := fm.ParseArgs(cfg, args); err != nil {
		return nil, fmt.Errorf("config: parse flags: %w", err)
	}

	return cfg, nil
}

// LoadStopwords reads a newline-delimited stopwords file, skipping blank
// lines and lines starting with '#'. An empty path returns a nil slice
// and no error, so callers can pass AnalysisConfig.StopwordsFile through
// unconditionally.
func LoadStopwords(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read stopwords %s: %w", path, err)
	}
	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words, nil
}
