// Package chunkstore persists a book's full chunk text as a
// zstd-compressed blob, sharded by book id, outside the index directory
// proper.
package chunkstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressionLevel is the zstd compression level used for chunk blobs.
const CompressionLevel = zstd.SpeedDefault

// Store writes and reads book chunk blobs under a root directory laid
// out as `<shard>/<book_id>.zst`, where shard is the first two
// characters of book_id, left-padded with '0' if shorter.
type Store struct {
	root string
}

// New returns a Store rooted at dir. The directory is not created here;
// Put creates shard subdirectories lazily.
func New(dir string) *Store {
	return &Store{root: dir}
}

// shard returns the two-character shard prefix for bookID, left-padded
// with '0'.
func shard(bookID string) string {
	if len(bookID) >= 2 {
		return bookID[:2]
	}
	return strings.Repeat("0", 2-len(bookID)) + bookID
}

func (s *Store) path(bookID string) string {
	return filepath.Join(s.root, shard(bookID), bookID+".zst")
}

// Exists reports whether bookID's chunk blob is already on disk, used
// by the pipeline's downloader to skip already-processed books on
// resume.
func (s *Store) Exists(bookID string) bool {
	_, err := os.Stat(s.path(bookID))
	return err == nil
}

// Put compresses chunks (already newline-joined by the caller) at
// CompressionLevel and writes them to bookID's shard path, creating the
// shard directory if needed.
func (s *Store) Put(bookID string, chunks []string) error {
	path := s.path(bookID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("chunkstore: create shard dir for %s: %w", bookID, err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(CompressionLevel))
	if err != nil {
		return fmt.Errorf("chunkstore: new encoder: %w", err)
	}
	defer enc.Close()

	raw := []byte(strings.Join(chunks, "\n"))
	compressed := enc.EncodeAll(raw, nil)

	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		return fmt.Errorf("chunkstore: write %s: %w", path, err)
	}
	return nil
}

// Get reads and decompresses bookID's chunk blob, splitting it back
// into individual chunks on the newline separator Put used.
func (s *Store) Get(bookID string) ([]string, error) {
	path := s.path(bookID)
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chunkstore: read %s: %w", path, err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("chunkstore: new decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("chunkstore: decode %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return strings.Split(string(raw), "\n"), nil
}
