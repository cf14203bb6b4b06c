package segment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest is the index.json sibling to a tree of segment directories.
// The order of Segments has no semantic meaning: segments never share
// docIds.
type Manifest struct {
	Segments  []string `json:"segments"`
	TotalDocs uint32   `json:"total_docs"`
	AvgDL     float32  `json:"avgdl"`
}

// ManifestFile is the conventional file name for a Manifest inside an
// index directory.
const ManifestFile = "index.json"

// LoadManifest reads and parses indexDir/index.json. A missing file is
// treated as an empty, freshly-initialized index rather than an error,
// so a brand-new index directory can be opened without a bootstrap step.
func LoadManifest(indexDir string) (Manifest, error) {
	path := filepath.Join(indexDir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, nil
		}
		return Manifest{}, fmt.Errorf("segment: read %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("segment: parse %s: %w", path, err)
	}
	return m, nil
}

// SaveManifest atomically rewrites indexDir/index.json: it writes to a
// temp file in the same directory and renames over the target, so a
// concurrent reader never observes a partially-written manifest. The
// manifest is always the last file written during a segment build, so
// its presence implies every blob it references is complete.
func SaveManifest(indexDir string, m Manifest) error {
	path := filepath.Join(indexDir, ManifestFile)
	tmp := path + ".tmp"

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("segment: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("segment: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("segment: rename %s to %s: %w", tmp, path, err)
	}
	return nil
}
