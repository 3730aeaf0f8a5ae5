package store

import (
	"fmt"
	"os"
	"path/filepath"
)

func metaPath(dir, baseName string) string {
	return filepath.Join(dir, baseName+".meta")
}

// loadMeta reads "<segmentIndex> <offset>" from the metadata file. Any
// failure to read or parse it is treated as "start fresh" - the caller
// is responsible for verifying the referenced segment actually exists.
func loadMeta(dir, baseName string) (segmentIndex, offset uint64, ok bool) {
	b, err := os.ReadFile(metaPath(dir, baseName))
	if err != nil {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(string(b), "%d %d", &segmentIndex, &offset); err != nil {
		return 0, 0, false
	}
	return segmentIndex, offset, true
}

// saveMeta writes the metadata file, retrying once on failure. Errors
// are swallowed after the retry - the log is best-effort.
func saveMeta(dir, baseName string, segmentIndex, offset uint64) {
	contents := []byte(fmt.Sprintf("%d %d", segmentIndex, offset))
	path := metaPath(dir, baseName)
	if err := os.WriteFile(path, contents, 0644); err != nil {
		if err := os.WriteFile(path, contents, 0644); err != nil {
			logFallback("error", fmt.Sprintf("failed to persist metadata for %q after retry: %v", baseName, err))
		}
	}
}
