// Package archive moves phrasebooks and caches out of the way with a
// timestamped name, so a fresh one can be created in their place.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// now is replaced in tests
var now = time.Now

// Archive moves path (a file or directory) into an "archive" directory next
// to it and returns the new location. The archived name keeps the base name
// and extension and adds a timestamp.
func Archive(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("nothing to archive at %s", path)
	}

	// Get parent directory and create archive path
	archiveDir := filepath.Join(filepath.Dir(path), "archive")
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	archivePath := filepath.Join(archiveDir, fmt.Sprintf("%s-%s%s", stem, now().Format("20060102-150405"), ext))

	// Add microseconds when archived twice within a second
	if _, err := os.Stat(archivePath); err == nil {
		archivePath = filepath.Join(archiveDir, fmt.Sprintf("%s-%s%s", stem, now().Format("20060102-150405.000000"), ext))
	}

	if err := os.Rename(path, archivePath); err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", path, err)
	}
	return archivePath, nil
}
