package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CreatePhraseFile writes one phrase per line into a temp file and returns
// its path
func CreatePhraseFile(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "phrases.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("Failed to create phrase file %s: %v", path, err)
	}
	return path
}

// AssertFileExists checks if a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); err == nil {
		t.Errorf("Expected file to not exist: %s", path)
	}
}

// AssertContains checks that output contains every substring
func AssertContains(t *testing.T, output string, substrings ...string) {
	t.Helper()

	for _, s := range substrings {
		if !strings.Contains(output, s) {
			t.Errorf("Output does not contain %q\nOutput: %s", s, output)
		}
	}
}
