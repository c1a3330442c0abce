package audio

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// speechCache stores rendered speech files under a hash of everything that
// influences the audio. Files are fanned out into two-character
// subdirectories.
type speechCache struct {
	dir string
}

func newSpeechCache(dir string) (*speechCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &speechCache{dir: dir}, nil
}

// key hashes the inputs of one rendering.
func (c *speechCache) key(parts ...string) string {
	h := md5.New()
	for _, part := range parts {
		io.WriteString(h, part)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *speechCache) path(key, ext string) string {
	if ext == "" {
		ext = ".mp3"
	}
	return filepath.Join(c.dir, key[:2], key[2:]+ext)
}

// fetch copies a cached rendering to dst and reports whether there was one.
func (c *speechCache) fetch(key, ext, dst string) bool {
	cached := c.path(key, ext)
	if _, err := os.Stat(cached); err != nil {
		return false
	}
	return copyFile(cached, dst) == nil
}

func (c *speechCache) store(key, ext, src string) error {
	return copyFile(src, c.path(key, ext))
}

// Stats returns the number and total size of cached files.
func (c *speechCache) Stats() (files int, size int64, err error) {
	err = filepath.WalkDir(c.dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files++
		size += info.Size()
		return nil
	})
	return files, size, err
}

// Clear removes every cached file.
func (c *speechCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// copyFile copies src to dst through a temporary file, so readers never
// see a partial dst.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	return writeAtomically(dst, in)
}

func writeAtomically(dst string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".partial-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
