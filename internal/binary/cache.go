package binary

import (
	"fmt"
	"os"
	"path/filepath"
)

// Cache is the per-user directory of downloaded archives. A non-empty
// regular file is the only state it keeps; entries never expire.
type Cache struct {
	dir     string
	library string
}

// NewCache returns a cache rooted at dir for one library.
func NewCache(dir, library string) *Cache {
	return &Cache{dir: dir, library: library}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns the deterministic cache location for a version and tag.
func (c *Cache) Path(tag, version string) string {
	return filepath.Join(c.dir, ArchiveName(c.library, version, tag))
}

// Exists reports whether path holds a previously downloaded archive.
func (c *Cache) Exists(path string) bool {
	return fileExists(path)
}

// Ensure creates the cache directory if needed.
func (c *Cache) Ensure() error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return nil
}

// Remove deletes a cache entry. A missing entry is not an error.
func (c *Cache) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache entry: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not empty
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}
