package yarasp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yarasp/yarasp-go/internal/constants"
)

const fileCacheExt = ".json"

// FileCacheConfig configures the on-disk cache.
type FileCacheConfig struct {
	// Dir holds one file per cached response.
	Dir string
}

// FileCache stores each entry as a JSON file named by the hashed key.
type FileCache struct {
	dir string
}

// NewFileCache creates the cache directory if needed.
func NewFileCache(config *FileCacheConfig) (*FileCache, error) {
	dir := constants.DefaultCacheDir
	if config != nil && config.Dir != "" {
		dir = config.Dir
	}

	err := os.MkdirAll(dir, constants.CacheDirPerm)
	if err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}

	return &FileCache{dir: dir}, nil
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, HashKey(key)+fileCacheExt)
}

// Get reads the entry stored under key.
func (c *FileCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	data, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	var entry CacheEntry

	err = json.Unmarshal(data, &entry)
	if err != nil {
		_ = os.Remove(c.path(key))

		return nil, fmt.Errorf("%w: %s: corrupt entry", ErrKeyNotFound, key)
	}

	if entry.Expired(time.Now()) {
		_ = os.Remove(c.path(key))

		return nil, fmt.Errorf("%w: %s", ErrEntryExpired, key)
	}

	return &entry, nil
}

// Set writes entry through a temporary file so readers never see partial data.
func (c *FileCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("writing cache file: %w", err)
	}

	err = os.Rename(tmp.Name(), c.path(key))
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("replacing cache file: %w", err)
	}

	return nil
}

// Delete removes the file for key.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting cache file: %w", err)
	}

	return nil
}

// Clear removes every cache file in the directory.
func (c *FileCache) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("listing cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileCacheExt) {
			continue
		}

		err = os.Remove(filepath.Join(c.dir, entry.Name()))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("deleting cache file: %w", err)
		}
	}

	return nil
}

// Has reports whether a fresh entry exists for key.
func (c *FileCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}
