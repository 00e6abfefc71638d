package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DiskCache persists entries as one JSON file per key
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDiskCache creates a new disk cache
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{
		dir: dir,
		ttl: ttl,
		now: time.Now,
	}
}

type diskEntry struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	StoredAt  time.Time `json:"stored_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Get retrieves a value, removing it if it has expired
func (c *DiskCache) Get(key string) ([]byte, bool) {
	entry, ok := c.read(c.path(key))
	if !ok {
		return nil, false
	}
	if c.now().After(entry.ExpiresAt) {
		_ = os.Remove(c.path(key))
		return nil, false
	}
	return entry.Data, true
}

// Set writes the entry to a temporary file and renames it into place so
// readers never see a partial entry
func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	now := c.now()
	data, err := json.Marshal(diskEntry{
		Key:       key,
		Data:      value,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmpName, c.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Delete removes a value. Missing entries are not an error.
func (c *DiskCache) Delete(key string) error {
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes every cache file but leaves the directory and any
// unrelated files in place
func (c *DiskCache) Clear() error {
	files, err := filepath.Glob(filepath.Join(c.dir, "*.cache"))
	if err != nil {
		return err
	}
	var errs []error
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Prune removes expired entries and returns how many were deleted
func (c *DiskCache) Prune() (int, error) {
	files, err := filepath.Glob(filepath.Join(c.dir, "*.cache"))
	if err != nil {
		return 0, err
	}
	now := c.now()
	removed := 0
	for _, f := range files {
		entry, ok := c.read(f)
		if ok && !now.After(entry.ExpiresAt) {
			continue
		}
		if err := os.Remove(f); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (c *DiskCache) read(path string) (diskEntry, bool) {
	var entry diskEntry
	data, err := os.ReadFile(path)
	if err != nil {
		return entry, false
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, false
	}
	return entry, true
}

// path maps a key to a file name. Keys contain ':' which some filesystems
// reject.
func (c *DiskCache) path(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_", `\`, "_").Replace(key)
	return filepath.Join(c.dir, name+".cache")
}
