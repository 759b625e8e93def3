// Package cache persists fetched source documents on disk so repeated
// runs against the same weekly page or monthly bulletin do not re-download
// unchanged content. Entries are stored as <key>.meta.json plus <key>.body
// where key is sha256 of the URL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is the metadata half of a cached document. ETag and LastModified
// feed conditional requests on revalidation.
type Entry struct {
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// DocCache is a flat on-disk document store. No eviction beyond the
// explicit age purge; duty rosters are small and expire weekly anyway.
type DocCache struct {
	Dir string
}

func (c *DocCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	return os.MkdirAll(c.Dir, 0o755)
}

func (c *DocCache) key(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

func (c *DocCache) metaPath(key string) string { return filepath.Join(c.Dir, key+".meta.json") }
func (c *DocCache) bodyPath(key string) string { return filepath.Join(c.Dir, key+".body") }

// Meta returns the stored metadata for url, or an error satisfying
// os.IsNotExist when the document was never cached.
func (c *DocCache) Meta(_ context.Context, url string) (*Entry, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	f, err := os.Open(c.metaPath(c.key(url)))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var e Entry
	if err := json.NewDecoder(f).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Body returns the cached document bytes for url.
func (c *DocCache) Body(_ context.Context, url string) ([]byte, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	return os.ReadFile(c.bodyPath(c.key(url)))
}

// Put stores one fetched document. The body lands first so a crash
// between the two writes leaves a missing meta file, which reads as a
// cache miss, never a meta file pointing at a stale body.
func (c *DocCache) Put(_ context.Context, url, contentType, etag, lastModified string, body []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	key := c.key(url)
	if err := os.WriteFile(c.bodyPath(key), body, 0o644); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	meta := Entry{
		URL:          url,
		ContentType:  contentType,
		ETag:         etag,
		LastModified: lastModified,
		FetchedAt:    time.Now().UTC(),
	}
	tmp := c.metaPath(key) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create meta: %w", err)
	}
	if err := json.NewEncoder(f).Encode(&meta); err != nil {
		f.Close()
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, c.metaPath(key))
}
