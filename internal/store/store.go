// Package store provides the shared document store: the directory-like space
// where scraped pages and uploaded files land before chunking and indexing.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// FileInfo describes one stored source file.
type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// DocumentStore abstracts the ingestion directory so tests can substitute an
// in-memory implementation. Listings are sorted by name so downstream load
// order is deterministic across platforms.
type DocumentStore interface {
	List(ctx context.Context) ([]FileInfo, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
}

// Fingerprint derives a cache key for the current store contents from the
// sorted file listing (name, size, mtime). Any write to the store changes the
// fingerprint, so a cached index built for an older fingerprint is never
// served after a mutation.
func Fingerprint(ctx context.Context, s DocumentStore) (string, error) {
	files, err := s.List(ctx)
	if err != nil {
		return "", err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	h := sha256.New()
	for _, f := range files {
		fmt.Fprintf(h, "%s|%d|%d\n", f.Name, f.Size, f.ModTime.UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
