package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory document store used by tests.
type MemStore struct {
	mu    sync.RWMutex
	files map[string]memFile
	now   func() time.Time
}

type memFile struct {
	data    []byte
	modTime time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		files: make(map[string]memFile),
		now:   time.Now,
	}
}

func (s *MemStore) List(ctx context.Context) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]FileInfo, 0, len(s.files))
	for name, f := range s.files {
		files = append(files, FileInfo{Name: name, Size: int64(len(f.data)), ModTime: f.modTime})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *MemStore) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", name)
	}
	data := make([]byte, len(f.data))
	copy(data, f.data)
	return data, nil
}

func (s *MemStore) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.files[name] = memFile{data: stored, modTime: s.now()}
	return nil
}
