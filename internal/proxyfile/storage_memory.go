package proxyfile

import (
	"context"
	"io"
	"strings"
	"sync"
)

// InMemoryStorage keeps blobs in a map; used by tests and single-node dev runs.
type InMemoryStorage struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{blobs: make(map[string][]byte)}
}

func (s *InMemoryStorage) Upload(_ context.Context, path string, blob io.Reader) (string, error) {
	data, err := io.ReadAll(blob)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = data
	return "mem://" + path, nil
}

func (s *InMemoryStorage) DeleteAllUnder(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path := range s.blobs {
		if strings.HasPrefix(path, prefix) {
			delete(s.blobs, path)
		}
	}
	return nil
}

// Paths lists stored blob paths; test helper.
func (s *InMemoryStorage) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.blobs))
	for path := range s.blobs {
		out = append(out, path)
	}
	return out
}

var _ Storage = (*InMemoryStorage)(nil)
