// Package memory keeps page snapshots in-memory for development.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Store archives page bodies in a map and returns pseudo URIs.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an in-memory snapshot store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Put stores the body and returns a memory:// URI.
func (s *Store) Put(_ context.Context, path string, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", path), nil
}

// Get returns a stored body.
func (s *Store) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[path]
	return data, ok
}
