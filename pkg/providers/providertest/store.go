// Package providertest provides fakes for testing provider strategies.
package providertest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// MemoryStore is a core.MediaStore that keeps added files in memory.
type MemoryStore struct {
	mu    sync.Mutex
	Files map[string][]byte
	Err   error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Files: make(map[string][]byte)}
}

func (m *MemoryStore) AddFile(_ context.Context, path string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	name := filepath.Base(path)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files[name] = data
	return name, nil
}

// Get returns the content stored under name.
func (m *MemoryStore) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Files[name]
	return data, ok
}

// Len is the number of stored files.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Files)
}
