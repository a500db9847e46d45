package testutil

import (
	"io"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// MemoryBlobStore is an in-memory storage.BlobStore for tests.
type MemoryBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

func (s *MemoryBlobStore) Save(r io.Reader, originalName string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	ref := uuid.NewString() + filepath.Ext(originalName)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[ref] = data

	return ref, nil
}

func (s *MemoryBlobStore) Remove(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, ref)
	return nil
}

func (s *MemoryBlobStore) URL(ref string) string {
	return "/uploads/" + ref
}

// Has reports whether a blob is currently stored.
func (s *MemoryBlobStore) Has(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[ref]
	return ok
}

// Reset drops every stored blob (for test isolation).
func (s *MemoryBlobStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs = make(map[string][]byte)
}

// Len returns the number of stored blobs.
func (s *MemoryBlobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
