// Package buffers keeps the text of documents currently open in the editor.
package buffers

import (
	"path/filepath"
	"sort"
	"sync"

	"symbolicator/internal/core/ports"
)

var _ ports.BufferStore = (*Store)(nil)

type document struct {
	version int32
	content []byte
}

// Store is safe for concurrent use. Content is copied on the way in and on
// the way out, so callers never share a slice with the store.
type Store struct {
	mu   sync.RWMutex
	docs map[string]document
}

func New() *Store {
	return &Store{docs: make(map[string]document)}
}

func (s *Store) Open(path string, version int32, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[clean(path)] = document{version: version, content: clone(content)}
}

// Update replaces the document content. Updates older than the stored
// version are ignored; an update for a document that is not open opens it.
func (s *Store) Update(path string, version int32, content []byte) bool {
	key := clean(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[key]; ok && version < doc.version {
		return false
	}
	s.docs[key] = document{version: version, content: clone(content)}
	return true
}

func (s *Store) Close(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, clean(path))
}

func (s *Store) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[clean(path)]
	if !ok {
		return nil, false
	}
	return clone(doc.content), true
}

func (s *Store) Version(path string) (int32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[clean(path)]
	return doc.version, ok
}

// Paths returns the open document paths in sorted order.
func (s *Store) Paths() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.docs))
	for path := range s.docs {
		out = append(out, path)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

func clean(path string) string {
	return filepath.Clean(path)
}

func clone(content []byte) []byte {
	out := make([]byte, len(content))
	copy(out, content)
	return out
}
