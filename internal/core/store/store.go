// Package store holds the process-wide map from project root to the latest
// committed symbol table.
package store

import (
	"path/filepath"
	"sort"
	"sync"

	"symbolicator/internal/engine/table"
)

// Store is shared by reference between every worker and request handler.
// Entries are inserted or replaced, never removed.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table.Table
}

func New() *Store {
	return &Store{tables: make(map[string]*table.Table)}
}

// Get returns the committed snapshot for root, or table.Empty() when no pass
// has committed yet.
func (s *Store) Get(root string) *table.Table {
	if t, ok := s.Lookup(root); ok {
		return t
	}
	return table.Empty()
}

func (s *Store) Lookup(root string) (*table.Table, bool) {
	key := normalizeRoot(root)
	s.mu.RLock()
	t, ok := s.tables[key]
	s.mu.RUnlock()
	return t, ok
}

// Replace swaps in t for root. Nil tables are ignored.
func (s *Store) Replace(root string, t *table.Table) {
	if t == nil {
		return
	}
	key := normalizeRoot(root)
	s.mu.Lock()
	s.tables[key] = t
	s.mu.Unlock()
}

func (s *Store) Roots() []string {
	s.mu.RLock()
	roots := make([]string, 0, len(s.tables))
	for root := range s.tables {
		roots = append(roots, root)
	}
	s.mu.RUnlock()
	sort.Strings(roots)
	return roots
}

func normalizeRoot(root string) string {
	if root == "" {
		return ""
	}
	return filepath.Clean(root)
}
