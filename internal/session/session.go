package session

import (
	"sync"

	"contract-assistant/internal/index"
)

// DefaultID is used for callers that do not identify a session.
const DefaultID = "default"

// Store maps a session identifier to that session's active document index.
// Put is last-writer-wins per key; the replaced index is released so its
// vector data does not accumulate across uploads.
type Store struct {
	mu      sync.RWMutex
	indexes map[string]*index.Index
}

func NewStore() *Store {
	return &Store{indexes: make(map[string]*index.Index)}
}

// Put installs the index for the session, releasing whatever it replaces.
func (s *Store) Put(sessionID string, idx *index.Index) {
	s.mu.Lock()
	prev := s.indexes[sessionID]
	s.indexes[sessionID] = idx
	s.mu.Unlock()

	if prev != nil && prev != idx {
		prev.Release()
	}
}

// Get returns the session's active index, or false if none was uploaded.
func (s *Store) Get(sessionID string) (*index.Index, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[sessionID]
	return idx, ok && idx != nil
}
