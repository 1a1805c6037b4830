package override

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory. It is used when no database
// path is configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	// FailWrites makes Set and Delete return an error, for exercising the
	// persistence failure path.
	FailWrites error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Get returns the entry for contractID.
func (s *MemoryStore) Get(_ context.Context, contractID string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[contractID]
	return entry.clone(), ok, nil
}

// List returns a copy of every entry.
func (s *MemoryStore) List(_ context.Context) (map[string]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(s.entries))
	for id, entry := range s.entries {
		out[id] = entry.clone()
	}
	return out, nil
}

// Set stores entry under contractID.
func (s *MemoryStore) Set(_ context.Context, contractID string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.entries[contractID] = entry.clone()
	return nil
}

// Delete removes the entry for contractID.
func (s *MemoryStore) Delete(_ context.Context, contractID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	delete(s.entries, contractID)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
