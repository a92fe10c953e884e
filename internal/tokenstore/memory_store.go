package tokenstore

import "sync"

// MemoryStore keeps the token record in memory only. It is used by tests to
// substitute the file-backed store without touching local storage.
type MemoryStore struct {
	mu     sync.RWMutex
	record *Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the current record, or (nil, nil) when none is stored.
func (s *MemoryStore) Load() (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record, nil
}

// Save replaces the stored record.
func (s *MemoryStore) Save(record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = record
	return nil
}

// Clear removes the stored record.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = nil
	return nil
}
