// Package store persists created-link records and user preferences on the
// client side. Two implementations are provided: an in-memory store for
// tests and ephemeral use, and a SQLite-backed store for durable local state.
package store

import (
	"context"
	"sync"

	"github.com/claimlink/claimlink-go"
)

// MemoryStore is a claimlink.LinkStore kept entirely in memory. Safe for
// concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	links      map[string][]claimlink.CreatedLink
	preference *claimlink.TokenPreference
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{links: make(map[string][]claimlink.CreatedLink)}
}

// AppendCreatedLink appends a record to the address's created-links list.
func (s *MemoryStore) AppendCreatedLink(_ context.Context, record claimlink.CreatedLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[record.Address] = append(s.links[record.Address], record)
	return nil
}

// CreatedLinks returns the records for an address, oldest first.
func (s *MemoryStore) CreatedLinks(_ context.Context, address string) ([]claimlink.CreatedLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.links[address]
	out := make([]claimlink.CreatedLink, len(records))
	copy(out, records)
	return out, nil
}

// SaveTokenPreference remembers the last token the user sent with.
func (s *MemoryStore) SaveTokenPreference(_ context.Context, pref claimlink.TokenPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preference = &pref
	return nil
}

// TokenPreference returns the saved preference, or nil if none was saved.
func (s *MemoryStore) TokenPreference(_ context.Context) (*claimlink.TokenPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.preference == nil {
		return nil, nil
	}
	pref := *s.preference
	return &pref, nil
}
