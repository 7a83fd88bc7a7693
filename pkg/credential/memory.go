package credential

import (
	"context"
	"sync"
)

const backendMemory = "memory"

// MemoryStore keeps the credential for the lifetime of the process.
type MemoryStore struct {
	mu   sync.RWMutex
	cred *Credential
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns a copy of the stored credential.
func (s *MemoryStore) Get(ctx context.Context) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cred == nil {
		StoreMisses.WithLabelValues(backendMemory).Inc()
		return nil, ErrCredentialNotFound
	}
	StoreHits.WithLabelValues(backendMemory).Inc()
	c := *s.cred
	return &c, nil
}

// Set replaces the stored credential.
func (s *MemoryStore) Set(ctx context.Context, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = &cred
	return nil
}
