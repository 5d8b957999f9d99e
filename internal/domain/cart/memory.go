package cart

import (
	"context"
	"slices"
	"sync"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps cart snapshots in process memory. State does not
// survive a restart.
type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string][]LineItem
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string][]LineItem)}
}

// Load returns the stored snapshot for the session.
func (m *MemoryRepository) Load(_ context.Context, sessionID string) ([]LineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.carts[sessionID]), nil
}

// Save replaces the stored snapshot for the session.
func (m *MemoryRepository) Save(_ context.Context, sessionID string, items []LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(items) == 0 {
		delete(m.carts, sessionID)
		return nil
	}
	m.carts[sessionID] = slices.Clone(items)
	return nil
}

// Delete drops the stored snapshot for the session.
func (m *MemoryRepository) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts, sessionID)
	return nil
}
