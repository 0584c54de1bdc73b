package repository

import (
	"context"
	"sync"

	"github.com/folio/folio/backend/go-services/internal/document"
)

// MemoryTarget keeps the last persisted snapshot in process memory. It backs
// read-only hosts and unit tests.
type MemoryTarget struct {
	mu       sync.RWMutex
	snapshot []byte
	writes   int
}

func NewMemoryTarget() *MemoryTarget {
	return &MemoryTarget{}
}

func (m *MemoryTarget) Name() string { return "memory" }

func (m *MemoryTarget) Fetch(ctx context.Context) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return nil, ErrNotFound
	}
	return document.Decode(m.snapshot)
}

func (m *MemoryTarget) Persist(ctx context.Context, doc *document.Document) error {
	b, err := document.Encode(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = b
	m.writes++
	return nil
}

// Writes reports how many persists have completed.
func (m *MemoryTarget) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
