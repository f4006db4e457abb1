package index

import (
	"fmt"
	"sync"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// Factory opens a fresh index handle.
type Factory func() (port.VectorIndex, error)

// Manager owns the process-wide index handle. The index is shared by
// every connection in a process; the manager gives it single-writer,
// multi-reader discipline: a rebuild holds the write lock while
// searches share the read lock, and Invalidate forces the next reader
// to reopen from disk.
type Manager struct {
	factory Factory

	mu  sync.RWMutex
	idx port.VectorIndex
}

// NewManager creates a manager that opens indexes with factory.
func NewManager(factory Factory) *Manager {
	return &Manager{factory: factory}
}

// Rebuild opens a fresh handle and rebuilds it with the given
// passages, swapping it in as the active index.
func (m *Manager) Rebuild(passages []domain.Passage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idx != nil {
		m.idx.Close()
		m.idx = nil
	}

	idx, err := m.factory()
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	if err := idx.Rebuild(passages); err != nil {
		idx.Close()
		return err
	}

	m.idx = idx
	return nil
}

// Search runs a query against the active index, opening it lazily on
// first use.
func (m *Manager) Search(query string, k int) ([]domain.ScoredPassage, error) {
	if err := m.ensure(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.idx == nil {
		return nil, fmt.Errorf("index not available")
	}
	return m.idx.Search(query, k)
}

// Count reports the active index size.
func (m *Manager) Count() (int, error) {
	if err := m.ensure(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.idx == nil {
		return 0, fmt.Errorf("index not available")
	}
	return m.idx.Count()
}

// Invalidate drops the cached handle so the next operation reloads
// from storage. Called after ingestion completes.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idx != nil {
		m.idx.Close()
		m.idx = nil
	}
}

// Close releases the active handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idx == nil {
		return nil
	}
	err := m.idx.Close()
	m.idx = nil
	return err
}

// ensure lazily opens the index handle if none is active.
func (m *Manager) ensure() error {
	m.mu.RLock()
	ready := m.idx != nil
	m.mu.RUnlock()
	if ready {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idx == nil {
		idx, err := m.factory()
		if err != nil {
			return fmt.Errorf("failed to open index: %w", err)
		}
		m.idx = idx
	}
	return nil
}
