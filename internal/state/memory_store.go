package state

import (
	"sort"
	"sync"

	"github.com/TheMichaelB/cavsgen/internal/models"
)

// MemoryStore keeps state in memory. It backs dry runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*models.GenerationState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*models.GenerationState),
	}
}

// Load returns a copy of the stored state.
func (m *MemoryStore) Load(output string) (*models.GenerationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if st, ok := m.states[output]; ok {
		return copyState(st), nil
	}
	return nil, ErrStateNotFound
}

// Save stores a copy of state.
func (m *MemoryStore) Save(output string, state *models.GenerationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[output] = copyState(state)
	return nil
}

// Reset removes state for an output.
func (m *MemoryStore) Reset(output string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, output)
	return nil
}

// List returns all outputs with stored state, sorted.
func (m *MemoryStore) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	outputs := make([]string, 0, len(m.states))
	for output := range m.states {
		outputs = append(outputs, output)
	}
	sort.Strings(outputs)
	return outputs, nil
}

// Migrate copies every state into target.
func (m *MemoryStore) Migrate(target Store) error {
	_, err := migrate(m, target)
	return err
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
