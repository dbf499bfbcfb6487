package persistence

import (
	"sort"
	"sync"

	"github.com/rheijn/flume/pkg/api"
)

// InMemoryStore is a simple, goroutine-safe SpecStore backed by a map.
// Specs round-trip through the codec so stored state cannot alias live
// orchestrator state.
type InMemoryStore struct {
	mu    sync.RWMutex
	specs map[string][]byte
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{specs: make(map[string][]byte)}
}

// Ensure InMemoryStore implements the interface.
var _ SpecStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) SaveSpec(name string, spec *api.Spec) error {
	data, err := EncodeSpec(spec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs[name] = data
	return nil
}

func (s *InMemoryStore) GetSpec(name string) (*api.Spec, error) {
	s.mu.RLock()
	data, ok := s.specs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSpecNotFound
	}
	return DecodeSpec(data)
}

func (s *InMemoryStore) ListSpecs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.specs))
	for name := range s.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *InMemoryStore) DeleteSpec(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.specs[name]; !ok {
		return ErrSpecNotFound
	}
	delete(s.specs, name)
	return nil
}
