package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory DocumentStore used by tests. Documents
// are held as JSON so encoding behavior matches a real backend.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]json.RawMessage

	// UpdateCalls counts persisted mutations, so tests can assert the
	// store wrote exactly once per operation.
	UpdateCalls int

	// FailWrites makes Set and Update return an error, for exercising
	// persistence-failure paths.
	FailWrites bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]json.RawMessage)}
}

func (s *MemoryStore) Get(_ context.Context, collection, key string, dest any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.collections[collection][key]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (s *MemoryStore) FindByField(_ context.Context, collection, field, value string, dest any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, raw := range s.collections[collection] {
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		if v, ok := doc[field].(string); ok && v == value {
			return json.Unmarshal(raw, dest)
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Set(_ context.Context, collection, key string, doc any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return fmt.Errorf("memory store: writes disabled")
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]json.RawMessage)
	}
	s.collections[collection][key] = raw
	return nil
}

func (s *MemoryStore) Update(_ context.Context, collection, key string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return fmt.Errorf("memory store: writes disabled")
	}

	raw, ok := s.collections[collection][key]
	if !ok {
		return ErrNotFound
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for path, value := range fields {
		encoded, err := json.Marshal(value)
		if err != nil {
			return err
		}
		doc[path] = encoded
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.collections[collection][key] = merged
	s.UpdateCalls++
	return nil
}

func (s *MemoryStore) Close() error { return nil }
