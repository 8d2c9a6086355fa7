package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is a Backend that keeps bodies in process memory
type Memory struct {
	records map[string]map[string][]byte
	mu      sync.RWMutex
}

// NewMemory creates an empty in-memory backend
func NewMemory() *Memory {
	return &Memory{records: make(map[string]map[string][]byte)}
}

// Load implements Backend
func (m *Memory) Load(_ context.Context, entity, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	body, ok := m.records[entity][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), body...), nil
}

// Save implements Backend
func (m *Memory) Save(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		bodies, ok := m.records[r.Entity]
		if !ok {
			bodies = make(map[string][]byte)
			m.records[r.Entity] = bodies
		}
		bodies[r.Key] = append([]byte(nil), r.Body...)
	}
	return nil
}

// Keys returns the stored keys of entity in sorted order
func (m *Memory) Keys(entity string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.records[entity]))
	for k := range m.records[entity] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
