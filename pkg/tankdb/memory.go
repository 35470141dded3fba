package tankdb

import (
	"context"
	"sync"
)

// Memory is an in-process record store with the same semantics as DB.
type Memory struct {
	mu      sync.Mutex
	records map[string]string
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.records[key]
	return v, ok, nil
}

func (m *Memory) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.records[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.records, key)
	m.mu.Unlock()
	return nil
}
