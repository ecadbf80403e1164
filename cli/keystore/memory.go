package keystore

import (
	"sort"
	"sync"
)

// MemoryKeystore is an unencrypted in-process Keystore for tests and
// programs that inject keys at startup.
type MemoryKeystore struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewMemoryKeystore returns a keystore seeded with keys.
func NewMemoryKeystore(keys map[string]string) *MemoryKeystore {
	m := &MemoryKeystore{keys: make(map[string]string, len(keys))}
	for k, v := range keys {
		m.keys[k] = v
	}
	return m
}

// Set stores a key-value pair.
func (m *MemoryKeystore) Set(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[name] = value
	return nil
}

// Get retrieves a value by name.
func (m *MemoryKeystore) Get(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.keys[name]
	if !ok {
		return "", &ErrKeyNotFound{Name: name}
	}
	return v, nil
}

// Delete removes a key by name.
func (m *MemoryKeystore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[name]; !ok {
		return &ErrKeyNotFound{Name: name}
	}
	delete(m.keys, name)
	return nil
}

// List returns all stored key names.
func (m *MemoryKeystore) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.keys))
	for k := range m.keys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

var _ Keystore = (*MemoryKeystore)(nil)
