package fieldcache

import (
	"sort"
	"strings"
	"sync"
)

// MemoryStorage is an in-process Storage. Values last as long as the process.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string

	// FailWrites makes Set and Delete return ErrWriteFailed, for exercising
	// the swallow path.
	FailWrites bool
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return ErrWriteFailed
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return ErrWriteFailed
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Keys returns the stored keys with the given prefix, sorted.
func (m *MemoryStorage) Keys(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
