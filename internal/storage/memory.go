package storage

import (
	"context"
	"sync"
)

type memObject struct {
	data        []byte
	contentType string
}

// MemoryStorage is an in-process ObjectStorage for tests and local
// development. Contents do not survive a restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

var _ ObjectStorage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory object store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memObject)}
}

// Put stores the object bytes at key.
func (m *MemoryStorage) Put(ctx context.Context, key string, body []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data := make([]byte, len(body))
	copy(data, body)
	m.objects[key] = memObject{data: data, contentType: contentType}
	return nil
}

// GetURL returns a synthetic URL; memory objects are not externally
// reachable, so this only identifies the object.
func (m *MemoryStorage) GetURL(ctx context.Context, key string) (string, error) {
	return "memory://" + key, nil
}

// Delete removes the object; missing keys are a no-op.
func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Exists reports whether an object is stored at key.
func (m *MemoryStorage) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

// Len returns the number of stored objects.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
