package persist

import (
	"context"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// MemoryStore keeps encoded snapshots in a map. Values are encoded on Save so
// later changes to the caller's data never leak into the stored copy.
type MemoryStore struct {
	codec Codec

	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore returns an empty in-process snapshot store.
func NewMemoryStore(codec Codec) *MemoryStore {
	if codec == nil {
		codec = JSON()
	}
	return &MemoryStore{codec: codec, docs: map[string][]byte{}}
}

// Save encodes value under key.
func (m *MemoryStore) Save(ctx context.Context, key string, value any) error {
	raw, err := m.codec.Marshal(value)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "encode snapshot "+key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = raw
	return nil
}

// Load decodes the value under key into dest. It reports false when the key is absent.
func (m *MemoryStore) Load(ctx context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.docs[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := m.codec.Unmarshal(raw, dest); err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "decode snapshot "+key)
	}
	return true, nil
}

// Delete drops key.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, key)
	return nil
}

// Keys lists the stored keys in no particular order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.docs))
	for k := range m.docs {
		keys = append(keys, k)
	}
	return keys
}
