package state

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStorage 内存存储
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]Item
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]Item)}
}

var _ Storage = (*MemoryStorage)(nil)

// Read implements Storage.
func (m *MemoryStorage) Read(ctx context.Context, key string) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &Item{Data: append([]byte(nil), item.Data...), ETag: item.ETag}, nil
}

// Write implements Storage.
func (m *MemoryStorage) Write(ctx context.Context, key string, item *Item) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.items[key]; ok && !etagAllows(cur.ETag, item.ETag) {
		return "", fmt.Errorf("%w: key %q", ErrETagConflict, key)
	}
	etag := newETag()
	m.items[key] = Item{Data: append([]byte(nil), item.Data...), ETag: etag}
	return etag, nil
}

// Delete implements Storage.
func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
