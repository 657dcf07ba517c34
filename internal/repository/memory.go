package repository

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCacheStore is a process-local CacheStore with lazy expiry.
type MemoryCacheStore struct {
	entries sync.Map
	now     func() time.Time
}

func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{now: time.Now}
}

func (r *MemoryCacheStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := r.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	entry := val.(memoryEntry)
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		r.entries.Delete(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores a copy of value. A non-positive ttl never expires.
func (r *MemoryCacheStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.entries.Store(key, entry)
	return nil
}

func (r *MemoryCacheStore) Delete(_ context.Context, key string) error {
	r.entries.Delete(key)
	return nil
}

func (r *MemoryCacheStore) DeletePrefix(_ context.Context, prefix string) error {
	r.entries.Range(func(k, _ any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			r.entries.Delete(k)
		}
		return true
	})
	return nil
}
