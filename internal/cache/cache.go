// Package cache stores raw upstream responses so that repeated runs against
// the same inputs reuse earlier downloads.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bluele/gcache"
)

// Store is a byte-oriented key/value cache.
type Store interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// MemoryStore is an in-process LRU cache.
type MemoryStore struct {
	lru gcache.Cache
}

// NewMemoryStore builds an LRU holding at most size entries. A zero ttl keeps
// entries until they are evicted.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	builder := gcache.New(size).LRU()
	if ttl > 0 {
		builder = builder.Expiration(ttl)
	}
	return &MemoryStore{lru: builder.Build()}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := m.lru.Get(key)
	if errors.Is(err, gcache.KeyNotFoundError) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value.([]byte), true, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	return m.lru.Set(key, value)
}

func (m *MemoryStore) Len() int {
	return m.lru.Len(false)
}

func (m *MemoryStore) Close() error {
	m.lru.Purge()
	return nil
}

// Tiered consults a fast front store before a persistent back store and
// promotes back store hits.
type Tiered struct {
	front Store
	back  Store
}

func NewTiered(front, back Store) *Tiered {
	return &Tiered{front: front, back: back}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if value, ok, err := t.front.Get(ctx, key); err != nil || ok {
		return value, ok, err
	}
	value, ok, err := t.back.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if err := t.front.Put(ctx, key, value); err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (t *Tiered) Put(ctx context.Context, key string, value []byte) error {
	if err := t.back.Put(ctx, key, value); err != nil {
		return err
	}
	return t.front.Put(ctx, key, value)
}

func (t *Tiered) Close() error {
	return errors.Join(t.front.Close(), t.back.Close())
}
