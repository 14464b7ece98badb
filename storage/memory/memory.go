// Package memory provides an in-memory implementation of the storage interface
// using github.com/hashicorp/golang-lru/v2 for bounded caching with TTL support.
package memory

import (
	"context"
	"fmt"

	"github.com/ggoodman/coffee-shop-go/storage"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Storage implements the storage.Storage interface using in-memory storage.
// lru.Cache is safe for concurrent use, so no extra locking is needed.
type Storage struct {
	cache *lru.Cache[string, *storage.StorageItem]
}

// New creates a new in-memory storage holding at most maxItems entries.
func New(maxItems int) (*Storage, error) {
	cache, err := lru.New[string, *storage.StorageItem](maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &Storage{cache: cache}, nil
}

// Get retrieves data for key. Expired items are evicted on read.
func (s *Storage) Get(ctx context.Context, key string) (*storage.StorageItem, error) {
	item, ok := s.cache.Get(key)
	if !ok {
		return nil, nil
	}
	if item.IsExpired() {
		s.cache.Remove(key)
		return nil, nil
	}
	return item, nil
}

// Set stores data for key.
func (s *Storage) Set(ctx context.Context, key string, data []byte, opts ...storage.Option) error {
	s.cache.Add(key, storage.NewItem(data, opts...))
	return nil
}

// Delete removes key.
func (s *Storage) Delete(ctx context.Context, key string) error {
	s.cache.Remove(key)
	return nil
}

// Close drops every entry.
func (s *Storage) Close() error {
	s.cache.Purge()
	return nil
}

// Compile-time interface check
var _ storage.Storage = (*Storage)(nil)
