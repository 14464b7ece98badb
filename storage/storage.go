// Package storage provides a small key-value interface with per-item expiry,
// used to share fetched key set documents between requests and processes.
package storage

import (
	"context"
	"time"
)

// Storage defines the key-value contract implemented by each backend.
type Storage interface {
	// Get retrieves data for key.
	// Returns nil StorageItem if key doesn't exist or has expired.
	// Returns error only for legitimate storage system failures.
	Get(ctx context.Context, key string) (*StorageItem, error)

	// Set stores data for key, replacing any previous value.
	Set(ctx context.Context, key string, data []byte, opts ...Option) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close closes the storage backend and releases resources
	Close() error
}

// StorageItem represents a stored piece of data with metadata
type StorageItem struct {
	Data      []byte     // The stored data
	CreatedAt time.Time  // When the item was created
	ExpiresAt *time.Time // When the item expires (nil = no expiration)
}

// IsExpired checks if the item has expired
func (si *StorageItem) IsExpired() bool {
	return si.ExpiresAt != nil && time.Now().After(*si.ExpiresAt)
}

// Option configures Set.
type Option func(*Options)

// Options contains configuration for Set.
type Options struct {
	TTL *time.Duration // Optional: time-to-live for the data
}

// WithTTL sets a time-to-live for the stored data
func WithTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.TTL = &ttl
	}
}

// NewItem builds an item for data according to opts.
func NewItem(data []byte, opts ...Option) *StorageItem {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	now := time.Now()
	item := &StorageItem{
		Data:      append([]byte(nil), data...),
		CreatedAt: now,
	}
	if options.TTL != nil {
		expiresAt := now.Add(*options.TTL)
		item.ExpiresAt = &expiresAt
	}
	return item
}
