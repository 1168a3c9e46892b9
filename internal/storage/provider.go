// Package storage defines the key-value backends that hold notekeep collections.
package storage

import "context"

// Backend is the key-value primitive the data store is built on.
// Each value is the full text encoding of one collection.
type Backend interface {
	// Get returns the value stored at key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set replaces the value stored at key in a single write.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// Closer is implemented by backends that hold connections or handles.
type Closer interface {
	Close() error
}
