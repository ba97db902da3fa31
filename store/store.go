// Package store defines the backing store interface and implementations.
package store

import "encoding/json"

// Store is the interface that all backing stores must implement.
// Each collection holds exactly one opaque JSON document which is
// replaced in full on every write.
type Store interface {
	// Read returns the current document for a collection, or an empty
	// JSON array if it has never been written.
	Read(collection string) (json.RawMessage, error)

	// Write replaces the document for a collection.
	Write(collection string, doc json.RawMessage) error

	// Close releases any resources held by the store.
	Close() error
}
