package store

import (
	"fmt"
	"path/filepath"
)

// Backends lists the accepted backend names.
var Backends = []string{"json", "sqlite", "badger", "memory"}

// New creates a Store based on the backend name.
//
// Supported backends:
//
//	"json"   - JSON files in dataDir (default)
//	"sqlite" - SQLite database at dataDir/data.db
//	"badger" - BadgerDB in dataDir/badger
//	"memory" - In-memory (ephemeral, for testing)
func New(backend, dataDir string) (Store, error) {
	switch backend {
	case "json", "":
		return NewJsonFileStore(dataDir)
	case "sqlite":
		return NewSqliteStore(filepath.Join(dataDir, "data.db"))
	case "badger":
		return NewBadgerStore(filepath.Join(dataDir, "badger"))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: json, sqlite, badger, memory)", backend)
	}
}
