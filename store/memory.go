package store

import (
	"encoding/json"
	"sync"
)

// MemoryStore keeps everything in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (m *MemoryStore) Read(collection string) (json.RawMessage, error) {
	if err := checkName(collection); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[collection]
	if !ok {
		return Empty(), nil
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (m *MemoryStore) Write(collection string, doc json.RawMessage) error {
	if err := checkName(collection); err != nil {
		return err
	}
	b, err := Encode(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[collection] = b
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
