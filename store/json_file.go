package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
)

// JsonFileStore stores each collection as a separate JSON file on disk.
//
// Layout:
//
//	data_dir/
//	  users.json      # "users" collection
//	  games.json      # "games" collection
//
// Files are replaced atomically: the new document is written to a temp
// file in the same directory and renamed over the old one. Access is
// serialized per collection; different collections never block each other.
type JsonFileStore struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
	dir   string
}

func NewJsonFileStore(dir string) (*JsonFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data directory")
	}
	return &JsonFileStore{dir: dir, locks: make(map[string]*sync.RWMutex)}, nil
}

func (s *JsonFileStore) collectionPath(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

func (s *JsonFileStore) lockFor(collection string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[collection]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[collection] = l
	}
	return l
}

func (s *JsonFileStore) Read(collection string) (json.RawMessage, error) {
	if err := checkName(collection); err != nil {
		return nil, err
	}
	l := s.lockFor(collection)
	l.RLock()
	defer l.RUnlock()

	data, err := os.ReadFile(s.collectionPath(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return nil, errors.Wrapf(err, "read %s", collection)
	}
	if err := checkStored(collection, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *JsonFileStore) Write(collection string, doc json.RawMessage) error {
	if err := checkName(collection); err != nil {
		return err
	}
	b, err := Encode(doc)
	if err != nil {
		return err
	}
	l := s.lockFor(collection)
	l.Lock()
	defer l.Unlock()
	path := s.collectionPath(collection)
	if err := renameio.WriteFile(path, b, 0o644, renameio.WithTempDir(s.dir)); err != nil {
		return errors.Wrapf(err, "write %s", collection)
	}
	return nil
}

func (s *JsonFileStore) Close() error {
	return nil
}
