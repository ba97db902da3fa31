package store

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/timshannon/badgerhold/v4"
)

// badgerEntry is the record persisted for one collection.
type badgerEntry struct {
	Name      string `badgerhold:"key"`
	Data      string
	UpdatedAt time.Time
}

// BadgerStore stores collections in an embedded BadgerDB, one record per
// collection name.
type BadgerStore struct {
	store *badgerhold.Store
}

func NewBadgerStore(dir string) (*BadgerStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create badger directory")
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil // Disable default badger logger

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, errors.Wrap(err, "open badger database")
	}
	return &BadgerStore{store: store}, nil
}

func (s *BadgerStore) Read(collection string) (json.RawMessage, error) {
	if err := checkName(collection); err != nil {
		return nil, err
	}
	var entry badgerEntry
	err := s.store.Get(collection, &entry)
	if err == badgerhold.ErrNotFound {
		return Empty(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", collection)
	}
	if err := checkStored(collection, []byte(entry.Data)); err != nil {
		return nil, err
	}
	return json.RawMessage(entry.Data), nil
}

func (s *BadgerStore) Write(collection string, doc json.RawMessage) error {
	if err := checkName(collection); err != nil {
		return err
	}
	b, err := Encode(doc)
	if err != nil {
		return err
	}
	entry := badgerEntry{
		Name:      collection,
		Data:      string(b),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.Upsert(collection, &entry); err != nil {
		return errors.Wrapf(err, "write %s", collection)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
