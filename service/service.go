// Package service implements the save and load operations on top of a
// Store. It is shared by the HTTP handlers and the import/export commands.
package service

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/stevemurr/simple-data-server/collection"
	"github.com/stevemurr/simple-data-server/logger"
	"github.com/stevemurr/simple-data-server/metrics"
	"github.com/stevemurr/simple-data-server/store"
)

// Service holds no state of its own beyond its collaborators, so one value
// can serve any number of concurrent requests.
type Service struct {
	store   store.Store
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func New(s store.Store, l *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   s,
		logger:  l.WithComponent("service"),
		metrics: m,
	}
}

// Save writes req to every collection it targets, in collection order.
//
// For a single collection the whole payload is stored. For All, each
// collection receives its own entry of the payload object, or an empty
// array when the entry is missing. Writes are not transactional: on error
// the names already written are returned together with the error.
func (s *Service) Save(req collection.SaveRequest) ([]collection.Name, error) {
	targets := collection.Targets(req.Type)

	var entries map[string]json.RawMessage
	if req.Type == collection.All {
		// A payload that is not an object has no entries.
		if err := json.Unmarshal(req.Data, &entries); err != nil {
			entries = nil
		}
	}

	written := make([]collection.Name, 0, len(targets))
	for _, name := range targets {
		doc := req.Data
		if req.Type == collection.All {
			var ok bool
			if doc, ok = entries[string(name)]; !ok {
				doc = store.Empty()
			}
		}
		if err := s.write(name, doc); err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

// Load returns the document for name. For All it returns an object with
// one member per real collection, in collection order.
func (s *Service) Load(name collection.Name) (json.RawMessage, error) {
	if name != collection.All {
		return s.read(name)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range collection.Real {
		doc, err := s.read(n)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(string(n)))
		buf.WriteByte(':')
		if err := json.Compact(&buf, doc); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Service) write(name collection.Name, doc json.RawMessage) error {
	start := time.Now()
	err := s.store.Write(string(name), doc)
	s.logger.LogStoreOp("write", string(name), sinceMs(start), err)
	s.metrics.ObserveWrite(string(name), err)
	return err
}

func (s *Service) read(name collection.Name) (json.RawMessage, error) {
	start := time.Now()
	doc, err := s.store.Read(string(name))
	s.logger.LogStoreOp("read", string(name), sinceMs(start), err)
	s.metrics.ObserveRead(string(name), err)
	return doc, err
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Nanoseconds()) / 1e6
}
