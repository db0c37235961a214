// Package memory is an in-process docstore.Store. The store server uses it
// when no database DSN is configured; tests use it as the remote store.
package memory

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"github.com/google/uuid"
)

// Store keeps every collection as an insertion-ordered slice.
type Store struct {
	mu          sync.Mutex
	collections map[string][]docstore.Record
	hub         *docstore.Hub
	newID       func() string
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the uuid-based id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string][]docstore.Record),
		hub:         docstore.NewHub(),
		newID:       uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Subscribe queues the current listing as the first snapshot, then one
// snapshot after every mutation of the collection.
func (s *Store) Subscribe(ctx context.Context, collection string, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) (docstore.Subscription, error) {
	if err := docstore.ValidateCollection(collection); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	initial := s.collections[collection]
	if initial == nil {
		initial = []docstore.Record{}
	}
	return s.hub.Add(ctx, collection, initial, onSnapshot, onError), nil
}

func (s *Store) Create(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	if err := docstore.ValidateCollection(collection); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	s.collections[collection] = append(s.collections[collection], docstore.Record{ID: id, Fields: fields.Clone()})
	s.publishLocked(collection)

	return id, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if err := docstore.ValidateCollection(collection); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.collections[collection]
	for i := range records {
		if records[i].ID != id {
			continue
		}
		merged := records[i].Fields.Clone()
		if merged == nil {
			merged = docstore.Fields{}
		}
		for k, v := range fields {
			merged[k] = v
		}
		records[i].Fields = merged
		s.publishLocked(collection)
		return nil
	}

	return common.ErrorNotFound
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := docstore.ValidateCollection(collection); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.collections[collection]
	for i := range records {
		if records[i].ID == id {
			s.collections[collection] = append(records[:i:i], records[i+1:]...)
			s.publishLocked(collection)
			return nil
		}
	}

	return nil
}

func (s *Store) Fetch(ctx context.Context, collection string) ([]docstore.Record, error) {
	if err := docstore.ValidateCollection(collection); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return docstore.CloneRecords(s.collections[collection]), nil
}

// Close detaches every subscriber.
func (s *Store) Close() {
	s.hub.Close()
}

// Subscribers reports the live subscription count of a collection.
func (s *Store) Subscribers(collection string) int {
	return s.hub.Count(collection)
}

func (s *Store) publishLocked(collection string) {
	s.hub.Publish(collection, s.collections[collection])
}
