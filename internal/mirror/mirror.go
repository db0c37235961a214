// Package mirror keeps a live, ordered local copy of one collection.
//
// A Mirror subscribes on Open and replaces its content wholesale with every
// snapshot the store delivers. It becomes ready with the first snapshot and
// fails permanently on the first subscription error.
package mirror

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"github.com/dmitrijs2005/adminconsole/internal/logging"
)

type Mirror struct {
	collection string
	logger     logging.Logger
	onChange   func([]docstore.Record)
	onError    func(error)

	mu      sync.RWMutex
	records []docstore.Record
	ready   bool
	err     error
	closed  bool

	sub       docstore.Subscription
	closeOnce sync.Once
}

type Option func(*Mirror)

// WithOnChange is called with a copy of the records after every snapshot.
func WithOnChange(fn func([]docstore.Record)) Option {
	return func(m *Mirror) { m.onChange = fn }
}

// WithOnError is called once with the error that broke the subscription.
func WithOnError(fn func(error)) Option {
	return func(m *Mirror) { m.onError = fn }
}

func WithLogger(l logging.Logger) Option {
	return func(m *Mirror) { m.logger = l }
}

// Open subscribes to collection. The mirror is not ready until the first
// snapshot arrives.
func Open(ctx context.Context, store docstore.Store, collection string, opts ...Option) (*Mirror, error) {
	m := &Mirror{
		collection: collection,
		logger:     logging.Nop{},
	}
	for _, o := range opts {
		o(m)
	}
	m.logger = m.logger.With("module", "mirror", "collection", collection)

	sub, err := store.Subscribe(ctx, collection, m.apply, m.fail)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrSubscription, err)
	}

	m.mu.Lock()
	m.sub = sub
	m.mu.Unlock()

	return m, nil
}

// Stamp assigns each record its 1-based position.
func Stamp(records []docstore.Record) []docstore.Record {
	for i := range records {
		records[i].Seq = i + 1
	}
	return records
}

func (m *Mirror) apply(records []docstore.Record) {
	stamped := Stamp(docstore.CloneRecords(records))

	m.mu.Lock()
	if m.closed || m.err != nil {
		m.mu.Unlock()
		return
	}
	m.records = stamped
	m.ready = true
	m.mu.Unlock()

	m.logger.Debug(context.Background(), "snapshot applied", "records", len(stamped))

	if m.onChange != nil {
		m.onChange(docstore.CloneRecords(stamped))
	}
}

func (m *Mirror) fail(err error) {
	wrapped := fmt.Errorf("%w: %w", common.ErrSubscription, err)

	m.mu.Lock()
	if m.closed || m.err != nil {
		m.mu.Unlock()
		return
	}
	m.err = wrapped
	m.mu.Unlock()

	m.logger.Error(context.Background(), "subscription failed", "error", err)

	if m.onError != nil {
		m.onError(wrapped)
	}
}

// Records returns an ordered copy of the current content.
func (m *Mirror) Records() []docstore.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return docstore.CloneRecords(m.records)
}

func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Ready reports whether at least one snapshot has been applied.
func (m *Mirror) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// Err returns the terminal subscription error, if any.
func (m *Mirror) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *Mirror) Collection() string {
	return m.collection
}

// Find looks a record up by id.
func (m *Mirror) Find(id string) (docstore.Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return docstore.Record{}, false
}

// At looks a record up by its display position.
func (m *Mirror) At(seq int) (docstore.Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if seq < 1 || seq > len(m.records) {
		return docstore.Record{}, false
	}
	return m.records[seq-1].Clone(), true
}

// Close releases the subscription. Snapshots still in flight are dropped.
func (m *Mirror) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		sub := m.sub
		m.mu.Unlock()

		if sub != nil {
			sub.Unsubscribe()
		}
	})
}
