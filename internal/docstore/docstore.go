// Package docstore defines the document-store contract every collection
// screen is built on: records addressed by an opaque store-assigned id,
// per-collection live snapshot subscriptions, and create/update/delete on
// single documents.
//
// Backends live in subpackages (memory, postgres); the console talks to a
// remote backend through internal/client/storeclient.
package docstore

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/dmitrijs2005/adminconsole/internal/common"
)

// TimeLayout is the wire format of timestamp fields.
const TimeLayout = time.RFC3339Nano

// Fields maps a document field name to its value. Values are JSON-shaped:
// string, float64, bool, nil, []any or map[string]any.
type Fields map[string]any

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// String returns the field rendered as a string, or "" when absent.
func (f Fields) String(name string) string {
	v, ok := f[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Record is one document of a collection.
type Record struct {
	// ID is assigned by the store on creation and never changes.
	ID string
	// Seq is the 1-based display position inside the snapshot the record
	// came from. It is recomputed on every snapshot; zero outside a mirror.
	Seq int
	// Fields holds the document body.
	Fields Fields
}

// Clone returns a copy whose Fields can be modified independently.
func (r Record) Clone() Record {
	return Record{ID: r.ID, Seq: r.Seq, Fields: r.Fields.Clone()}
}

// CloneRecords copies a snapshot so receivers never share maps with the store.
func CloneRecords(in []Record) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// SnapshotFunc receives a complete, ordered listing of a collection.
type SnapshotFunc func(records []Record)

// ErrorFunc receives the error that broke a subscription. It is called at
// most once, after which the subscription delivers nothing.
type ErrorFunc func(err error)

// Subscription is the handle returned by Store.Subscribe.
type Subscription interface {
	// Unsubscribe stops further deliveries. Safe to call more than once.
	Unsubscribe()
}

// Store is the remote collection store.
//
// Snapshots are delivered asynchronously on a goroutine owned by the
// backend; a snapshot already being delivered when Unsubscribe is called may
// still complete. Cancelling the Subscribe context releases the subscription
// as well.
type Store interface {
	Subscribe(ctx context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error)
	Create(ctx context.Context, collection string, fields Fields) (string, error)
	// Update merges fields into the document; other fields are untouched.
	// Returns common.ErrorNotFound when the document does not exist.
	Update(ctx context.Context, collection, id string, fields Fields) error
	// Delete removes the document. Deleting a missing document is a no-op.
	Delete(ctx context.Context, collection, id string) error
	// Fetch returns a one-shot listing in store order.
	Fetch(ctx context.Context, collection string) ([]Record, error)
}

var collectionName = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,62}$`)

// ValidateCollection rejects names the backends cannot address.
func ValidateCollection(name string) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("%w: invalid collection name %q", common.ErrValidation, name)
	}
	return nil
}

// ValidateID rejects empty document ids.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty document id", common.ErrValidation)
	}
	return nil
}
