// Package blob defines the binary object store used for photo files.
// Objects are addressed by Ref; the URL handed out for an object is what
// the photos collection stores, and RefFromURL recovers the Ref from it.
package blob

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/adminconsole/internal/common"
)

// Ref addresses one stored object.
type Ref struct {
	Bucket string
	Key    string
}

func (r Ref) String() string {
	if r.Bucket == "" {
		return r.Key
	}
	return r.Bucket + "/" + r.Key
}

// IsZero reports whether r addresses nothing.
func (r Ref) IsZero() bool {
	return r.Key == ""
}

type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (Ref, error)
	// URL returns a link that can be stored in a document and fetched later.
	URL(ctx context.Context, ref Ref) (string, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, ref Ref) error
	// RefFromURL is the inverse of URL.
	RefFromURL(rawURL string) (Ref, error)
}

// SplitPath turns "/bucket/some/key" into a Ref.
func SplitPath(p string) (Ref, error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(p, "/"), "/")
	if !ok || bucket == "" || key == "" {
		return Ref{}, fmt.Errorf("%w: no object key in %q", common.ErrValidation, p)
	}
	return Ref{Bucket: bucket, Key: key}, nil
}
