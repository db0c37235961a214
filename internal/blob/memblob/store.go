// Package memblob keeps blobs in memory. The console falls back to it when
// no object storage endpoint is configured.
package memblob

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/dmitrijs2005/adminconsole/internal/blob"
	"github.com/dmitrijs2005/adminconsole/internal/common"
)

const scheme = "mem"

type object struct {
	data        []byte
	contentType string
}

type Store struct {
	bucket string

	mu      sync.RWMutex
	objects map[string]object
}

func New(bucket string) *Store {
	return &Store{bucket: bucket, objects: make(map[string]object)}
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (blob.Ref, error) {
	if key == "" {
		return blob.Ref{}, fmt.Errorf("%w: empty object key", common.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = object{data: append([]byte(nil), data...), contentType: contentType}
	return blob.Ref{Bucket: s.bucket, Key: key}, nil
}

func (s *Store) URL(ctx context.Context, ref blob.Ref) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[ref.Key]
	s.mu.RUnlock()

	if !ok || ref.Bucket != s.bucket {
		return "", common.ErrorNotFound
	}

	u := url.URL{Scheme: scheme, Host: ref.Bucket, Path: "/" + ref.Key}
	return u.String(), nil
}

func (s *Store) Delete(ctx context.Context, ref blob.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, ref.Key)
	return nil
}

func (s *Store) RefFromURL(rawURL string) (blob.Ref, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return blob.Ref{}, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if u.Scheme != scheme || u.Host == "" {
		return blob.Ref{}, fmt.Errorf("%w: not a %s url: %q", common.ErrValidation, scheme, rawURL)
	}
	return blob.SplitPath("/" + u.Host + u.Path)
}

// Get returns a stored object.
func (s *Store) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.objects[key]
	if !ok {
		return nil, "", false
	}
	return append([]byte(nil), o.data...), o.contentType, true
}

// Len reports how many objects are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
