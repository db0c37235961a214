package memblob

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/adminconsole/internal/blob"
	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New("media")

	ref, err := s.Put(ctx, "photos/1_a.png", []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, blob.Ref{Bucket: "media", Key: "photos/1_a.png"}, ref)

	u, err := s.URL(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "mem://media/photos/1_a.png", u)

	back, err := s.RefFromURL(u)
	require.NoError(t, err)
	assert.Equal(t, ref, back)

	data, ct, ok := s.Get(ref.Key)
	require.True(t, ok)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, "image/png", ct)

	require.NoError(t, s.Delete(ctx, ref))
	require.NoError(t, s.Delete(ctx, ref))
	assert.Equal(t, 0, s.Len())

	_, err = s.URL(ctx, ref)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestStore_RefFromURLRejectsForeignURLs(t *testing.T) {
	s := New("media")
	for _, u := range []string{"https://example.com/media/a.png", "mem://media", "::bad"} {
		_, err := s.RefFromURL(u)
		assert.ErrorIs(t, err, common.ErrValidation, u)
	}
}

func TestStore_PutRequiresKey(t *testing.T) {
	_, err := New("m").Put(context.Background(), "", nil, "")
	assert.ErrorIs(t, err, common.ErrValidation)
}
