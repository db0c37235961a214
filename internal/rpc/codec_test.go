package rpc

import (
	"testing"

	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestRequestRoundTrip(t *testing.T) {
	in := Request{Collection: "users", ID: "u1", Fields: docstore.Fields{"name": "Ann", "age": 3}}

	s, err := EncodeRequest(in)
	require.NoError(t, err)

	out, err := DecodeRequest(s)
	require.NoError(t, err)
	assert.Equal(t, "users", out.Collection)
	assert.Equal(t, "u1", out.ID)
	assert.Equal(t, docstore.Fields{"name": "Ann", "age": float64(3)}, out.Fields)
}

func TestRequest_CollectionOnly(t *testing.T) {
	s, err := EncodeRequest(Request{Collection: "todos"})
	require.NoError(t, err)
	assert.NotContains(t, s.GetFields(), "id")
	assert.NotContains(t, s.GetFields(), "fields")

	out, err := DecodeRequest(s)
	require.NoError(t, err)
	assert.Nil(t, out.Fields)
}

func TestEncodeRequest_RejectsUnsupportedValues(t *testing.T) {
	_, err := EncodeRequest(Request{Collection: "x", Fields: docstore.Fields{"ch": make(chan int)}})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestDecodeRequest_FieldsNotObject(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"collection": "x", "fields": "nope"})
	require.NoError(t, err)
	_, err = DecodeRequest(s)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestRecordsRoundTrip(t *testing.T) {
	in := []docstore.Record{
		{ID: "a", Fields: docstore.Fields{"text": "one"}},
		{ID: "b", Fields: nil},
	}

	s, err := EncodeRecords(in)
	require.NoError(t, err)

	out, err := DecodeRecords(s)
	require.NoError(t, err)
	assert.Equal(t, []docstore.Record{
		{ID: "a", Fields: docstore.Fields{"text": "one"}},
		{ID: "b", Fields: docstore.Fields{}},
	}, out)
}

func TestDecodeRecords_Empty(t *testing.T) {
	s, err := EncodeRecords(nil)
	require.NoError(t, err)
	out, err := DecodeRecords(s)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestDecodeRecords_Malformed(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"records": []any{"x"}})
	require.NoError(t, err)
	_, err = DecodeRecords(s)
	assert.ErrorIs(t, err, common.ErrorInternal)

	s, err = structpb.NewStruct(map[string]any{"records": []any{map[string]any{"fields": map[string]any{}}}})
	require.NoError(t, err)
	_, err = DecodeRecords(s)
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestID(t *testing.T) {
	id, err := DecodeID(EncodeID("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	_, err = DecodeID(&structpb.Struct{})
	assert.ErrorIs(t, err, common.ErrorInternal)
}
