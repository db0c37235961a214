package rpc

import (
	"fmt"

	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"google.golang.org/protobuf/types/known/structpb"
)

// Request is the body of every collection call. Unused parts stay empty.
//
// Field values travel as protobuf Values, so numbers come back as float64.
type Request struct {
	Collection string
	ID         string
	Fields     docstore.Fields
}

func EncodeRequest(r Request) (*structpb.Struct, error) {
	m := map[string]any{"collection": r.Collection}
	if r.ID != "" {
		m["id"] = r.ID
	}
	if r.Fields != nil {
		m["fields"] = map[string]any(r.Fields)
	}

	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", common.ErrValidation, err)
	}
	return s, nil
}

func DecodeRequest(s *structpb.Struct) (Request, error) {
	m := s.AsMap()

	collection, _ := m["collection"].(string)
	id, _ := m["id"].(string)

	r := Request{Collection: collection, ID: id}

	if raw, ok := m["fields"]; ok && raw != nil {
		fields, ok := raw.(map[string]any)
		if !ok {
			return Request{}, fmt.Errorf("%w: fields must be an object", common.ErrValidation)
		}
		r.Fields = docstore.Fields(fields)
	}

	return r, nil
}

func EncodeID(id string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"id": structpb.NewStringValue(id)}}
}

func DecodeID(s *structpb.Struct) (string, error) {
	id := s.GetFields()["id"].GetStringValue()
	if id == "" {
		return "", fmt.Errorf("%w: response carries no id", common.ErrorInternal)
	}
	return id, nil
}

// EncodeRecords builds {"records": [{"id": ..., "fields": {...}}, ...]}.
func EncodeRecords(records []docstore.Record) (*structpb.Struct, error) {
	list := make([]any, len(records))
	for i, r := range records {
		fields := map[string]any(r.Fields)
		if fields == nil {
			fields = map[string]any{}
		}
		list[i] = map[string]any{"id": r.ID, "fields": fields}
	}

	s, err := structpb.NewStruct(map[string]any{"records": list})
	if err != nil {
		return nil, fmt.Errorf("%w: encode records: %v", common.ErrorInternal, err)
	}
	return s, nil
}

func DecodeRecords(s *structpb.Struct) ([]docstore.Record, error) {
	items := s.GetFields()["records"].GetListValue().GetValues()

	records := make([]docstore.Record, 0, len(items))
	for i, item := range items {
		obj := item.GetStructValue()
		if obj == nil {
			return nil, fmt.Errorf("%w: record %d is not an object", common.ErrorInternal, i)
		}

		id := obj.GetFields()["id"].GetStringValue()
		if id == "" {
			return nil, fmt.Errorf("%w: record %d has no id", common.ErrorInternal, i)
		}

		fields := docstore.Fields{}
		if f := obj.GetFields()["fields"].GetStructValue(); f != nil {
			fields = docstore.Fields(f.AsMap())
		}

		records = append(records, docstore.Record{ID: id, Fields: fields})
	}

	return records, nil
}
