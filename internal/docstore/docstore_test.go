package docstore

import (
	"testing"

	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestFields_String(t *testing.T) {
	f := Fields{"name": "Ann", "age": float64(3), "none": nil}

	assert.Equal(t, "Ann", f.String("name"))
	assert.Equal(t, "3", f.String("age"))
	assert.Equal(t, "", f.String("none"))
	assert.Equal(t, "", f.String("missing"))
}

func TestCloneRecords_Independent(t *testing.T) {
	in := []Record{{ID: "a", Seq: 1, Fields: Fields{"text": "x"}}}
	out := CloneRecords(in)
	out[0].Fields["text"] = "y"

	assert.Equal(t, "x", in[0].Fields["text"])
	assert.Equal(t, 1, out[0].Seq)
}

func TestValidateCollection(t *testing.T) {
	for _, ok := range []string{"users", "photos", "todo_items", "a-1"} {
		assert.NoError(t, ValidateCollection(ok), ok)
	}
	for _, bad := range []string{"", "Users", "1users", "users;drop", "a b"} {
		assert.ErrorIs(t, ValidateCollection(bad), common.ErrValidation, bad)
	}
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("a1"))
	assert.ErrorIs(t, ValidateID(""), common.ErrValidation)
}
