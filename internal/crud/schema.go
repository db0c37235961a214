package crud

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
)

// Field describes one editable field of a collection.
type Field struct {
	Name  string
	Label string
	// Required fields must be non-empty after trimming whitespace.
	Required bool
	// Secret fields are entered masked and never listed.
	Secret bool
}

// Messages is the wording of the notifications a controller emits.
type Messages struct {
	Required     string
	EditRequired string
	Added        string
	AddFailed    string
	Updated      string
	UpdateFailed string
	Deleted      string
	DeleteFailed string
	Busy         string
}

// Schema parameterizes a Controller for one collection.
type Schema struct {
	Collection string
	// Singular names one record in generated messages, e.g. "Task".
	Singular string
	Fields   []Field
	// TimestampField, when set, is stamped with the creation time on Add.
	TimestampField string
	Messages       Messages
}

// FieldNames lists the editable fields in display order.
func (s Schema) FieldNames() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks the required fields of form.
func (s Schema) Validate(form map[string]string) error {
	var missing []string
	for _, f := range s.Fields {
		if f.Required && strings.TrimSpace(form[f.Name]) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", common.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// Form keeps the schema fields of form, values verbatim.
func (s Schema) Form(form map[string]string) docstore.Fields {
	out := make(docstore.Fields, len(s.Fields))
	for _, f := range s.Fields {
		if v, ok := form[f.Name]; ok {
			out[f.Name] = v
		}
	}
	return out
}

// Values renders the schema fields of a record as strings for a draft.
func (s Schema) Values(r docstore.Record) map[string]string {
	out := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = r.Fields.String(f.Name)
	}
	return out
}

// WithDefaults fills unset messages from Singular.
func (m Messages) WithDefaults(singular string) Messages {
	if singular == "" {
		singular = "Record"
	}
	lower := strings.ToLower(singular)
	set := func(p *string, v string) {
		if *p == "" {
			*p = v
		}
	}
	set(&m.Required, "Please fill in all required fields")
	set(&m.EditRequired, m.Required)
	set(&m.Added, singular+" added successfully!")
	set(&m.AddFailed, "Error adding "+lower)
	set(&m.Updated, singular+" updated successfully!")
	set(&m.UpdateFailed, "Error updating "+lower)
	set(&m.Deleted, singular+" deleted successfully!")
	set(&m.DeleteFailed, "Error deleting "+lower)
	set(&m.Busy, "Please wait, the previous request is still in progress")
	return m
}
