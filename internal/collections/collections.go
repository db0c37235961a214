// Package collections declares the five screens of the console: four plain
// collections driven by crud.Controller and the photos collection driven by
// media.Manager.
package collections

import (
	"sort"

	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/dmitrijs2005/adminconsole/internal/crud"
	"github.com/dmitrijs2005/adminconsole/internal/media"
)

const (
	Users    = "users"
	Photos   = "photos"
	Comments = "comments"
	Todos    = "todos"
	Albums   = "albums"
)

var schemas = map[string]crud.Schema{
	Users: {
		Collection: Users,
		Singular:   "User",
		Fields: []crud.Field{
			{Name: "name", Label: "Name", Required: true},
			{Name: "email", Label: "Email", Required: true},
			{Name: "password", Label: "Password", Required: true, Secret: true},
		},
		Messages: crud.Messages{
			Required:     "Please enter name, email, and password",
			Added:        "User added successfully",
			AddFailed:    "Failed to add user. Please try again.",
			Updated:      "User updated successfully",
			UpdateFailed: "Failed to edit user. Please try again.",
			Deleted:      "User deleted successfully",
			DeleteFailed: "Failed to delete user. Please try again.",
		},
	},
	Comments: {
		Collection: Comments,
		Singular:   "Comment",
		Fields: []crud.Field{
			{Name: "text", Label: "Comment", Required: true},
		},
		TimestampField: common.TimestampField,
		Messages: crud.Messages{
			Required:     "Comment cannot be empty!",
			Added:        "Comment added successfully!",
			AddFailed:    "Error saving comment",
			Updated:      "Comment updated successfully!",
			UpdateFailed: "Error saving comment",
			Deleted:      "Comment deleted successfully!",
			DeleteFailed: "Error deleting comment",
		},
	},
	Todos: {
		Collection: Todos,
		Singular:   "Task",
		Fields: []crud.Field{
			{Name: "text", Label: "Task", Required: true},
		},
		TimestampField: common.TimestampField,
		Messages: crud.Messages{
			Required:     "Please enter a task!",
			EditRequired: "Task cannot be empty!",
			Added:        "Task added successfully!",
			AddFailed:    "Error adding task",
			Updated:      "Task updated successfully!",
			UpdateFailed: "Error updating task",
			Deleted:      "Task deleted successfully!",
			DeleteFailed: "Error deleting task",
		},
	},
	Albums: {
		Collection: Albums,
		Singular:   "Album",
		Fields: []crud.Field{
			{Name: "name", Label: "Album", Required: true},
		},
		TimestampField: common.TimestampField,
		Messages: crud.Messages{
			Required: "Album name cannot be empty!",
		},
	},
}

// PhotoFields are the columns of the photos screen.
var PhotoFields = []crud.Field{
	{Name: media.FieldName, Label: "Name"},
	{Name: media.FieldURL, Label: "URL"},
	{Name: common.TimestampField, Label: "Uploaded"},
}

// Lookup returns the schema of a plain collection.
func Lookup(name string) (crud.Schema, bool) {
	s, ok := schemas[name]
	return s, ok
}

// IsMedia reports whether name is managed by media.Manager.
func IsMedia(name string) bool {
	return name == Photos
}

// Names lists every screen in menu order.
func Names() []string {
	return []string{Users, Photos, Comments, Todos, Albums}
}

// All returns the plain collection schemas sorted by name.
func All() []crud.Schema {
	out := make([]crud.Schema, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Collection < out[j].Collection })
	return out
}
