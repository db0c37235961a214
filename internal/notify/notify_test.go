package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestConsole_Prints(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	c := NewConsole(&buf)
	ctx := context.Background()

	c.Success(ctx, "Task added successfully!")
	c.Failure(ctx, "Failed to add user. Please try again.", errors.New("store down"))
	c.Warning(ctx, "Could not refresh photos", nil)

	assert.Equal(t,
		"Task added successfully!\n"+
			"Failed to add user. Please try again. (store down)\n"+
			"Could not refresh photos\n",
		buf.String())
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()

	_, ok := r.Last()
	assert.False(t, ok)

	boom := errors.New("boom")
	r.Success(ctx, "ok")
	r.Failure(ctx, "bad", boom)

	assert.Equal(t, []Event{
		{Kind: Success, Message: "ok"},
		{Kind: Failure, Message: "bad", Err: boom},
	}, r.Events())

	last, ok := r.Last()
	assert.True(t, ok)
	assert.Equal(t, Failure, last.Kind)

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
