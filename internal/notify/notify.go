// Package notify delivers the one-line outcome messages the operator sees
// after every operation.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

type Kind int

const (
	Success Kind = iota
	Failure
	Warning
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Warning:
		return "warning"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type Notifier interface {
	Success(ctx context.Context, msg string)
	// Failure reports an operation that did not take effect.
	Failure(ctx context.Context, msg string, err error)
	// Warning reports a problem that did not undo the operation.
	Warning(ctx context.Context, msg string, err error)
}

// Console prints notifications to a terminal, colored by kind.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	success *color.Color
	failure *color.Color
	warning *color.Color
}

func NewConsole(out io.Writer) *Console {
	return &Console{
		out:     out,
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed, color.Bold),
		warning: color.New(color.FgYellow),
	}
}

func (c *Console) Success(ctx context.Context, msg string) {
	c.print(c.success, msg, nil)
}

func (c *Console) Failure(ctx context.Context, msg string, err error) {
	c.print(c.failure, msg, err)
}

func (c *Console) Warning(ctx context.Context, msg string, err error) {
	c.print(c.warning, msg, err)
}

func (c *Console) print(col *color.Color, msg string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		col.Fprintf(c.out, "%s (%v)\n", msg, err)
		return
	}
	col.Fprintln(c.out, msg)
}

// Event is one recorded notification.
type Event struct {
	Kind    Kind
	Message string
	Err     error
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Success(ctx context.Context, msg string) {
	r.add(Event{Kind: Success, Message: msg})
}

func (r *Recorder) Failure(ctx context.Context, msg string, err error) {
	r.add(Event{Kind: Failure, Message: msg, Err: err})
}

func (r *Recorder) Warning(ctx context.Context, msg string, err error) {
	r.add(Event{Kind: Warning, Message: msg, Err: err})
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Last returns the most recent event.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
