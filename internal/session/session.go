// Package session holds the draft a screen edits before saving: which
// record (if any) is being edited and the current value of every field.
package session

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrSessionOpen   = errors.New("edit session already open")
	ErrSessionClosed = errors.New("no edit session open")
	ErrUnknownField  = errors.New("unknown field")
)

type Mode int

const (
	Closed Mode = iota
	Creating
	Editing
)

func (m Mode) String() string {
	switch m {
	case Closed:
		return "closed"
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State is a point-in-time copy of a Session.
type State struct {
	Mode     Mode
	TargetID string
	Draft    map[string]string
	Visible  bool
}

// Session is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	mode     Mode
	targetID string
	fields   []string
	draft    map[string]string
}

func New() *Session {
	return &Session{}
}

// OpenCreate starts a blank draft over fields.
func (s *Session) OpenCreate(fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != Closed {
		return ErrSessionOpen
	}

	s.mode = Creating
	s.targetID = ""
	s.fields = append([]string(nil), fields...)
	s.draft = make(map[string]string, len(fields))
	for _, f := range fields {
		s.draft[f] = ""
	}
	return nil
}

// OpenEdit starts a draft for record id prefilled from values. The values
// are copied, so later changes to the record do not leak into the draft.
func (s *Session) OpenEdit(id string, fields []string, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != Closed {
		return ErrSessionOpen
	}

	s.mode = Editing
	s.targetID = id
	s.fields = append([]string(nil), fields...)
	s.draft = make(map[string]string, len(fields))
	for _, f := range fields {
		s.draft[f] = values[f]
	}
	return nil
}

func (s *Session) Set(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == Closed {
		return ErrSessionClosed
	}
	if _, ok := s.draft[field]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	s.draft[field] = value
	return nil
}

// Draft returns a copy of the current field values.
func (s *Session) Draft() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyDraft()
}

// Fields returns the draft's fields in display order.
func (s *Session) Fields() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fields...)
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// TargetID is the id of the record being edited; empty unless Editing.
func (s *Session) TargetID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetID
}

// Visible reports whether the form is showing.
func (s *Session) Visible() bool {
	return s.Mode() != Closed
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Mode:     s.mode,
		TargetID: s.targetID,
		Draft:    s.copyDraft(),
		Visible:  s.mode != Closed,
	}
}

// Close discards the draft. Closing a closed session is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// CloseCreate closes the session if it is Creating.
func (s *Session) CloseCreate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != Creating {
		return false
	}
	s.reset()
	return true
}

// CloseEdit closes the session if it is Editing record id.
func (s *Session) CloseEdit(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != Editing || s.targetID != id {
		return false
	}
	s.reset()
	return true
}

func (s *Session) reset() {
	s.mode = Closed
	s.targetID = ""
	s.fields = nil
	s.draft = nil
}

func (s *Session) copyDraft() map[string]string {
	if s.draft == nil {
		return nil
	}
	out := make(map[string]string, len(s.draft))
	for k, v := range s.draft {
		out[k] = v
	}
	return out
}
