// Package crud is the generic add/edit/delete controller behind every
// collection screen. A Controller validates the form, issues exactly one
// store call and emits exactly one notification per operation. It never
// touches the screen's mirror; the store subscription brings the change back.
package crud

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"github.com/dmitrijs2005/adminconsole/internal/logging"
	"github.com/dmitrijs2005/adminconsole/internal/notify"
	"github.com/dmitrijs2005/adminconsole/internal/session"
)

type Controller struct {
	store    docstore.Store
	schema   Schema
	session  *session.Session
	notifier notify.Notifier
	logger   logging.Logger
	now      func() time.Time

	busy atomic.Bool
}

type Option func(*Controller)

func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock overrides time.Now for the creation timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithSession shares an edit session with another component.
func WithSession(s *session.Session) Option {
	return func(c *Controller) { c.session = s }
}

func New(store docstore.Store, schema Schema, opts ...Option) *Controller {
	schema.Messages = schema.Messages.WithDefaults(schema.Singular)
	c := &Controller{
		store:    store,
		schema:   schema,
		session:  session.New(),
		notifier: &notify.Recorder{},
		logger:   logging.Nop{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("module", "crud", "collection", schema.Collection)
	return c
}

func (c *Controller) Schema() Schema {
	return c.schema
}

func (c *Controller) Session() *session.Session {
	return c.session
}

// Add creates a record from form. The timestamp field, when the schema has
// one, is set to the current time.
func (c *Controller) Add(ctx context.Context, form map[string]string) (docstore.Record, error) {
	msgs := c.schema.Messages

	if err := c.schema.Validate(form); err != nil {
		c.notifier.Failure(ctx, msgs.Required, err)
		return docstore.Record{}, err
	}

	if !c.busy.CompareAndSwap(false, true) {
		c.notifier.Failure(ctx, msgs.Busy, common.ErrBusy)
		return docstore.Record{}, common.ErrBusy
	}
	defer c.busy.Store(false)

	fields := c.schema.Form(form)
	if c.schema.TimestampField != "" {
		fields[c.schema.TimestampField] = c.now().UTC().Format(docstore.TimeLayout)
	}

	id, err := c.store.Create(ctx, c.schema.Collection, fields)
	if err != nil {
		err = fmt.Errorf("%w: %w", common.ErrWrite, err)
		c.logger.Error(ctx, "create failed", "error", err)
		c.notifier.Failure(ctx, msgs.AddFailed, err)
		return docstore.Record{}, err
	}

	c.logger.Info(ctx, "record created", "id", id)
	c.session.CloseCreate()
	c.notifier.Success(ctx, msgs.Added)

	return docstore.Record{ID: id, Fields: fields}, nil
}

// Edit overwrites the schema fields of record id with form. Fields outside
// the schema are left alone. Editing a record that no longer exists fails
// with an error matching both common.ErrWrite and common.ErrorNotFound.
func (c *Controller) Edit(ctx context.Context, id string, form map[string]string) error {
	msgs := c.schema.Messages

	if err := c.schema.Validate(form); err != nil {
		c.notifier.Failure(ctx, msgs.EditRequired, err)
		return err
	}

	if !c.busy.CompareAndSwap(false, true) {
		c.notifier.Failure(ctx, msgs.Busy, common.ErrBusy)
		return common.ErrBusy
	}
	defer c.busy.Store(false)

	if err := c.store.Update(ctx, c.schema.Collection, id, c.schema.Form(form)); err != nil {
		err = fmt.Errorf("%w: %w", common.ErrWrite, err)
		c.logger.Error(ctx, "update failed", "id", id, "error", err)
		c.notifier.Failure(ctx, msgs.UpdateFailed, err)
		return err
	}

	c.logger.Info(ctx, "record updated", "id", id)
	c.session.CloseEdit(id)
	c.notifier.Success(ctx, msgs.Updated)

	return nil
}

// Delete removes record id. Deleting a record that is already gone succeeds.
func (c *Controller) Delete(ctx context.Context, id string) error {
	msgs := c.schema.Messages

	if err := c.store.Delete(ctx, c.schema.Collection, id); err != nil {
		err = fmt.Errorf("%w: %w", common.ErrDelete, err)
		c.logger.Error(ctx, "delete failed", "id", id, "error", err)
		c.notifier.Failure(ctx, msgs.DeleteFailed, err)
		return err
	}

	c.logger.Info(ctx, "record deleted", "id", id)
	c.notifier.Success(ctx, msgs.Deleted)

	return nil
}

// OpenCreate opens a blank form.
func (c *Controller) OpenCreate() error {
	return c.session.OpenCreate(c.schema.FieldNames())
}

// OpenEdit opens a form prefilled with a copy of r's values.
func (c *Controller) OpenEdit(r docstore.Record) error {
	return c.session.OpenEdit(r.ID, c.schema.FieldNames(), c.schema.Values(r))
}

func (c *Controller) SetDraft(field, value string) error {
	return c.session.Set(field, value)
}

// Cancel discards the open form.
func (c *Controller) Cancel() {
	c.session.Close()
}

// Save submits the open form: Add when creating, Edit when editing. The
// form stays open on failure.
func (c *Controller) Save(ctx context.Context) error {
	st := c.session.State()

	switch st.Mode {
	case session.Creating:
		_, err := c.Add(ctx, st.Draft)
		return err
	case session.Editing:
		return c.Edit(ctx, st.TargetID, st.Draft)
	default:
		c.notifier.Failure(ctx, "Nothing to save", session.ErrSessionClosed)
		return session.ErrSessionClosed
	}
}
