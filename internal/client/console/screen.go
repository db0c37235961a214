package console

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/adminconsole/internal/blob"
	"github.com/dmitrijs2005/adminconsole/internal/collections"
	"github.com/dmitrijs2005/adminconsole/internal/crud"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"github.com/dmitrijs2005/adminconsole/internal/logging"
	"github.com/dmitrijs2005/adminconsole/internal/media"
	"github.com/dmitrijs2005/adminconsole/internal/mirror"
	"github.com/dmitrijs2005/adminconsole/internal/notify"
	"github.com/dmitrijs2005/adminconsole/internal/session"
)

// screen is one collection as the REPL sees it.
type screen interface {
	Name() string
	// Columns lists the fields shown in the table, in order.
	Columns() []crud.Field
	// FormFields lists the fields the open form asks for.
	FormFields() []crud.Field
	Records() []docstore.Record
	Ready() bool
	Find(id string) (docstore.Record, bool)
	At(seq int) (docstore.Record, bool)
	Session() *session.Session

	OpenCreate() error
	OpenEdit(r docstore.Record) error
	SetDraft(field, value string) error
	Save(ctx context.Context) error
	Cancel()
	Delete(ctx context.Context, r docstore.Record) error
	Refresh(ctx context.Context) error
	Close()
}

// resolve finds a record by display number or id.
func resolve(s screen, ref string) (docstore.Record, bool) {
	if n, err := strconv.Atoi(ref); err == nil {
		if r, ok := s.At(n); ok {
			return r, true
		}
	}
	return s.Find(ref)
}

type screenDeps struct {
	store    docstore.Store
	blobs    blob.Store
	notifier notify.Notifier
	logger   logging.Logger
	onChange func(name string, records []docstore.Record)
}

// openScreen builds the screen of a collection and starts loading it.
func openScreen(ctx context.Context, name string, d screenDeps) (screen, error) {
	if collections.IsMedia(name) {
		return openMediaScreen(ctx, name, d), nil
	}

	schema, ok := collections.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown screen %q", name)
	}
	return openLiveScreen(ctx, schema, d)
}

// liveScreen follows its collection through a subscription.
type liveScreen struct {
	*crud.Controller
	mirror *mirror.Mirror
}

func openLiveScreen(ctx context.Context, schema crud.Schema, d screenDeps) (*liveScreen, error) {
	ctrl := crud.New(d.store, schema, crud.WithNotifier(d.notifier), crud.WithLogger(d.logger))

	m, err := mirror.Open(ctx, d.store, schema.Collection,
		mirror.WithLogger(d.logger),
		mirror.WithOnChange(func(records []docstore.Record) {
			if d.onChange != nil {
				d.onChange(schema.Collection, records)
			}
		}),
		mirror.WithOnError(func(err error) {
			d.notifier.Failure(context.Background(), "Live updates stopped for "+schema.Collection, err)
		}),
	)
	if err != nil {
		d.notifier.Failure(ctx, "Failed to load "+schema.Collection, err)
		return nil, err
	}

	return &liveScreen{Controller: ctrl, mirror: m}, nil
}

func (s *liveScreen) Name() string                           { return s.Schema().Collection }
func (s *liveScreen) FormFields() []crud.Field               { return s.Schema().Fields }
func (s *liveScreen) Records() []docstore.Record             { return s.mirror.Records() }
func (s *liveScreen) Ready() bool                            { return s.mirror.Ready() }
func (s *liveScreen) Find(id string) (docstore.Record, bool) { return s.mirror.Find(id) }
func (s *liveScreen) At(seq int) (docstore.Record, bool)     { return s.mirror.At(seq) }

func (s *liveScreen) Columns() []crud.Field {
	schema := s.Schema()
	if schema.TimestampField == "" {
		return schema.Fields
	}
	return append(append([]crud.Field{}, schema.Fields...), crud.Field{Name: schema.TimestampField, Label: "Created"})
}

func (s *liveScreen) Delete(ctx context.Context, r docstore.Record) error {
	return s.Controller.Delete(ctx, r.ID)
}

// Refresh is a no-op; the subscription keeps the screen current.
func (s *liveScreen) Refresh(ctx context.Context) error {
	return s.mirror.Err()
}

func (s *liveScreen) Close() {
	s.Controller.Cancel()
	s.mirror.Close()
}

// mediaScreen is the photos screen, reloaded by explicit fetches.
type mediaScreen struct {
	*media.Manager
}

func openMediaScreen(ctx context.Context, name string, d screenDeps) *mediaScreen {
	m := media.New(d.store, d.blobs,
		media.WithCollection(name),
		media.WithNotifier(d.notifier),
		media.WithLogger(d.logger),
		media.WithOnChange(func(records []docstore.Record) {
			if d.onChange != nil {
				d.onChange(name, records)
			}
		}),
	)
	_ = m.Refresh(ctx)
	return &mediaScreen{Manager: m}
}

func (s *mediaScreen) Name() string          { return s.Collection() }
func (s *mediaScreen) Columns() []crud.Field { return collections.PhotoFields }

func (s *mediaScreen) FormFields() []crud.Field {
	if s.Session().Mode() == session.Editing {
		return []crud.Field{{Name: media.FieldName, Label: "Name", Required: true}}
	}
	return []crud.Field{{Name: media.FieldFile, Label: "File path", Required: true}}
}

func (s *mediaScreen) OpenEdit(r docstore.Record) error {
	return s.OpenRename(r)
}

func (s *mediaScreen) OpenCreate() error {
	return s.OpenUpload()
}

func (s *mediaScreen) Delete(ctx context.Context, r docstore.Record) error {
	return s.Remove(ctx, r.ID, r.Fields.String(media.FieldURL))
}

func (s *mediaScreen) Close() {
	s.Cancel()
	s.Wait()
}
