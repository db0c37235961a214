// Package media manages photo assets: a blob in the blob store plus a
// metadata record in the photos collection that points at it.
//
// Both create and delete touch the blob first and the record second, with
// no compensation. A failure between the two leaves an orphan blob (upload)
// or a record whose blob is gone (remove); the returned *PhaseError says
// which. The collection is not subscribed: after every successful mutation
// the manager re-fetches it in the background.
package media

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/adminconsole/internal/blob"
	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"github.com/dmitrijs2005/adminconsole/internal/logging"
	"github.com/dmitrijs2005/adminconsole/internal/mirror"
	"github.com/dmitrijs2005/adminconsole/internal/notify"
	"github.com/dmitrijs2005/adminconsole/internal/session"
	"github.com/google/uuid"
)

// Field names of a photo record.
const (
	FieldURL  = "url"
	FieldName = "name"
	// FieldFile is the draft field holding the local path of the file to upload.
	FieldFile = "file"
)

// KeyPrefix is prepended to every blob key.
const KeyPrefix = "photos/"

type Messages struct {
	Uploaded     string
	UploadFailed string
	NoFile       string
	InvalidType  string
	Deleted      string
	DeleteFailed string
	NameRequired string
	Renamed      string
	RenameFailed string
	LoadFailed   string
	Busy         string
}

// DefaultMessages is the wording of the photos screen.
var DefaultMessages = Messages{
	Uploaded:     "Photo uploaded successfully!",
	UploadFailed: "Error uploading photo",
	NoFile:       "Please select a file first!",
	InvalidType:  "Invalid file type selected. Please select an image.",
	Deleted:      "Photo deleted successfully!",
	DeleteFailed: "Error deleting photo",
	NameRequired: "Name cannot be empty!",
	Renamed:      "Photo name updated successfully!",
	RenameFailed: "Error updating photo",
	LoadFailed:   "Failed to load photos. Please try again.",
	Busy:         "Please wait, the previous request is still in progress",
}

type Manager struct {
	store      docstore.Store
	blobs      blob.Store
	collection string
	messages   Messages
	notifier   notify.Notifier
	logger     logging.Logger
	now        func() time.Time
	newID      func() string
	readFile   func(string) ([]byte, error)
	session    *session.Session

	onTransition func(from, to Phase)
	onChange     func([]docstore.Record)

	mu    sync.Mutex
	phase Phase

	// refreshGen numbers refreshes in the order their Fetch starts;
	// appliedGen (under recMu) is the newest one whose listing is held.
	refreshGen atomic.Uint64

	recMu      sync.RWMutex
	records    []docstore.Record
	loaded     bool
	appliedGen uint64

	busy atomic.Bool
	wg   sync.WaitGroup
}

type Option func(*Manager)

func WithCollection(name string) Option {
	return func(m *Manager) { m.collection = name }
}

func WithMessages(msgs Messages) Option {
	return func(m *Manager) { m.messages = msgs }
}

func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides the uuid part of blob keys.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// WithFileReader overrides os.ReadFile for Save.
func WithFileReader(fn func(string) ([]byte, error)) Option {
	return func(m *Manager) { m.readFile = fn }
}

// WithOnTransition observes every phase change.
func WithOnTransition(fn func(from, to Phase)) Option {
	return func(m *Manager) { m.onTransition = fn }
}

// WithOnChange is called after every successful refresh.
func WithOnChange(fn func([]docstore.Record)) Option {
	return func(m *Manager) { m.onChange = fn }
}

func New(store docstore.Store, blobs blob.Store, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		blobs:      blobs,
		collection: "photos",
		messages:   DefaultMessages,
		notifier:   &notify.Recorder{},
		logger:     logging.Nop{},
		now:        time.Now,
		newID:      uuid.NewString,
		readFile:   readFile,
		session:    session.New(),
	}
	for _, o := range opts {
		o(m)
	}
	m.logger = m.logger.With("module", "media", "collection", m.collection)
	return m
}

func (m *Manager) Collection() string {
	return m.collection
}

// State returns the current phase.
func (m *Manager) State() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Manager) Session() *session.Session {
	return m.session
}

func (m *Manager) transition(ctx context.Context, to Phase) {
	m.mu.Lock()
	from := m.phase
	m.phase = to
	m.mu.Unlock()

	m.logger.Debug(ctx, "phase changed", "from", from.String(), "to", to.String())
	if m.onTransition != nil {
		m.onTransition(from, to)
	}
}

// fail returns to Idle and reports e as the single notification of the
// operation.
func (m *Manager) fail(ctx context.Context, msg string, e *PhaseError) error {
	m.transition(ctx, Idle)
	m.logger.Error(ctx, "asset operation failed", "op", e.Op, "phase", e.Phase.String(), "orphan", e.Orphan.String(), "error", e.Err)
	m.notifier.Failure(ctx, msg, e)
	return e
}

func (m *Manager) acquire(ctx context.Context) bool {
	if m.busy.CompareAndSwap(false, true) {
		return true
	}
	m.notifier.Failure(ctx, m.messages.Busy, common.ErrBusy)
	return false
}

// StorageKey builds the blob key of a new upload.
func (m *Manager) StorageKey(fileName string) string {
	return fmt.Sprintf("%s%d_%s_%s", KeyPrefix, m.now().UnixMilli(), m.newID(), filepath.Base(fileName))
}

// Upload stores data as a new blob and then creates the record pointing at
// it. When the record cannot be created the blob stays in place and the
// returned *PhaseError carries its Ref.
func (m *Manager) Upload(ctx context.Context, data []byte, fileName string) (docstore.Record, error) {
	const op = "upload"

	if !m.acquire(ctx) {
		return docstore.Record{}, common.ErrBusy
	}
	defer m.busy.Store(false)

	m.transition(ctx, Validating)

	name := strings.TrimSpace(fileName)
	if name == "" || len(data) == 0 {
		return docstore.Record{}, m.fail(ctx, m.messages.NoFile, &PhaseError{
			Op: op, Phase: Validating,
			Err: fmt.Errorf("%w: file name and contents are required", common.ErrValidation),
		})
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return docstore.Record{}, m.fail(ctx, m.messages.InvalidType, &PhaseError{
			Op: op, Phase: Validating,
			Err: fmt.Errorf("%w: %s is not an image", common.ErrValidation, contentType),
		})
	}

	m.transition(ctx, BlobPhase)

	ref, err := m.blobs.Put(ctx, m.StorageKey(name), data, contentType)
	if err != nil {
		return docstore.Record{}, m.fail(ctx, m.messages.UploadFailed, &PhaseError{
			Op: op, Phase: BlobPhase,
			Err: fmt.Errorf("%w: %w", common.ErrUpload, err),
		})
	}

	url, err := m.blobs.URL(ctx, ref)
	if err != nil {
		return docstore.Record{}, m.fail(ctx, m.messages.UploadFailed, &PhaseError{
			Op: op, Phase: BlobPhase, Ref: ref, Orphan: OrphanBlob,
			Err: fmt.Errorf("%w: %w", common.ErrUpload, err),
		})
	}

	m.transition(ctx, MetadataPhase)

	fields := docstore.Fields{
		FieldURL:              url,
		FieldName:             filepath.Base(name),
		common.TimestampField: m.now().UTC().Format(docstore.TimeLayout),
	}

	id, err := m.store.Create(ctx, m.collection, fields)
	if err != nil {
		return docstore.Record{}, m.fail(ctx, m.messages.UploadFailed, &PhaseError{
			Op: op, Phase: MetadataPhase, Ref: ref, Orphan: OrphanBlob,
			Err: fmt.Errorf("%w: %w", common.ErrWrite, err),
		})
	}

	m.transition(ctx, Idle)
	m.logger.Info(ctx, "photo uploaded", "id", id, "key", ref.Key)
	m.session.CloseCreate()
	m.notifier.Success(ctx, m.messages.Uploaded)
	m.refreshAsync(ctx)

	return docstore.Record{ID: id, Fields: fields}, nil
}

// Remove deletes the blob behind url and then record id. A blob failure
// leaves the record intact; a record failure leaves it pointing at a
// deleted blob.
func (m *Manager) Remove(ctx context.Context, id, url string) error {
	const op = "remove"

	if !m.acquire(ctx) {
		return common.ErrBusy
	}
	defer m.busy.Store(false)

	m.transition(ctx, Validating)

	if err := docstore.ValidateID(id); err != nil {
		return m.fail(ctx, m.messages.DeleteFailed, &PhaseError{
			Op: op, Phase: Validating,
			Err: fmt.Errorf("%w: %w", common.ErrDelete, err),
		})
	}

	ref, err := m.blobs.RefFromURL(url)
	if err != nil {
		return m.fail(ctx, m.messages.DeleteFailed, &PhaseError{
			Op: op, Phase: Validating,
			Err: fmt.Errorf("%w: %w", common.ErrDelete, err),
		})
	}

	m.transition(ctx, BlobPhase)

	if err := m.blobs.Delete(ctx, ref); err != nil {
		return m.fail(ctx, m.messages.DeleteFailed, &PhaseError{
			Op: op, Phase: BlobPhase, Ref: ref,
			Err: fmt.Errorf("%w: %w", common.ErrDelete, err),
		})
	}

	m.transition(ctx, MetadataPhase)

	if err := m.store.Delete(ctx, m.collection, id); err != nil {
		return m.fail(ctx, m.messages.DeleteFailed, &PhaseError{
			Op: op, Phase: MetadataPhase, Ref: ref, Orphan: DanglingRecord,
			Err: fmt.Errorf("%w: %w", common.ErrDelete, err),
		})
	}

	m.transition(ctx, Idle)
	m.logger.Info(ctx, "photo deleted", "id", id, "key", ref.Key)
	m.notifier.Success(ctx, m.messages.Deleted)
	m.refreshAsync(ctx)

	return nil
}

// Rename changes the display name of a photo; the blob is not touched.
func (m *Manager) Rename(ctx context.Context, id, name string) error {
	const op = "rename"

	if !m.acquire(ctx) {
		return common.ErrBusy
	}
	defer m.busy.Store(false)

	m.transition(ctx, Validating)

	if strings.TrimSpace(name) == "" {
		return m.fail(ctx, m.messages.NameRequired, &PhaseError{
			Op: op, Phase: Validating,
			Err: fmt.Errorf("%w: name required", common.ErrValidation),
		})
	}

	m.transition(ctx, MetadataPhase)

	if err := m.store.Update(ctx, m.collection, id, docstore.Fields{FieldName: name}); err != nil {
		return m.fail(ctx, m.messages.RenameFailed, &PhaseError{
			Op: op, Phase: MetadataPhase,
			Err: fmt.Errorf("%w: %w", common.ErrWrite, err),
		})
	}

	m.transition(ctx, Idle)
	m.logger.Info(ctx, "photo renamed", "id", id)
	m.session.CloseEdit(id)
	m.notifier.Success(ctx, m.messages.Renamed)
	m.refreshAsync(ctx)

	return nil
}

// Refresh re-fetches the collection. A failure keeps the previous listing
// and is reported as a warning. A listing that arrives after one fetched
// later has been applied is dropped.
func (m *Manager) Refresh(ctx context.Context) error {
	gen := m.refreshGen.Add(1)

	records, err := m.store.Fetch(ctx, m.collection)
	if err != nil {
		err = fmt.Errorf("%w: %w", common.ErrRefresh, err)
		m.logger.Warn(ctx, "refresh failed", "error", err)
		m.notifier.Warning(ctx, m.messages.LoadFailed, err)
		return err
	}

	stamped := mirror.Stamp(docstore.CloneRecords(records))

	m.recMu.Lock()
	if gen < m.appliedGen {
		m.recMu.Unlock()
		m.logger.Debug(ctx, "stale refresh dropped", "generation", gen)
		return nil
	}
	m.records = stamped
	m.loaded = true
	m.appliedGen = gen
	m.recMu.Unlock()

	m.logger.Debug(ctx, "photos refreshed", "records", len(stamped))
	if m.onChange != nil {
		m.onChange(docstore.CloneRecords(stamped))
	}

	return nil
}

func (m *Manager) refreshAsync(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_ = m.Refresh(ctx)
	}()
}

// Wait blocks until background refreshes have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Records returns the listing of the last successful refresh.
func (m *Manager) Records() []docstore.Record {
	m.recMu.RLock()
	defer m.recMu.RUnlock()
	return docstore.CloneRecords(m.records)
}

// Ready reports whether a refresh has succeeded at least once.
func (m *Manager) Ready() bool {
	m.recMu.RLock()
	defer m.recMu.RUnlock()
	return m.loaded
}

func (m *Manager) Find(id string) (docstore.Record, bool) {
	m.recMu.RLock()
	defer m.recMu.RUnlock()
	for _, r := range m.records {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return docstore.Record{}, false
}

func (m *Manager) At(seq int) (docstore.Record, bool) {
	m.recMu.RLock()
	defer m.recMu.RUnlock()
	if seq < 1 || seq > len(m.records) {
		return docstore.Record{}, false
	}
	return m.records[seq-1].Clone(), true
}
