package crud

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"github.com/dmitrijs2005/adminconsole/internal/docstore/memory"
	"github.com/dmitrijs2005/adminconsole/internal/mirror"
	"github.com/dmitrijs2005/adminconsole/internal/notify"
	"github.com/dmitrijs2005/adminconsole/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// spyStore records every write through testify's mock and forwards it to
// the in-memory store unless the expectation returns an error. A write with
// no expectation fails the test.
type spyStore struct {
	mock.Mock
	*memory.Store
}

func newSpyStore() *spyStore {
	return &spyStore{Store: memory.New()}
}

func (s *spyStore) Create(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	if err := s.Called(ctx, collection, fields).Error(0); err != nil {
		return "", err
	}
	return s.Store.Create(ctx, collection, fields)
}

func (s *spyStore) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if err := s.Called(ctx, collection, id, fields).Error(0); err != nil {
		return err
	}
	return s.Store.Update(ctx, collection, id, fields)
}

func (s *spyStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.Called(ctx, collection, id).Error(0); err != nil {
		return err
	}
	return s.Store.Delete(ctx, collection, id)
}

func (s *spyStore) assertNoWrites(t *testing.T) {
	t.Helper()
	s.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	s.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

var todoSchema = Schema{
	Collection:     "todos",
	Singular:       "Task",
	Fields:         []Field{{Name: "text", Label: "Task", Required: true}},
	TimestampField: common.TimestampField,
	Messages: Messages{
		Required:     "Please enter a task!",
		EditRequired: "Task cannot be empty!",
		Added:        "Task added successfully!",
	},
}

var userSchema = Schema{
	Collection: "users",
	Singular:   "User",
	Fields: []Field{
		{Name: "name", Required: true},
		{Name: "email", Required: true},
		{Name: "password", Required: true, Secret: true},
	},
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newController(store docstore.Store, schema Schema) (*Controller, *notify.Recorder) {
	rec := &notify.Recorder{}
	c := New(store, schema, WithNotifier(rec), WithClock(func() time.Time { return fixedNow }))
	return c, rec
}

// follower collects mirror snapshots.
type follower struct {
	m  *mirror.Mirror
	ch chan []docstore.Record
}

func follow(t *testing.T, store docstore.Store, collection string) *follower {
	t.Helper()
	f := &follower{ch: make(chan []docstore.Record, 16)}
	m, err := mirror.Open(context.Background(), store, collection, mirror.WithOnChange(func(r []docstore.Record) { f.ch <- r }))
	require.NoError(t, err)
	t.Cleanup(m.Close)
	f.m = m
	return f
}

func (f *follower) next(t *testing.T) []docstore.Record {
	t.Helper()
	select {
	case r := <-f.ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot")
		return nil
	}
}

func TestAdd_NextSnapshotHoldsNewRecord(t *testing.T) {
	store := newSpyStore()
	store.On("Create", mock.Anything, "todos", mock.Anything).Return(nil)
	c, rec := newController(store, todoSchema)
	f := follow(t, store, "todos")
	f.next(t)

	got, err := c.Add(context.Background(), map[string]string{"text": "buy milk", "ignored": "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)

	snap := f.next(t)
	require.Len(t, snap, 1)
	assert.Equal(t, got.ID, snap[0].ID)
	assert.Equal(t, docstore.Fields{
		"text":      "buy milk",
		"timestamp": "2024-05-01T12:00:00Z",
	}, snap[0].Fields)

	_, err = c.Add(context.Background(), map[string]string{"text": "eggs"})
	require.NoError(t, err)
	snap = f.next(t)
	require.Len(t, snap, 2)
	assert.NotEqual(t, snap[0].ID, snap[1].ID)

	assert.Equal(t, []notify.Event{
		{Kind: notify.Success, Message: "Task added successfully!"},
		{Kind: notify.Success, Message: "Task added successfully!"},
	}, rec.Events())
	store.AssertCalled(t, "Create", mock.Anything, "todos", docstore.Fields{"text": "eggs", "timestamp": "2024-05-01T12:00:00Z"})
}

func TestAdd_ClosesSessionOnSuccessKeepsItOnFailure(t *testing.T) {
	store := newSpyStore()
	store.On("Create", mock.Anything, "todos", mock.Anything).Return(errors.New("permission denied")).Once()
	store.On("Create", mock.Anything, "todos", mock.Anything).Return(nil).Once()
	c, rec := newController(store, todoSchema)

	require.NoError(t, c.OpenCreate())
	require.NoError(t, c.SetDraft("text", "walk dog"))

	err := c.Save(context.Background())
	assert.ErrorIs(t, err, common.ErrWrite)
	assert.Equal(t, session.Creating, c.Session().Mode())
	assert.Equal(t, "walk dog", c.Session().Draft()["text"])

	last, _ := rec.Last()
	assert.Equal(t, notify.Failure, last.Kind)
	assert.Equal(t, "Error adding task", last.Message)
	assert.ErrorContains(t, last.Err, "permission denied")

	require.NoError(t, c.Save(context.Background()))
	assert.Equal(t, session.Closed, c.Session().Mode())
	assert.Len(t, rec.Events(), 2)
	store.AssertExpectations(t)
}

func TestEdit_ReplacesOnlyFormFields(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	store.On("Update", mock.Anything, "users", mock.Anything, mock.Anything).Return(nil)
	id, err := store.Store.Create(ctx, "users", docstore.Fields{"name": "Ann", "email": "a@x", "password": "p", "role": "admin"})
	require.NoError(t, err)

	c, rec := newController(store, userSchema)
	f := follow(t, store, "users")
	f.next(t)

	require.NoError(t, c.Edit(ctx, id, map[string]string{"name": "Anna", "email": "a@x", "password": "p"}))

	snap := f.next(t)
	require.Len(t, snap, 1)
	assert.Equal(t, docstore.Fields{"name": "Anna", "email": "a@x", "password": "p", "role": "admin"}, snap[0].Fields)

	last, _ := rec.Last()
	assert.Equal(t, notify.Event{Kind: notify.Success, Message: "User updated successfully!"}, last)
}

func TestEdit_VanishedRecord(t *testing.T) {
	store := newSpyStore()
	store.On("Update", mock.Anything, "todos", "gone", docstore.Fields{"text": "x"}).Return(nil)
	c, rec := newController(store, todoSchema)

	err := c.Edit(context.Background(), "gone", map[string]string{"text": "x"})
	assert.ErrorIs(t, err, common.ErrWrite)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "Error updating task", events[0].Message)
}

func TestDelete_RemovesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	store.On("Create", mock.Anything, "todos", mock.Anything).Return(nil)
	store.On("Delete", mock.Anything, "todos", mock.Anything).Return(nil)
	c, rec := newController(store, todoSchema)
	f := follow(t, store, "todos")
	f.next(t)

	for _, text := range []string{"a", "b", "c"} {
		_, err := c.Add(ctx, map[string]string{"text": text})
		require.NoError(t, err)
	}

	var snap []docstore.Record
	for len(snap) != 3 {
		snap = f.next(t)
	}
	assert.Equal(t, []int{1, 2, 3}, []int{snap[0].Seq, snap[1].Seq, snap[2].Seq})

	target := snap[1].ID
	require.NoError(t, c.Delete(ctx, target))

	snap = f.next(t)
	require.Len(t, snap, 2)
	for _, r := range snap {
		assert.NotEqual(t, target, r.ID)
	}

	require.NoError(t, c.Delete(ctx, target))
	last, _ := rec.Last()
	assert.Equal(t, notify.Success, last.Kind)
	store.AssertNumberOfCalls(t, "Delete", 2)
}

func TestDelete_StoreError(t *testing.T) {
	store := newSpyStore()
	store.On("Delete", mock.Anything, "todos", "x").Return(errors.New("unavailable"))
	c, rec := newController(store, todoSchema)

	err := c.Delete(context.Background(), "x")
	assert.ErrorIs(t, err, common.ErrDelete)

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.Failure, events[0].Kind)
	store.AssertExpectations(t)
}

func TestValidation_NeverReachesStore(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	c, rec := newController(store, userSchema)

	_, err := c.Add(ctx, map[string]string{"name": "Ann", "email": "   ", "password": "p"})
	assert.ErrorIs(t, err, common.ErrValidation)

	err = c.Edit(ctx, "u1", map[string]string{"name": "", "email": "a@x", "password": "p"})
	assert.ErrorIs(t, err, common.ErrValidation)

	store.assertNoWrites(t)
	assert.Len(t, rec.Events(), 2)
	for _, e := range rec.Events() {
		assert.Equal(t, notify.Failure, e.Kind)
	}
}

func TestSave_EditWithEmptyDraftKeepsSessionOpen(t *testing.T) {
	store := newSpyStore()
	c, rec := newController(store, todoSchema)

	r := docstore.Record{ID: "a1", Fields: docstore.Fields{"text": "buy milk", "timestamp": "t"}}
	require.NoError(t, c.OpenEdit(r))
	assert.Equal(t, map[string]string{"text": "buy milk"}, c.Session().Draft())

	require.NoError(t, c.SetDraft("text", ""))
	err := c.Save(context.Background())
	assert.ErrorIs(t, err, common.ErrValidation)

	st := c.Session().State()
	assert.Equal(t, session.Editing, st.Mode)
	assert.Equal(t, "a1", st.TargetID)
	store.assertNoWrites(t)

	last, _ := rec.Last()
	assert.Equal(t, "Task cannot be empty!", last.Message)
}

func TestSave_Closed(t *testing.T) {
	c, rec := newController(newSpyStore(), todoSchema)
	assert.ErrorIs(t, c.Save(context.Background()), session.ErrSessionClosed)
	assert.Len(t, rec.Events(), 1)
}

func TestCancel_DiscardsDraft(t *testing.T) {
	store := newSpyStore()
	c, rec := newController(store, todoSchema)

	require.NoError(t, c.OpenCreate())
	require.NoError(t, c.SetDraft("text", "x"))
	c.Cancel()

	assert.Equal(t, session.Closed, c.Session().Mode())
	assert.Empty(t, rec.Events())
	store.assertNoWrites(t)
}

func TestAdd_RejectsConcurrentSubmit(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	store := newSpyStore()
	store.On("Create", mock.Anything, "todos", mock.Anything).Return(nil).Once().
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		})
	c, rec := newController(store, todoSchema)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Add(context.Background(), map[string]string{"text": "first"})
		assert.NoError(t, err)
	}()

	<-entered

	_, err := c.Add(context.Background(), map[string]string{"text": "second"})
	assert.ErrorIs(t, err, common.ErrBusy)

	close(release)
	wg.Wait()

	store.AssertNumberOfCalls(t, "Create", 1)
	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, notify.Failure, events[0].Kind)
	assert.ErrorIs(t, events[0].Err, common.ErrBusy)
	assert.Equal(t, notify.Success, events[1].Kind)
}

func TestAdd_KeepsOpenEditForm(t *testing.T) {
	store := newSpyStore()
	store.On("Create", mock.Anything, "todos", mock.Anything).Return(nil)
	c, _ := newController(store, todoSchema)

	require.NoError(t, c.OpenEdit(docstore.Record{ID: "a1", Fields: docstore.Fields{"text": "buy milk"}}))
	_, err := c.Add(context.Background(), map[string]string{"text": "eggs"})
	require.NoError(t, err)

	st := c.Session().State()
	assert.Equal(t, session.Editing, st.Mode)
	assert.Equal(t, "a1", st.TargetID)
}
