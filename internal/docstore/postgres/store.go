package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"github.com/dmitrijs2005/adminconsole/internal/logging"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store implements docstore.Store on top of Repository.
//
// Every change kicks a per-collection refresh goroutine that re-reads the
// collection and publishes it to the subscribers. Kicks arriving while a
// refresh runs collapse into one follow-up refresh.
type Store struct {
	db     *sql.DB
	repo   *Repository
	hub    *docstore.Hub
	logger logging.Logger
	newID  func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	refresh map[string]chan struct{}
	failed  error
	closed  bool
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithIDGenerator overrides the uuid-based id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New wraps an open database. Cross-instance change notifications are off
// until Listen is called.
func New(db *sql.DB, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		db:      db,
		repo:    NewRepository(db),
		hub:     docstore.NewHub(),
		logger:  logging.Nop{},
		newID:   uuid.NewString,
		ctx:     ctx,
		cancel:  cancel,
		refresh: make(map[string]chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open connects to dsn, optionally migrates the schema and starts listening
// for change notifications.
func Open(ctx context.Context, dsn string, migrate bool, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrorUnavailable, err)
	}

	if migrate {
		if err := Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
	}

	s := New(db, opts...)
	if err := s.Listen(ctx, dsn); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Listen opens a dedicated connection and subscribes to ChangeChannel.
// When that connection breaks, every subscription fails with
// common.ErrSubscription and later Subscribe calls are refused.
func (s *Store) Listen(ctx context.Context, dsn string) error {
	conn, err := connectListener(ctx, dsn)
	if err != nil {
		return fmt.Errorf("listener connect error: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		conn.Close(context.Background())
		return fmt.Errorf("listen error: %w", err)
	}

	s.wg.Add(1)
	go s.listen(conn)

	return nil
}

func (s *Store) listen(conn listenConn) {
	defer s.wg.Done()
	defer conn.Close(context.Background())

	for {
		n, err := conn.WaitForNotification(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Error(s.ctx, "change listener stopped", "error", err)
			s.fail(fmt.Errorf("%w: %v", common.ErrSubscription, err))
			return
		}
		s.kick(n.Payload)
	}
}

func (s *Store) fail(err error) {
	s.mu.Lock()
	s.failed = err
	s.mu.Unlock()
	s.hub.FailAll(err)
}

// Subscribe registers the callbacks and schedules the initial snapshot.
func (s *Store) Subscribe(ctx context.Context, collection string, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) (docstore.Subscription, error) {
	if err := docstore.ValidateCollection(collection); err != nil {
		return nil, err
	}

	s.mu.Lock()
	failed, closed := s.failed, s.closed
	s.mu.Unlock()

	if failed != nil {
		return nil, failed
	}
	if closed {
		return nil, fmt.Errorf("%w: store closed", common.ErrSubscription)
	}

	sub := s.hub.Add(ctx, collection, nil, onSnapshot, onError)
	s.kick(collection)

	return sub, nil
}

func (s *Store) Create(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	if err := docstore.ValidateCollection(collection); err != nil {
		return "", err
	}

	id := s.newID()
	if err := s.repo.Insert(ctx, collection, id, fields); err != nil {
		return "", err
	}
	s.kick(collection)

	return id, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if err := docstore.ValidateCollection(collection); err != nil {
		return err
	}
	if err := docstore.ValidateID(id); err != nil {
		return err
	}

	if err := s.repo.Merge(ctx, collection, id, fields); err != nil {
		return err
	}
	s.kick(collection)

	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := docstore.ValidateCollection(collection); err != nil {
		return err
	}
	if err := docstore.ValidateID(id); err != nil {
		return err
	}

	if err := s.repo.Remove(ctx, collection, id); err != nil {
		return err
	}
	s.kick(collection)

	return nil
}

func (s *Store) Fetch(ctx context.Context, collection string) ([]docstore.Record, error) {
	if err := docstore.ValidateCollection(collection); err != nil {
		return nil, err
	}
	return s.repo.SelectAll(ctx, collection)
}

// DB exposes the underlying pool for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close stops the listener and refresh goroutines, detaches subscribers and
// closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.hub.Close()

	return s.db.Close()
}

// kick schedules a refresh of collection when somebody is subscribed to it.
func (s *Store) kick(collection string) {
	if s.hub.Count(collection) == 0 {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	ch, ok := s.refresh[collection]
	if !ok {
		ch = make(chan struct{}, 1)
		s.refresh[collection] = ch
		s.wg.Add(1)
		go s.refreshLoop(collection, ch)
	}
	s.mu.Unlock()

	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *Store) refreshLoop(collection string, ch <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ch:
		}

		records, err := s.repo.SelectAll(s.ctx, collection)
		if err != nil {
			if errors.Is(err, context.Canceled) || s.ctx.Err() != nil {
				return
			}
			s.logger.Error(s.ctx, "collection refresh failed", "collection", collection, "error", err)
			s.hub.Fail(collection, fmt.Errorf("%w: %v", common.ErrSubscription, err))
			continue
		}

		s.logger.Debug(s.ctx, "snapshot published", "collection", collection, "records", len(records))
		s.hub.Publish(collection, records)
	}
}
