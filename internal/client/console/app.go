// Package console is the interactive admin console. Each screen is one
// collection: the plain collections follow the store live through a mirror,
// the photos screen goes through the media manager.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/adminconsole/internal/blob"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"github.com/dmitrijs2005/adminconsole/internal/logging"
	"github.com/dmitrijs2005/adminconsole/internal/notify"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
	// ModeLocal is used when the store runs in process and nothing is pinged.
	ModeLocal Mode = "local"
)

// Pinger reports whether the store server answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	store    docstore.Store
	blobs    blob.Store
	notifier notify.Notifier
	logger   logging.Logger

	pinger        Pinger
	pingInterval  time.Duration
	pingTimeout   time.Duration
	in            *bufio.Reader
	inFd          int
	out           io.Writer
	renderOnEvent bool

	mu     sync.Mutex
	screen screen
	mode   Mode
}

type Option func(*App)

func WithLogger(l logging.Logger) Option {
	return func(a *App) { a.logger = l }
}

func WithNotifier(n notify.Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// WithInput replaces stdin. Secret fields are then read as plain lines.
func WithInput(r io.Reader) Option {
	return func(a *App) {
		a.in = bufio.NewReader(r)
		a.inFd = -1
	}
}

func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// WithPinger enables the online status watcher.
func WithPinger(p Pinger, interval time.Duration) Option {
	return func(a *App) {
		a.pinger = p
		a.pingInterval = interval
	}
}

// WithLiveRender re-renders the open screen whenever its records change.
func WithLiveRender(on bool) Option {
	return func(a *App) { a.renderOnEvent = on }
}

func NewApp(store docstore.Store, blobs blob.Store, opts ...Option) *App {
	a := &App{
		store:         store,
		blobs:         blobs,
		logger:        logging.Nop{},
		pingTimeout:   3 * time.Second,
		in:            bufio.NewReader(os.Stdin),
		inFd:          int(os.Stdin.Fd()),
		out:           os.Stdout,
		renderOnEvent: true,
		mode:          ModeLocal,
	}
	for _, o := range opts {
		o(a)
	}
	a.out = &syncWriter{w: a.out}
	if a.notifier == nil {
		a.notifier = notify.NewConsole(a.out)
	}
	a.logger = a.logger.With("module", "console")
	if a.pinger != nil {
		a.mode = ModeOffline
	}
	return a
}

// Run serves the REPL until exit, EOF or ctx cancellation. The open screen
// is closed on every exit path.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.closeScreen()

	if a.pinger != nil {
		a.checkOnline(ctx)
		go a.StartOnlineStatusWatcher(ctx, a.pingInterval)
	}

	fmt.Fprintln(a.out, "Admin console (type 'help' for commands)")
	a.runREPL(ctx)
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(ctx, "connection mode changed", "mode", mode)
		fmt.Fprintf(a.out, "Switched to %s mode\n", mode)
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, a.pingTimeout)
	err := a.pinger.Ping(pctx)
	cancel()

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

// StartOnlineStatusWatcher pings the store every interval until ctx ends.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) current() screen {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.screen
}

// open switches to the named screen, releasing the previous one first.
func (a *App) open(ctx context.Context, name string) error {
	a.closeScreen()

	s, err := openScreen(ctx, name, screenDeps{
		store:    a.store,
		blobs:    a.blobs,
		notifier: a.notifier,
		logger:   a.logger,
		onChange: a.onRecords,
	})
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.screen = s
	a.mu.Unlock()

	if !s.Ready() {
		fmt.Fprintln(a.out, "Loading...")
	}
	return nil
}

func (a *App) closeScreen() {
	a.mu.Lock()
	s := a.screen
	a.screen = nil
	a.mu.Unlock()

	if s != nil {
		s.Close()
	}
}

func (a *App) onRecords(name string, records []docstore.Record) {
	if !a.renderOnEvent {
		return
	}
	s := a.current()
	if s == nil || s.Name() != name {
		return
	}
	renderTable(a.out, s.Columns(), records)
}

// syncWriter serializes writes from the REPL and delivery goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *syncWriter) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if str, ok := s.w.(fmt.Stringer); ok {
		return str.String()
	}
	return ""
}
