package storeclient

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"github.com/dmitrijs2005/adminconsole/internal/docstore/memory"
	"github.com/dmitrijs2005/adminconsole/internal/logging"
	"github.com/dmitrijs2005/adminconsole/internal/server/auth"
	storegrpc "github.com/dmitrijs2005/adminconsole/internal/server/grpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testSecret = "secret"

type harness struct {
	store  *memory.Store
	server *grpc.Server
	lis    *bufconn.Listener
}

func startServer(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: memory.New(), lis: bufconn.Listen(1 << 20)}
	h.server = storegrpc.NewGRPCServer("bufnet", logging.Nop{}, h.store, testSecret).NewServer()
	go func() { _ = h.server.Serve(h.lis) }()
	t.Cleanup(h.server.Stop)
	return h
}

func (h *harness) client(t *testing.T, token string, opts ...Option) *Client {
	t.Helper()
	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return h.lis.DialContext(ctx)
	}
	opts = append([]Option{WithDialOptions(grpc.WithContextDialer(dialer)), WithCallTimeout(3 * time.Second)}, opts...)
	c, err := New("passthrough:///bufnet", token, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func validToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken("admin", []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return token
}

type snapshots struct {
	mu   sync.Mutex
	all  [][]docstore.Record
	errs []error
}

func (s *snapshots) onSnapshot(r []docstore.Record) {
	s.mu.Lock()
	s.all = append(s.all, r)
	s.mu.Unlock()
}

func (s *snapshots) onError(err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

func (s *snapshots) lastLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.all) == 0 {
		return -1
	}
	return len(s.all[len(s.all)-1])
}

func (s *snapshots) errCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

func TestClient_CRUDRoundTrip(t *testing.T) {
	h := startServer(t)
	c := h.client(t, validToken(t))
	ctx := context.Background()

	id, err := c.Create(ctx, "users", docstore.Fields{"name": "Ann", "email": "ann@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, c.Update(ctx, "users", id, docstore.Fields{"email": "ann@example.org"}))

	records, err := c.Fetch(ctx, "users")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ann", records[0].Fields["name"])
	assert.Equal(t, "ann@example.org", records[0].Fields["email"])

	require.NoError(t, c.Delete(ctx, "users", id))
	records, err = c.Fetch(ctx, "users")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClient_ErrorMapping(t *testing.T) {
	h := startServer(t)
	c := h.client(t, validToken(t))
	ctx := context.Background()

	err := c.Update(ctx, "users", "missing", docstore.Fields{"name": "x"})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = c.Create(ctx, "Not A Collection", docstore.Fields{})
	assert.ErrorIs(t, err, common.ErrValidation)

	anon := h.client(t, "")
	_, err = anon.Fetch(ctx, "users")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	expired, err := auth.GenerateToken("admin", []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	_, err = h.client(t, expired).Fetch(ctx, "users")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

// deadlineRecorder is a unary client interceptor remembering whether each
// outgoing call carried a deadline.
type deadlineRecorder struct {
	mu  sync.Mutex
	got []bool
}

func (r *deadlineRecorder) intercept(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	_, ok := ctx.Deadline()
	r.mu.Lock()
	r.got = append(r.got, ok)
	r.mu.Unlock()
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (r *deadlineRecorder) deadlines() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.got...)
}

func TestClient_CallsHaveNoDeadlineByDefault(t *testing.T) {
	h := startServer(t)
	rec := &deadlineRecorder{}
	c := h.client(t, validToken(t), WithCallTimeout(0), WithDialOptions(grpc.WithChainUnaryInterceptor(rec.intercept)))
	ctx := context.Background()

	id, err := c.Create(ctx, "todos", docstore.Fields{"text": "a"})
	require.NoError(t, err)
	_, err = c.Fetch(ctx, "todos")
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, "todos", id))

	assert.Equal(t, []bool{false, false, false}, rec.deadlines())

	bounded := &deadlineRecorder{}
	c = h.client(t, validToken(t), WithCallTimeout(time.Minute), WithDialOptions(grpc.WithChainUnaryInterceptor(bounded.intercept)))
	_, err = c.Fetch(ctx, "todos")
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, bounded.deadlines())
}

func TestNew_NoDefaultCallTimeout(t *testing.T) {
	c, err := New("passthrough:///bufnet", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	assert.Zero(t, c.callTimeout)
}

func TestClient_PingWithoutToken(t *testing.T) {
	h := startServer(t)
	assert.NoError(t, h.client(t, "").Ping(context.Background()))
}

func TestMapError(t *testing.T) {
	c := &Client{}
	tests := []struct {
		code codes.Code
		want error
	}{
		{codes.NotFound, common.ErrorNotFound},
		{codes.InvalidArgument, common.ErrValidation},
		{codes.Unauthenticated, common.ErrorUnauthorized},
		{codes.Unavailable, common.ErrorUnavailable},
		{codes.DeadlineExceeded, common.ErrorUnavailable},
		{codes.Canceled, context.Canceled},
		{codes.Internal, common.ErrorInternal},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, c.mapError(status.Error(tt.code, "x")), tt.want, tt.code.String())
	}
}

func TestClient_SubscribeDeliversSnapshots(t *testing.T) {
	h := startServer(t)
	c := h.client(t, validToken(t))
	ctx := context.Background()

	var got snapshots
	sub, err := c.Subscribe(ctx, "comments", got.onSnapshot, got.onError)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return got.lastLen() == 0 }, 2*time.Second, 10*time.Millisecond)

	_, err = c.Create(ctx, "comments", docstore.Fields{"body": "first"})
	require.NoError(t, err)
	_, err = c.Create(ctx, "comments", docstore.Fields{"body": "second"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return got.lastLen() == 2 }, 2*time.Second, 10*time.Millisecond)

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.Eventually(t, func() bool { return h.store.Subscribers("comments") == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, got.errCount())
}

func TestClient_SubscribeReportsServerLoss(t *testing.T) {
	h := startServer(t)
	c := h.client(t, validToken(t))

	var got snapshots
	_, err := c.Subscribe(context.Background(), "todos", got.onSnapshot, got.onError)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return got.lastLen() == 0 }, 2*time.Second, 10*time.Millisecond)

	h.server.Stop()

	require.Eventually(t, func() bool { return got.errCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	got.mu.Lock()
	defer got.mu.Unlock()
	assert.ErrorIs(t, got.errs[0], common.ErrSubscription)
}

func TestClient_SubscribeUnauthenticated(t *testing.T) {
	h := startServer(t)
	c := h.client(t, "")

	var got snapshots
	_, err := c.Subscribe(context.Background(), "todos", got.onSnapshot, got.onError)
	// Stream errors surface on the first receive, not on open.
	require.NoError(t, err)

	require.Eventually(t, func() bool { return got.errCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	got.mu.Lock()
	defer got.mu.Unlock()
	assert.ErrorIs(t, got.errs[0], common.ErrSubscription)
	assert.ErrorIs(t, got.errs[0], common.ErrorUnauthorized)
}
