// Package storeclient implements docstore.Store on top of the
// CollectionStore gRPC service, so console screens work the same against a
// remote server as against an in-process backend.
package storeclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"github.com/dmitrijs2005/adminconsole/internal/logging"
	"github.com/dmitrijs2005/adminconsole/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type Client struct {
	endpointURL string
	accessToken string
	conn        *grpc.ClientConn
	logger      logging.Logger
	callTimeout time.Duration
	dialOpts    []grpc.DialOption
}

var _ docstore.Store = (*Client)(nil)

type Option func(*Client)

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithCallTimeout bounds every unary call. By default calls carry only the
// caller's deadline, if any. Subscriptions are not affected.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) { c.callTimeout = d }
}

// WithDialOptions appends options to the ones New passes to grpc.NewClient.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) { c.dialOpts = append(c.dialOpts, opts...) }
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (c *Client) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withAccessToken(ctx, c.accessToken), method, req, reply, cc, opts...)
}

func (c *Client) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, c.accessToken), desc, cc, method, opts...)
}

// New creates a client for the store server at endpointURL. The connection
// is established lazily on the first call.
func New(endpointURL, accessToken string, opts ...Option) (*Client, error) {
	c := &Client{
		endpointURL: endpointURL,
		accessToken: accessToken,
		logger:      logging.Nop{},
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("module", "storeclient")

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithStreamInterceptor(c.streamAccessTokenInterceptor),
	}, c.dialOpts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn

	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// mapError converts a gRPC status back into the sentinel errors the rest of
// the console matches on.
func (c *Client) mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	var sentinel error
	switch st.Code() {
	case codes.NotFound:
		sentinel = common.ErrorNotFound
	case codes.InvalidArgument:
		sentinel = common.ErrValidation
	case codes.Unauthenticated:
		if st.Message() == common.ErrTokenExpired.Error() {
			return fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrTokenExpired)
		}
		sentinel = common.ErrorUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		sentinel = common.ErrorUnavailable
	case codes.Canceled:
		sentinel = context.Canceled
	default:
		sentinel = common.ErrorInternal
	}

	return fmt.Errorf("%w: %s", sentinel, st.Message())
}

func (c *Client) invoke(ctx context.Context, method string, req *rpc.Request, reply any) error {
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	var in any = &emptypb.Empty{}
	if req != nil {
		s, err := rpc.EncodeRequest(*req)
		if err != nil {
			return err
		}
		in = s
	}

	if err := c.conn.Invoke(ctx, method, in, reply); err != nil {
		return c.mapError(err)
	}
	return nil
}

func (c *Client) Create(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	resp := &structpb.Struct{}
	if err := c.invoke(ctx, rpc.MethodCreate, &rpc.Request{Collection: collection, Fields: fields}, resp); err != nil {
		return "", err
	}
	return rpc.DecodeID(resp)
}

func (c *Client) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	return c.invoke(ctx, rpc.MethodUpdate, &rpc.Request{Collection: collection, ID: id, Fields: fields}, &emptypb.Empty{})
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.invoke(ctx, rpc.MethodDelete, &rpc.Request{Collection: collection, ID: id}, &emptypb.Empty{})
}

func (c *Client) Fetch(ctx context.Context, collection string) ([]docstore.Record, error) {
	resp := &structpb.Struct{}
	if err := c.invoke(ctx, rpc.MethodFetch, &rpc.Request{Collection: collection}, resp); err != nil {
		return nil, err
	}
	return rpc.DecodeRecords(resp)
}

// Ping reports whether the server answers. It needs no valid token.
func (c *Client) Ping(ctx context.Context) error {
	return c.invoke(ctx, rpc.MethodPing, nil, &emptypb.Empty{})
}

type subscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Subscribe opens a Subscribe stream and delivers every snapshot it carries
// on a dedicated goroutine. A stream that ends for any reason other than
// Unsubscribe or ctx cancellation is reported once through onError.
func (c *Client) Subscribe(ctx context.Context, collection string, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) (docstore.Subscription, error) {
	req, err := rpc.EncodeRequest(rpc.Request{Collection: collection})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	stream, err := c.conn.NewStream(ctx, rpc.SubscribeStreamDesc, rpc.MethodSubscribe)
	if err != nil {
		cancel()
		return nil, c.mapError(err)
	}
	if err := stream.SendMsg(req); err != nil {
		cancel()
		return nil, c.mapError(err)
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, c.mapError(err)
	}

	go func() {
		defer cancel()
		for {
			msg := &structpb.Struct{}
			err := stream.RecvMsg(msg)
			if err == nil {
				var records []docstore.Record
				records, err = rpc.DecodeRecords(msg)
				if err == nil {
					if ctx.Err() != nil {
						return
					}
					onSnapshot(records)
					continue
				}
			}

			if ctx.Err() != nil {
				return
			}
			mapped := c.mapError(err)
			c.logger.Warn(ctx, "subscription ended", "collection", collection, "error", mapped)
			if onError != nil {
				onError(fmt.Errorf("%w: %w", common.ErrSubscription, mapped))
			}
			return
		}
	}()

	return &subscription{cancel: cancel}, nil
}
