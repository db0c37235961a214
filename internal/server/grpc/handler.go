package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"github.com/dmitrijs2005/adminconsole/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStatus maps store errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, common.ErrSubscription), errors.Is(err, common.ErrorUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func (s *GRPCServer) Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := rpc.DecodeRequest(req)
	if err != nil {
		return nil, toStatus(err)
	}

	id, err := s.store.Create(ctx, r.Collection, r.Fields)
	if err != nil {
		s.logger.Error(ctx, "create failed", "collection", r.Collection, "error", err)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "document created", "operator", OperatorFromContext(ctx), "collection", r.Collection, "id", id)
	return rpc.EncodeID(id), nil
}

func (s *GRPCServer) Update(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	r, err := rpc.DecodeRequest(req)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := docstore.ValidateID(r.ID); err != nil {
		return nil, toStatus(err)
	}

	if err := s.store.Update(ctx, r.Collection, r.ID, r.Fields); err != nil {
		s.logger.Error(ctx, "update failed", "collection", r.Collection, "id", r.ID, "error", err)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "document updated", "operator", OperatorFromContext(ctx), "collection", r.Collection, "id", r.ID)
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) Delete(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	r, err := rpc.DecodeRequest(req)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := docstore.ValidateID(r.ID); err != nil {
		return nil, toStatus(err)
	}

	if err := s.store.Delete(ctx, r.Collection, r.ID); err != nil {
		s.logger.Error(ctx, "delete failed", "collection", r.Collection, "id", r.ID, "error", err)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "document deleted", "operator", OperatorFromContext(ctx), "collection", r.Collection, "id", r.ID)
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) Fetch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := rpc.DecodeRequest(req)
	if err != nil {
		return nil, toStatus(err)
	}

	records, err := s.store.Fetch(ctx, r.Collection)
	if err != nil {
		s.logger.Error(ctx, "fetch failed", "collection", r.Collection, "error", err)
		return nil, toStatus(err)
	}

	resp, err := rpc.EncodeRecords(records)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

// Subscribe forwards snapshots until the client cancels or the store
// breaks the subscription. Snapshots that pile up while the stream is slow
// are collapsed to the latest one.
func (s *GRPCServer) Subscribe(req *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()

	r, err := rpc.DecodeRequest(req)
	if err != nil {
		return toStatus(err)
	}

	latest := make(chan []docstore.Record, 1)
	failed := make(chan error, 1)

	onSnapshot := func(records []docstore.Record) {
		for {
			select {
			case latest <- records:
				return
			default:
			}
			select {
			case <-latest:
			default:
			}
		}
	}
	onError := func(err error) {
		select {
		case failed <- err:
		default:
		}
	}

	sub, err := s.store.Subscribe(ctx, r.Collection, onSnapshot, onError)
	if err != nil {
		return toStatus(err)
	}
	defer sub.Unsubscribe()

	log := s.logger.With("operator", OperatorFromContext(ctx), "collection", r.Collection)
	log.Info(ctx, "subscription opened")
	defer log.Info(ctx, "subscription closed")

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-failed:
			log.Error(ctx, "subscription failed", "error", err)
			return toStatus(err)
		case records := <-latest:
			msg, err := rpc.EncodeRecords(records)
			if err != nil {
				return toStatus(err)
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}
