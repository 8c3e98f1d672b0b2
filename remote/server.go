// Package remote serves a job manager over gRPC, and talks to it from clients.
package remote

import (
	"context"
	"time"

	"github.com/imagvfx/cocowait"
	"github.com/imagvfx/cocowait/jobspec"
	"github.com/imagvfx/cocowait/lib/logging"
	"github.com/imagvfx/cocowait/manager"
	"github.com/imagvfx/cocowait/pb"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Server is a gRPC server of a job manager.
type Server struct {
	pb.UnimplementedManagerServer
	m   *manager.Manager
	log *logging.Logger
}

// NewServer creates a new Server.
func NewServer(m *manager.Manager, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{m: m, log: log}
}

// NewGRPCServer creates a gRPC server serving s.
// A nil access allows every client.
func (s *Server) NewGRPCServer(access *AccessList, opts ...grpc.ServerOption) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{s.logCall}
	if access != nil {
		interceptors = append([]grpc.UnaryServerInterceptor{access.UnaryInterceptor()}, interceptors...)
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(interceptors...))
	g := grpc.NewServer(opts...)
	pb.RegisterManagerServer(g, s)
	return g
}

func (s *Server) logCall(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.log.Debug("call", "method", info.FullMethod, "peer", peerIP(ctx), "code", status.Code(err), "took", time.Since(start))
	return resp, err
}

// session finds the caller's session from the call metadata.
func (s *Server) session(ctx context.Context) (*manager.Session, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	ids := md.Get(pb.SessionKey)
	if len(ids) == 0 {
		return nil, status.Error(codes.Unauthenticated, "session id not found in the metadata")
	}
	sess, ok := s.m.Session(ids[0])
	if !ok {
		return nil, status.Errorf(codes.Unavailable, "unknown session: %v", ids[0])
	}
	return sess, nil
}

func (s *Server) Connect(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	sess, err := s.m.Connect(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	s.log.Info("client connected", "session", sess.ID(), "peer", peerIP(ctx))
	return wrapperspb.String(sess.ID()), nil
}

func (s *Server) Submit(ctx context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	req, err := pb.SubmitRequestFromProto(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	spec, err := jobspec.Decode(req.Spec)
	if err != nil {
		return nil, toStatus(errors.Wrap(cocowait.ErrSubmission, err.Error()))
	}
	id, err := sess.Submit(ctx, spec, req.Waitable)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(string(id)), nil
}

func (s *Server) WaitAny(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	res, err := sess.WaitAny(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return pb.JobResultProto(res), nil
}

func (s *Server) Disconnect(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	err = sess.Close()
	if err != nil {
		return nil, toStatus(err)
	}
	s.log.Info("client disconnected", "session", sess.ID())
	return &emptypb.Empty{}, nil
}

// toStatus converts an error from the manager to a gRPC status error.
func toStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, cocowait.ErrSubmission):
		code = codes.InvalidArgument
	case errors.Is(err, cocowait.ErrNoOutstandingJobs):
		code = codes.FailedPrecondition
	case errors.Is(err, cocowait.ErrConnection):
		code = codes.Unavailable
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return status.Error(code, err.Error())
}
