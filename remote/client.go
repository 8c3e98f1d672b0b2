package remote

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/imagvfx/cocowait"
	"github.com/imagvfx/cocowait/jobspec"
	"github.com/imagvfx/cocowait/pb"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

// disconnectTimeout limits how long Close waits for the manager.
const disconnectTimeout = 5 * time.Second

// Client is a connection to a remote job manager.
type Client struct {
	conn *grpc.ClientConn
	c    pb.ManagerClient
}

// Dial connects to a job manager at addr. It blocks until the connection
// is up or ctx is done.
func Dial(ctx context.Context, addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	}, opts...)
	conn, err := grpc.DialContext(ctx, addr, opts...)
	if err != nil {
		return nil, errors.Wrapf(cocowait.ErrConnection, "dial %v: %v", addr, err)
	}
	return &Client{conn: conn, c: pb.NewManagerClient(conn)}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Connect opens a session on the connected manager.
func (c *Client) Connect(ctx context.Context) (*Session, error) {
	id, err := c.c.Connect(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, fromStatus(err)
	}
	return &Session{id: id.GetValue(), client: c}, nil
}

// Connect dials a job manager and opens a session.
// Closing the session also closes the connection.
func Connect(ctx context.Context, addr string, opts ...grpc.DialOption) (*Session, error) {
	c, err := Dial(ctx, addr, opts...)
	if err != nil {
		return nil, err
	}
	s, err := c.Connect(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	s.ownsClient = true
	return s, nil
}

var _ cocowait.Session = (*Session)(nil)

// Session is a session on a remote job manager.
type Session struct {
	id         string
	client     *Client
	ownsClient bool

	closeOnce sync.Once
	closeErr  error
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) outgoing(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, pb.SessionKey, s.id)
}

func (s *Session) Submit(ctx context.Context, spec *jobspec.Jobspec, waitable bool) (cocowait.JobID, error) {
	if spec == nil {
		return "", errors.Wrap(cocowait.ErrSubmission, "jobspec is nil")
	}
	data, err := spec.Encode()
	if err != nil {
		return "", errors.Wrap(cocowait.ErrSubmission, err.Error())
	}
	req, err := (&pb.SubmitRequest{Spec: data, Waitable: waitable}).Proto()
	if err != nil {
		return "", errors.Wrap(cocowait.ErrSubmission, err.Error())
	}
	id, err := s.client.c.Submit(s.outgoing(ctx), req)
	if err != nil {
		return "", fromStatus(err)
	}
	return cocowait.JobID(id.GetValue()), nil
}

func (s *Session) WaitAny(ctx context.Context) (*cocowait.JobResult, error) {
	resp, err := s.client.c.WaitAny(s.outgoing(ctx), &emptypb.Empty{})
	if err != nil {
		return nil, fromStatus(err)
	}
	res, err := pb.JobResultFromProto(resp)
	if err != nil {
		return nil, errors.Wrap(cocowait.ErrConnection, err.Error())
	}
	return res, nil
}

// Close closes the session, and the connection if the session made it.
// It is ok to call it multiple times.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs *multierror.Error
		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		_, err := s.client.c.Disconnect(s.outgoing(ctx), &emptypb.Empty{})
		if err != nil {
			errs = multierror.Append(errs, errors.Wrap(fromStatus(err), "disconnect"))
		}
		if s.ownsClient {
			err := s.client.Close()
			if err != nil {
				errs = multierror.Append(errs, errors.Wrap(err, "close connection"))
			}
		}
		s.closeErr = errs.ErrorOrNil()
	})
	return s.closeErr
}

// statusError is an error from the manager, matching one of cocowait's errors.
type statusError struct {
	kind error
	msg  string
}

func (e *statusError) Error() string {
	return e.msg
}

func (e *statusError) Unwrap() error {
	return e.kind
}

// fromStatus converts a gRPC error to one of cocowait's errors.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return errors.Wrap(cocowait.ErrConnection, err.Error())
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return &statusError{kind: cocowait.ErrSubmission, msg: st.Message()}
	case codes.FailedPrecondition:
		return &statusError{kind: cocowait.ErrNoOutstandingJobs, msg: st.Message()}
	case codes.Canceled:
		return &statusError{kind: context.Canceled, msg: st.Message()}
	case codes.DeadlineExceeded:
		return &statusError{kind: context.DeadlineExceeded, msg: st.Message()}
	}
	return &statusError{kind: cocowait.ErrConnection, msg: st.Message()}
}
