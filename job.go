package cocowait

import (
	"context"

	"github.com/imagvfx/cocowait/jobspec"
	"github.com/pkg/errors"
)

// DefaultJobs is the batch size used when the caller doesn't give one.
const DefaultJobs = 10

var (
	// ErrConnection is returned when the job manager cannot be reached,
	// or the session with it was lost.
	ErrConnection = errors.New("job manager connection failed")

	// ErrSubmission is returned when the job manager rejects a job.
	ErrSubmission = errors.New("job submission rejected")

	// ErrNoOutstandingJobs is returned by WaitAny when the session has
	// no waitable job left to wait for.
	ErrNoOutstandingJobs = errors.New("no outstanding waitable jobs")
)

// JobID identifies a job submitted to a job manager.
// Its format belongs to the job manager.
type JobID string

// JobResult is the outcome of a finished waitable job.
type JobResult struct {
	ID JobID

	// Success is true when every task of the job exited with zero status.
	Success bool

	// Errstr describes why the job failed.
	// It is empty when Success is true.
	Errstr string
}

// Session is a connection to a job manager.
// Jobs submitted as waitable through a session are owned by it,
// and only that session can wait for them.
type Session interface {
	// Submit enqueues a job and returns the id the manager assigned to it.
	Submit(ctx context.Context, spec *jobspec.Jobspec, waitable bool) (JobID, error)

	// WaitAny blocks until one of the session's outstanding waitable jobs
	// finishes and returns its result. Each finished job is returned once.
	// It returns ErrNoOutstandingJobs when there is nothing left to wait for.
	WaitAny(ctx context.Context) (*JobResult, error)

	// Close ends the session.
	Close() error
}
