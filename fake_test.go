package cocowait

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/imagvfx/cocowait/jobspec"
	"github.com/pkg/errors"
)

// fakeSession finishes jobs instantly. A job succeeds when its command
// is /bin/true. Finished jobs are handed out in a shuffled order.
type fakeSession struct {
	rand *rand.Rand

	submitted []JobID
	specs     map[JobID]*jobspec.Jobspec
	pending   []JobID
	waits     int

	// submitErr is returned from the submitErrAt'th Submit call (1-based).
	submitErrAt int
	submitErr   error

	// waitErr is returned from the waitErrAt'th WaitAny call (1-based).
	waitErrAt int
	waitErr   error

	// duplicate makes WaitAny return the first result twice.
	duplicate bool
}

func newFakeSession(seed int64) *fakeSession {
	return &fakeSession{
		rand:  rand.New(rand.NewSource(seed)),
		specs: make(map[JobID]*jobspec.Jobspec),
	}
}

func (s *fakeSession) Submit(ctx context.Context, spec *jobspec.Jobspec, waitable bool) (JobID, error) {
	if s.submitErrAt == len(s.submitted)+1 {
		return "", s.submitErr
	}
	id := JobID(fmt.Sprintf("job-%d", len(s.submitted)))
	s.submitted = append(s.submitted, id)
	s.specs[id] = spec
	if waitable {
		s.pending = append(s.pending, id)
	}
	return id, nil
}

func (s *fakeSession) WaitAny(ctx context.Context) (*JobResult, error) {
	s.waits++
	if s.waitErrAt == s.waits {
		return nil, s.waitErr
	}
	if s.duplicate && s.waits == 2 && len(s.submitted) > 0 {
		return s.result(s.submitted[0]), nil
	}
	if len(s.pending) == 0 {
		return nil, errors.WithStack(ErrNoOutstandingJobs)
	}
	i := s.rand.Intn(len(s.pending))
	id := s.pending[i]
	s.pending = append(s.pending[:i], s.pending[i+1:]...)
	return s.result(id), nil
}

func (s *fakeSession) result(id JobID) *JobResult {
	if s.specs[id].String() == "/bin/true" {
		return &JobResult{ID: id, Success: true}
	}
	return &JobResult{ID: id, Errstr: "task(s) exited with exit code 1"}
}

func (s *fakeSession) Close() error {
	return nil
}
