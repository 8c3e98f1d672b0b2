package cocowait

import (
	"context"
	"fmt"
	"io"

	"github.com/imagvfx/cocowait/jobspec"
	"github.com/pkg/errors"
)

// BatchSubmitter submits a batch of waitable jobs, where the first half
// of the batch runs Pass and the rest runs Fail.
type BatchSubmitter struct {
	Pass *jobspec.Jobspec
	Fail *jobspec.Jobspec

	// Out receives a line for each submitted job.
	Out io.Writer
}

// SpecFor returns the jobspec of the i'th job in a batch of n jobs.
// The first n/2 jobs, rounded down, pass. An odd batch fails one more than it passes.
func (b *BatchSubmitter) SpecFor(i, n int) *jobspec.Jobspec {
	if i < n/2 {
		return b.Pass
	}
	return b.Fail
}

// Submit submits n jobs in order and returns their ids in submission order.
// It stops at the first failed submission, and the returned ids are
// those submitted before the failure.
func (b *BatchSubmitter) Submit(ctx context.Context, s Session, n int) ([]JobID, error) {
	if n < 0 {
		return nil, errors.Errorf("invalid number of jobs: %d", n)
	}
	ids := make([]JobID, 0, n)
	for i := 0; i < n; i++ {
		spec := b.SpecFor(i, n)
		id, err := s.Submit(ctx, spec, true)
		if err != nil {
			if !errors.Is(err, ErrConnection) && !errors.Is(err, ErrSubmission) {
				err = errors.Wrap(ErrSubmission, err.Error())
			}
			return ids, errors.WithMessagef(err, "submit job %d of %d", i+1, n)
		}
		ids = append(ids, id)
		fmt.Fprintf(b.Out, "submit: %s %s\n", id, spec)
	}
	return ids, nil
}
