package cocowait

import (
	"context"
	"io"

	"github.com/imagvfx/cocowait/jobspec"
)

// RunOptions configures Run.
type RunOptions struct {
	// N is the number of jobs to submit and wait for.
	N int

	// Pass is the jobspec expected to succeed. Defaults to /bin/true.
	Pass *jobspec.Jobspec

	// Fail is the jobspec expected to fail. Defaults to /bin/false.
	Fail *jobspec.Jobspec

	Out io.Writer
}

// Run submits a batch of opts.N waitable jobs through s, then drains
// exactly opts.N results and checks them against the submitted ids.
func Run(ctx context.Context, s Session, opts RunOptions) (*Report, error) {
	pass := opts.Pass
	if pass == nil {
		pass = jobspec.FromCommand([]string{"/bin/true"})
	}
	fail := opts.Fail
	if fail == nil {
		fail = jobspec.FromCommand([]string{"/bin/false"})
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	b := &BatchSubmitter{Pass: pass, Fail: fail, Out: out}
	ids, err := b.Submit(ctx, s, opts.N)
	if err != nil {
		return nil, err
	}
	d := &CompletionDrain{Out: out}
	r, err := d.Drain(ctx, s, len(ids))
	if err != nil {
		return r, err
	}
	err = r.Verify(ids)
	if err != nil {
		return r, err
	}
	return r, nil
}
