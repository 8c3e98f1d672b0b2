package cocowait

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// CompletionDrain collects the results of a session's waitable jobs.
type CompletionDrain struct {
	// Out receives a line for each drained result.
	Out io.Writer
}

// Drain calls WaitAny exactly n times, in whatever order the jobs finish.
// A failed job is a normal result and doesn't stop the drain.
// A WaitAny error does, and it is returned with the results drained so far.
func (d *CompletionDrain) Drain(ctx context.Context, s Session, n int) (*Report, error) {
	r := &Report{}
	for i := 0; i < n; i++ {
		res, err := s.WaitAny(ctx)
		if err != nil {
			return r, errors.WithMessagef(err, "wait for job %d of %d", i+1, n)
		}
		r.add(res)
		if res.Success {
			fmt.Fprintf(d.Out, "wait: %s Success\n", res.ID)
		} else {
			fmt.Fprintf(d.Out, "wait: %s Error: %s\n", res.ID, res.Errstr)
		}
	}
	return r, nil
}
