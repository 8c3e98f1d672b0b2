package cocowait

import (
	"sort"

	"github.com/pkg/errors"
)

// Report is the outcome of a drain.
type Report struct {
	results  []*JobResult
	nSuccess int
}

func (r *Report) add(res *JobResult) {
	r.results = append(r.results, res)
	if res.Success {
		r.nSuccess++
	}
}

// Results returns the drained results in the order they were drained.
func (r *Report) Results() []*JobResult {
	return r.results
}

// Len returns the number of drained results.
func (r *Report) Len() int {
	return len(r.results)
}

// Succeeded returns the number of successful jobs.
func (r *Report) Succeeded() int {
	return r.nSuccess
}

// Failed returns the number of failed jobs.
func (r *Report) Failed() int {
	return len(r.results) - r.nSuccess
}

// Verify checks that every submitted job was drained exactly once,
// and nothing else was.
func (r *Report) Verify(submitted []JobID) error {
	count := make(map[JobID]int, len(submitted))
	for _, id := range submitted {
		count[id]++
	}
	for _, res := range r.results {
		count[res.ID]--
	}
	missing := make([]string, 0)
	unexpected := make([]string, 0)
	for id, n := range count {
		for ; n > 0; n-- {
			missing = append(missing, string(id))
		}
		for ; n < 0; n++ {
			unexpected = append(unexpected, string(id))
		}
	}
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(unexpected)
	return errors.Errorf("drained results don't match submitted jobs: missing %v, unexpected %v", missing, unexpected)
}
