package manager

import (
	"context"
	"time"

	"github.com/imagvfx/cocowait"
	"github.com/imagvfx/cocowait/jobspec"
	"github.com/imagvfx/cocowait/service"
)

// JobStatus is a job status.
type JobStatus int

const (
	JobWaiting = JobStatus(iota)
	JobRunning
	JobFailed
	JobDone
)

// String represents JobStatus as string.
func (s JobStatus) String() string {
	return map[JobStatus]string{
		JobWaiting: "waiting",
		JobRunning: "running",
		JobFailed:  "failed",
		JobDone:    "done",
	}[s]
}

// JobStatusFromString is the inverse of JobStatus.String.
func JobStatusFromString(s string) (JobStatus, bool) {
	for _, st := range []JobStatus{JobWaiting, JobRunning, JobFailed, JobDone} {
		if st.String() == s {
			return st, true
		}
	}
	return -1, false
}

// Finished reports whether the status is final.
func (s JobStatus) Finished() bool {
	return s == JobFailed || s == JobDone
}

// JobFilter is a job filter for listing jobs.
// Zero values don't filter.
type JobFilter struct {
	Target  string
	Session string
	Status  *JobStatus
}

// Job is a job, user sended to the manager to run it in a worker.
type Job struct {
	// NOTE: Fields in this block should be read-only after the job is submitted.
	// Otherwise, this program will get racy.

	ID cocowait.JobID

	// Order is the submission order number of the job in the manager.
	Order int

	// Session is the id of the session that submitted the job.
	Session string

	// Target defines which worker groups should work for the job.
	Target string

	// Urgency orders waiting jobs. Higher values take precedence.
	// Jobs having the same urgency run in submission order.
	Urgency int

	Spec *jobspec.Jobspec

	// Waitable jobs report their completion to the session's WaitAny.
	Waitable bool

	Submitted time.Time

	//
	// NOTE:
	//
	// 	Fields below should be used/changed after hold the Manager's lock.
	//
	//

	status JobStatus

	// Assignee is a worker who is running the job currently.
	// It is empty except the job is running.
	Assignee string

	ExitCode int
	Errstr   string
	Finished time.Time

	// canceled is set when a user canceled the job.
	canceled bool

	// cancel stops the running job's commands.
	cancel context.CancelFunc
}

// Status returns the job's status.
func (j *Job) Status() JobStatus {
	return j.status
}

// Result returns the job's result as seen by the submitter.
func (j *Job) Result() *cocowait.JobResult {
	return &cocowait.JobResult{
		ID:      j.ID,
		Success: j.status == JobDone,
		Errstr:  j.Errstr,
	}
}

// JobInfo is a snapshot of a job for listing.
type JobInfo struct {
	ID        string
	Order     int
	Status    string
	Target    string
	Urgency   int
	Command   []string
	Waitable  bool
	Assignee  string
	ExitCode  int
	Errstr    string
	Submitted time.Time
	Finished  *time.Time `json:",omitempty"`
}

// Info returns a snapshot of the job.
func (j *Job) Info() *JobInfo {
	info := &JobInfo{
		ID:        string(j.ID),
		Order:     j.Order,
		Status:    j.status.String(),
		Target:    j.Target,
		Urgency:   j.Urgency,
		Waitable:  j.Waitable,
		Assignee:  j.Assignee,
		ExitCode:  j.ExitCode,
		Errstr:    j.Errstr,
		Submitted: j.Submitted,
	}
	if j.Spec != nil {
		info.Command = j.Spec.Command()
	}
	if !j.Finished.IsZero() {
		f := j.Finished
		info.Finished = &f
	}
	return info
}

// jobLess is the dispatch order of waiting jobs.
func jobLess(a, b *Job) bool {
	if a.Urgency > b.Urgency {
		return true
	}
	if a.Urgency < b.Urgency {
		return false
	}
	return a.Order < b.Order
}

// record converts the job to a database record. spec is the encoded jobspec.
func (j *Job) record(spec []byte) *service.Job {
	r := &service.Job{
		ID:        string(j.ID),
		Order:     j.Order,
		Session:   j.Session,
		Target:    j.Target,
		Urgency:   j.Urgency,
		Spec:      string(spec),
		Waitable:  j.Waitable,
		Status:    int(j.status),
		Assignee:  j.Assignee,
		ExitCode:  j.ExitCode,
		Errstr:    j.Errstr,
		Submitted: j.Submitted.Unix(),
	}
	if !j.Finished.IsZero() {
		r.Finished = j.Finished.Unix()
	}
	return r
}

// jobFromRecord converts a database record to a job.
// A record whose jobspec cannot be decoded gets a nil Spec.
func jobFromRecord(r *service.Job) *Job {
	j := &Job{
		ID:        cocowait.JobID(r.ID),
		Order:     r.Order,
		Session:   r.Session,
		Target:    r.Target,
		Urgency:   r.Urgency,
		Waitable:  r.Waitable,
		Submitted: time.Unix(r.Submitted, 0),
		status:    JobStatus(r.Status),
		Assignee:  r.Assignee,
		ExitCode:  r.ExitCode,
		Errstr:    r.Errstr,
	}
	if r.Finished != 0 {
		j.Finished = time.Unix(r.Finished, 0)
	}
	spec, err := jobspec.Decode([]byte(r.Spec))
	if err == nil {
		j.Spec = spec
	}
	return j
}
