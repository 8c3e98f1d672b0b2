package service

// JobService is an interface which let us use sqlite.JobService.
type JobService interface {
	AddJob(*Job) error
	FindJobs(JobFilter) ([]*Job, error)
	UpdateJob(JobUpdater) error
}

// Job is a job information for database service.
type Job struct {
	ID       string
	Order    int
	Session  string
	Target   string
	Urgency  int
	Spec     string
	Waitable bool
	Status   int
	Assignee string
	ExitCode int
	Errstr   string

	// Submitted and Finished are unix times in seconds.
	// Finished is 0 until the job has finished.
	Submitted int64
	Finished  int64
}

// JobFilter is a job filter for searching jobs.
// Zero values don't filter.
type JobFilter struct {
	ID      string
	Target  string
	Session string
	Status  *int
}

// JobUpdater has information for updating a job.
// Nil fields are left as is.
type JobUpdater struct {
	ID       string
	Status   *int
	Assignee *string
	ExitCode *int
	Errstr   *string
	Finished *int64
}
