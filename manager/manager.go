// Package manager is an in-process job manager.
//
// It runs submitted jobs on slots of worker groups, and reports
// the results of waitable jobs to the session that submitted them.
package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/imagvfx/cocowait"
	"github.com/imagvfx/cocowait/jobspec"
	"github.com/imagvfx/cocowait/lib/container"
	"github.com/imagvfx/cocowait/lib/logging"
	"github.com/imagvfx/cocowait/service"
	"github.com/imagvfx/cocowait/service/nop"
	"github.com/pkg/errors"
	"github.com/rs/xid"
)

// Manager manages jobs, sessions and workers.
type Manager struct {
	sync.Mutex

	svc     service.JobService
	log     *logging.Logger
	metrics *metrics
	groups  []*WorkerGroup

	// nextOrder is the order number of the next submitted job.
	nextOrder int

	// job has every job the manager knows, including finished ones.
	job map[cocowait.JobID]*Job

	// jobs holds waiting jobs in dispatch order.
	jobs *container.UniqueHeap[*Job]

	session map[string]*Session
	workers []*Worker

	// readyCh tries fast matching of a worker and a job.
	readyCh chan struct{}

	// ctx is canceled when the manager is closed.
	ctx    context.Context
	stop   context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// New creates a new Manager, and starts its workers.
// Jobs in svc those didn't finish before are marked as failed.
// A nil svc keeps jobs only in memory. A nil log discards logs.
func New(cfg Config, svc service.JobService, log *logging.Logger) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if svc == nil {
		svc = &nop.JobService{}
	}
	if log == nil {
		log = logging.Nop()
	}
	ctx, stop := context.WithCancel(context.Background())
	m := &Manager{
		svc:     svc,
		log:     log,
		metrics: newMetrics(cfg.Registerer),
		groups:  cfg.Groups,
		job:     make(map[cocowait.JobID]*Job),
		jobs:    container.NewUniqueHeap(jobLess),
		session: make(map[string]*Session),
		readyCh: make(chan struct{}, 1),
		ctx:     ctx,
		stop:    stop,
	}
	for _, g := range cfg.Groups {
		for i := 0; i < g.Slots; i++ {
			m.workers = append(m.workers, newWorker(fmt.Sprintf("%s-%d", g.Name, i), g, log))
		}
	}
	err = m.restore()
	if err != nil {
		stop()
		return nil, err
	}
	for _, w := range m.workers {
		m.wg.Add(1)
		go m.serve(w)
	}
	log.Info("job manager started", "workers", len(m.workers), "restored", len(m.job))
	return m, nil
}

// restore loads jobs from the service.
// Jobs those were waiting or running cannot be continued,
// so they are marked as failed.
func (m *Manager) restore() error {
	recs, err := m.svc.FindJobs(service.JobFilter{})
	if err != nil {
		return errors.Wrap(err, "restore jobs")
	}
	now := time.Now()
	for _, r := range recs {
		if r.Order >= m.nextOrder {
			m.nextOrder = r.Order + 1
		}
		j := jobFromRecord(r)
		if !j.status.Finished() {
			j.status = JobFailed
			j.Assignee = ""
			j.ExitCode = -1
			j.Errstr = errstrRestart
			j.Finished = now
			err := m.svc.UpdateJob(service.JobUpdater{
				ID:       string(j.ID),
				Status:   ptr(int(JobFailed)),
				Assignee: ptr(""),
				ExitCode: ptr(-1),
				Errstr:   ptr(errstrRestart),
				Finished: ptr(now.Unix()),
			})
			if err != nil {
				return errors.Wrapf(err, "restore job %v", j.ID)
			}
			m.log.Warn("job didn't finish before restart", "job", j.ID)
		}
		m.job[j.ID] = j
	}
	return nil
}

// Connect opens a new session.
func (m *Manager) Connect(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	m.Lock()
	defer m.Unlock()
	if m.closed {
		return nil, errors.Wrap(cocowait.ErrConnection, "job manager is closed")
	}
	s := newSession(uuid.NewString(), m)
	m.session[s.id] = s
	m.metrics.sessions.Inc()
	m.log.Debug("session opened", "session", s.id)
	return s, nil
}

// Session returns an open session with the id.
func (m *Manager) Session(id string) (*Session, bool) {
	m.Lock()
	defer m.Unlock()
	s, ok := m.session[id]
	return s, ok
}

// servable reports whether any worker group serves the target.
func (m *Manager) servable(target string) bool {
	for _, g := range m.groups {
		if g.Serves(target) {
			return true
		}
	}
	return false
}

func (m *Manager) submit(s *Session, spec *jobspec.Jobspec, waitable bool) (cocowait.JobID, error) {
	if spec == nil {
		return "", errors.Wrap(cocowait.ErrSubmission, "jobspec is nil")
	}
	err := spec.Validate()
	if err != nil {
		return "", errors.Wrap(cocowait.ErrSubmission, err.Error())
	}
	data, err := spec.Encode()
	if err != nil {
		return "", errors.Wrap(cocowait.ErrSubmission, err.Error())
	}
	// keep our own copy, so the caller may reuse the spec.
	spec, err = jobspec.Decode(data)
	if err != nil {
		return "", errors.Wrap(cocowait.ErrSubmission, err.Error())
	}

	m.Lock()
	defer m.Unlock()
	if m.closed {
		return "", errors.Wrap(cocowait.ErrConnection, "job manager is closed")
	}
	if s.closed {
		return "", errors.Wrap(cocowait.ErrConnection, "session is closed")
	}
	target := spec.Queue()
	if !m.servable(target) {
		return "", errors.Wrapf(cocowait.ErrSubmission, "no worker group serves queue %q", target)
	}
	j := &Job{
		ID:        cocowait.JobID(xid.New().String()),
		Order:     m.nextOrder,
		Session:   s.id,
		Target:    target,
		Urgency:   spec.Urgency(),
		Spec:      spec,
		Waitable:  waitable,
		Submitted: time.Now(),
		status:    JobWaiting,
	}
	err = m.svc.AddJob(j.record(data))
	if err != nil {
		return "", errors.Wrapf(cocowait.ErrSubmission, "record job: %v", err)
	}
	m.nextOrder++
	m.job[j.ID] = j
	m.jobs.Push(j)
	if waitable {
		s.outstanding++
		m.metrics.outstanding.Inc()
	}
	m.metrics.submitted.Inc()
	m.log.Info("job submitted", "job", j.ID, "session", s.id, "waitable", waitable, "command", spec.String())
	m.signalReady()
	return j.ID, nil
}

// signalReady wakes an idle worker. It never blocks.
func (m *Manager) signalReady() {
	select {
	case m.readyCh <- struct{}{}:
	default:
	}
}

// serve is the matching loop of a worker.
func (m *Manager) serve(w *Worker) {
	defer m.wg.Done()
	for {
		j, ctx := m.pop(w)
		if j != nil {
			// there might be more jobs for other workers.
			m.signalReady()
			o := w.execute(ctx, j.Spec)
			m.finish(w, j, o)
			continue
		}
		// readyCh gives faster matching loop when we are fortune.
		// The signal could be spent by a worker that cannot serve the job,
		// below time.After case will helps us prevent a stuck job in that case.
		select {
		case <-m.ctx.Done():
			return
		case <-m.readyCh:
		case <-time.After(time.Second):
		}
	}
}

// pop takes the most urgent job the worker can serve, and assigns it to the worker.
// It returns a nil job when there is nothing to do.
func (m *Manager) pop(w *Worker) (*Job, context.Context) {
	m.Lock()
	defer m.Unlock()
	if m.closed {
		return nil, nil
	}
	skipped := make([]*Job, 0)
	defer func() {
		for _, j := range skipped {
			m.jobs.Push(j)
		}
	}()
	for {
		j, ok := m.jobs.Pop()
		if !ok {
			return nil, nil
		}
		if j.status != JobWaiting {
			continue
		}
		if !w.group.Serves(j.Target) {
			skipped = append(skipped, j)
			continue
		}
		var ctx context.Context
		var cancel context.CancelFunc
		if d := j.Spec.Duration(); d > 0 {
			ctx, cancel = context.WithTimeout(m.ctx, d)
		} else {
			ctx, cancel = context.WithCancel(m.ctx)
		}
		j.cancel = cancel
		j.status = JobRunning
		j.Assignee = w.Name
		w.status = WorkerRunning
		w.job = j.ID
		m.metrics.running.Inc()
		err := m.svc.UpdateJob(service.JobUpdater{
			ID:       string(j.ID),
			Status:   ptr(int(JobRunning)),
			Assignee: ptr(w.Name),
		})
		if err != nil {
			m.log.Warn("couldn't record job start", "job", j.ID, "err", err)
		}
		m.log.Debug("job started", "job", j.ID, "worker", w.Name)
		return j, ctx
	}
}

// finish releases the worker, and completes the job it ran.
func (m *Manager) finish(w *Worker, j *Job, o outcome) {
	m.Lock()
	defer m.Unlock()
	j.cancel()
	j.cancel = nil
	w.status = WorkerIdle
	w.job = ""
	m.metrics.running.Dec()
	if j.canceled {
		o = outcome{exitCode: -1, errstr: errstrCanceled}
	} else if m.closed && o.errstr == errstrCanceled {
		o.errstr = errstrStopped
	}
	m.complete(j, o)
}

// complete records the job's outcome, and hands it to the session when it is waitable.
// NOTE: It should be called after hold the Manager's lock.
func (m *Manager) complete(j *Job, o outcome) {
	j.status = JobDone
	result := "success"
	if o.errstr != "" {
		j.status = JobFailed
		result = "failure"
	}
	j.Assignee = ""
	j.ExitCode = o.exitCode
	j.Errstr = o.errstr
	j.Finished = time.Now()
	err := m.svc.UpdateJob(service.JobUpdater{
		ID:       string(j.ID),
		Status:   ptr(int(j.status)),
		Assignee: ptr(""),
		ExitCode: ptr(j.ExitCode),
		Errstr:   ptr(j.Errstr),
		Finished: ptr(j.Finished.Unix()),
	})
	if err != nil {
		m.log.Warn("couldn't record job result", "job", j.ID, "err", err)
	}
	m.metrics.completed.WithLabelValues(result).Inc()
	m.log.Info("job finished", "job", j.ID, "status", j.status, "errstr", j.Errstr)
	if !j.Waitable {
		return
	}
	s := m.session[j.Session]
	if s == nil {
		// the session has gone.
		return
	}
	s.done.Push(j.ID)
	s.signal()
}

// Cancel cancels a job. A waiting job finishes right away,
// a running job finishes when its commands are killed.
func (m *Manager) Cancel(id cocowait.JobID) error {
	m.Lock()
	defer m.Unlock()
	j, ok := m.job[id]
	if !ok {
		return errors.Errorf("cannot find the job: %v", id)
	}
	switch j.status {
	case JobWaiting:
		j.canceled = true
		m.jobs.Remove(j)
		m.complete(j, outcome{exitCode: -1, errstr: errstrCanceled})
	case JobRunning:
		j.canceled = true
		j.cancel()
	default:
		return errors.Errorf("job has already finished: %v", id)
	}
	m.log.Info("job canceled", "job", id)
	return nil
}

// Get returns a snapshot of the job.
func (m *Manager) Get(id cocowait.JobID) (*JobInfo, error) {
	m.Lock()
	defer m.Unlock()
	j, ok := m.job[id]
	if !ok {
		return nil, errors.Errorf("cannot find the job: %v", id)
	}
	return j.Info(), nil
}

// Jobs returns snapshots of jobs those matched with the filter, in submission order.
func (m *Manager) Jobs(f JobFilter) []*JobInfo {
	m.Lock()
	defer m.Unlock()
	jobs := make([]*Job, 0, len(m.job))
	for _, j := range m.job {
		if f.Target != "" && j.Target != f.Target {
			continue
		}
		if f.Session != "" && j.Session != f.Session {
			continue
		}
		if f.Status != nil && j.status != *f.Status {
			continue
		}
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Order < jobs[j].Order
	})
	infos := make([]*JobInfo, len(jobs))
	for i, j := range jobs {
		infos[i] = j.Info()
	}
	return infos
}

// WorkerInfo is a snapshot of a worker for listing.
type WorkerInfo struct {
	Name   string
	Group  string
	Status string
	Job    string
}

// Workers returns snapshots of the manager's workers.
func (m *Manager) Workers() []*WorkerInfo {
	m.Lock()
	defer m.Unlock()
	infos := make([]*WorkerInfo, len(m.workers))
	for i, w := range m.workers {
		infos[i] = &WorkerInfo{
			Name:   w.Name,
			Group:  w.group.Name,
			Status: w.status.String(),
			Job:    string(w.job),
		}
	}
	return infos
}

// Close stops the manager. Running jobs are killed, and every waiting job fails.
// Blocked WaitAny calls return ErrConnection.
// It is ok to call it multiple times.
func (m *Manager) Close() error {
	m.Lock()
	if m.closed {
		m.Unlock()
		return nil
	}
	m.closed = true
	m.Unlock()

	m.stop()
	m.wg.Wait()

	m.Lock()
	defer m.Unlock()
	for {
		j, ok := m.jobs.Pop()
		if !ok {
			break
		}
		if j.status != JobWaiting {
			continue
		}
		m.complete(j, outcome{exitCode: -1, errstr: errstrStopped})
	}
	m.log.Info("job manager stopped")
	return nil
}
