package manager

import (
	"context"

	"github.com/imagvfx/cocowait"
	"github.com/imagvfx/cocowait/jobspec"
	"github.com/imagvfx/cocowait/lib/container"
	"github.com/pkg/errors"
)

var _ cocowait.Session = (*Session)(nil)

// Session is a client connection to a Manager.
type Session struct {
	id string
	m  *Manager

	// Fields below should be used/changed after hold the Manager's lock.

	// outstanding is the number of waitable jobs
	// those are submitted but not yet returned by WaitAny.
	outstanding int

	// done holds finished waitable jobs in finish order.
	done *container.UniqueQueue[cocowait.JobID]

	closed bool

	// notify wakes a waiter when done got a job.
	// It has one buffer, so a signal sent while nobody waits isn't lost.
	notify chan struct{}
}

func newSession(id string, m *Manager) *Session {
	return &Session{
		id:     id,
		m:      m,
		done:   container.NewUniqueQueue[cocowait.JobID](),
		notify: make(chan struct{}, 1),
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// signal wakes one waiter. It never blocks.
func (s *Session) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Submit submits a job to the manager.
func (s *Session) Submit(ctx context.Context, spec *jobspec.Jobspec, waitable bool) (cocowait.JobID, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.WithStack(err)
	}
	return s.m.submit(s, spec, waitable)
}

// WaitAny waits for one of the session's waitable jobs to finish,
// and returns its result. A result is returned only once.
func (s *Session) WaitAny(ctx context.Context) (*cocowait.JobResult, error) {
	m := s.m
	for {
		m.Lock()
		if m.closed {
			m.Unlock()
			return nil, errors.Wrap(cocowait.ErrConnection, "job manager is closed")
		}
		if s.closed {
			// pass it on to the next waiter.
			s.signal()
			m.Unlock()
			return nil, errors.Wrap(cocowait.ErrConnection, "session is closed")
		}
		if s.outstanding == 0 {
			m.Unlock()
			return nil, errors.Wrapf(cocowait.ErrNoOutstandingJobs, "session %v", s.id)
		}
		id, ok := s.done.Pop()
		if ok {
			s.outstanding--
			m.metrics.outstanding.Dec()
			if s.done.Len() != 0 {
				// let another waiter take the rest.
				s.signal()
			}
			res := m.job[id].Result()
			m.Unlock()
			return res, nil
		}
		m.Unlock()

		select {
		case <-s.notify:
		case <-m.ctx.Done():
		case <-ctx.Done():
			return nil, errors.WithStack(ctx.Err())
		}
	}
}

// Close closes the session. Outstanding jobs keep running,
// but their results are no longer collected.
// It is ok to call it multiple times.
func (s *Session) Close() error {
	m := s.m
	m.Lock()
	defer m.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	delete(m.session, s.id)
	m.metrics.outstanding.Sub(float64(s.outstanding))
	m.metrics.sessions.Dec()
	m.log.Debug("session closed", "session", s.id, "outstanding", s.outstanding)
	s.signal()
	return nil
}
