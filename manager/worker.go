package manager

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/imagvfx/cocowait"
	"github.com/imagvfx/cocowait/jobspec"
	"github.com/imagvfx/cocowait/lib/logging"
	"github.com/pkg/errors"
)

type WorkerStatus int

const (
	WorkerIdle = WorkerStatus(iota)
	WorkerRunning
)

// String represents WorkerStatus as string.
func (s WorkerStatus) String() string {
	return map[WorkerStatus]string{
		WorkerIdle:    "idle",
		WorkerRunning: "running",
	}[s]
}

// Worker is a slot who continuously takes a job and run it's commands.
type Worker struct {
	// Name is unique in a manager. It is "<group>-<n>".
	Name string

	group *WorkerGroup
	log   *logging.Logger

	// status and job should be used/changed after hold the Manager's lock.
	status WorkerStatus

	// job is the job the worker is currently working.
	// The worker is in idle when it is empty.
	job cocowait.JobID
}

func newWorker(name string, g *WorkerGroup, log *logging.Logger) *Worker {
	return &Worker{
		Name:   name,
		group:  g,
		log:    log.With("worker", name),
		status: WorkerIdle,
	}
}

// outcome is what a worker learned from running a job.
type outcome struct {
	exitCode int

	// errstr is empty when every task succeeded.
	errstr string
}

const (
	errstrTimeout  = "job exceeded its time limit"
	errstrCanceled = "canceled"
	errstrStopped  = "job manager stopped"
	errstrRestart  = "manager restarted"
)

// execute runs the job's task command as many times as the job asks.
// It stops at the first failing task. ctx carries the job's time limit
// and is canceled when the job is canceled.
func (w *Worker) execute(ctx context.Context, js *jobspec.Jobspec) outcome {
	if js == nil || len(js.Command()) == 0 {
		return outcome{exitCode: -1, errstr: "job has no command"}
	}
	cmd := js.Command()
	sys := js.Attributes.System
	var env []string
	if len(sys.Environment) != 0 {
		env = os.Environ()
		for k, v := range sys.Environment {
			env = append(env, k+"="+v)
		}
	}
	n := js.NumTasks()
	for i := 0; i < n; i++ {
		c := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
		c.Dir = sys.Cwd
		c.Env = env
		out, err := c.CombinedOutput()
		if len(out) != 0 {
			w.log.Debug("task output", "task", i, "output", string(out))
		}
		if err == nil {
			continue
		}
		switch ctx.Err() {
		case context.DeadlineExceeded:
			return outcome{exitCode: -1, errstr: errstrTimeout}
		case context.Canceled:
			return outcome{exitCode: -1, errstr: errstrCanceled}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			if code < 0 {
				return outcome{exitCode: code, errstr: "task(s) were signaled"}
			}
			return outcome{exitCode: code, errstr: fmt.Sprintf("task(s) exited with exit code %d", code)}
		}
		return outcome{exitCode: -1, errstr: fmt.Sprintf("%s: %v", cmd[0], err)}
	}
	return outcome{}
}
