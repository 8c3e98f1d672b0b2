package manager

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/imagvfx/cocowait/jobspec"
	"github.com/imagvfx/cocowait/lib/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorker() *Worker {
	g := &WorkerGroup{Name: "test", Slots: 1, ServeTargets: []string{"*"}}
	return newWorker("test-0", g, logging.Nop())
}

func TestWorkerExecute(t *testing.T) {
	w := testWorker()
	cases := []struct {
		label string
		cmd   []string
		want  outcome
	}{
		{"true", []string{"/bin/true"}, outcome{}},
		{"false", []string{"/bin/false"}, outcome{exitCode: 1, errstr: "task(s) exited with exit code 1"}},
		{"exit 3", []string{"sh", "-c", "exit 3"}, outcome{exitCode: 3, errstr: "task(s) exited with exit code 3"}},
	}
	for _, c := range cases {
		got := w.execute(context.Background(), jobspec.FromCommand(c.cmd))
		assert.Equal(t, c.want, got, c.label)
	}
}

func TestWorkerExecuteMissingCommand(t *testing.T) {
	w := testWorker()
	got := w.execute(context.Background(), jobspec.FromCommand([]string{"/no/such/command"}))
	assert.Equal(t, -1, got.exitCode)
	assert.True(t, strings.HasPrefix(got.errstr, "/no/such/command: "), got.errstr)

	got = w.execute(context.Background(), nil)
	assert.NotEmpty(t, got.errstr)
}

func TestWorkerExecuteContext(t *testing.T) {
	w := testWorker()
	js := jobspec.FromCommand([]string{"sleep", "5"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	got := w.execute(ctx, js)
	assert.Equal(t, outcome{exitCode: -1, errstr: "job exceeded its time limit"}, got)

	ctx, cancel = context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	got = w.execute(ctx, js)
	assert.Equal(t, outcome{exitCode: -1, errstr: "canceled"}, got)
}

func TestWorkerExecuteEnvironment(t *testing.T) {
	w := testWorker()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), nil, 0644))

	js := jobspec.FromCommand([]string{"sh", "-c", `test "$COCO_TEST" = yes && test -f marker`})
	js.Attributes.System.Cwd = dir
	js.Attributes.System.Environment = map[string]string{"COCO_TEST": "yes"}
	assert.Equal(t, outcome{}, w.execute(context.Background(), js))

	js.Attributes.System.Environment = nil
	assert.Equal(t, 1, w.execute(context.Background(), js).exitCode)
}

func TestWorkerExecuteTasks(t *testing.T) {
	w := testWorker()
	out := filepath.Join(t.TempDir(), "out")
	js := jobspec.FromCommand([]string{"sh", "-c", "echo x >> " + out})
	js.Tasks[0].Count = jobspec.TaskCount{Total: 3}
	require.Equal(t, outcome{}, w.execute(context.Background(), js))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "x\nx\nx\n", string(data))
}
