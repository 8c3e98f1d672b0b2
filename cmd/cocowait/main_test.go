package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/imagvfx/cocowait/lib/logging"
	"github.com/imagvfx/cocowait/manager"
	"github.com/imagvfx/cocowait/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func outputLines(out string) []string {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// startFarm serves an in-process farm over grpc, and returns its address.
func startFarm(t *testing.T) (*manager.Manager, string) {
	t.Helper()
	m, err := manager.New(manager.DefaultConfig(2), nil, logging.Nop())
	require.NoError(t, err)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	g := remote.NewServer(m, nil).NewGRPCServer(nil)
	go g.Serve(lis)
	t.Cleanup(func() {
		m.Close()
		g.Stop()
	})
	return m, lis.Addr().String()
}

func TestRemoteBatch(t *testing.T) {
	m, addr := startFarm(t)
	out, err := execute(t, "--addr", addr, "4")
	require.NoError(t, err)
	lines := outputLines(out)
	require.Len(t, lines, 8)
	assert.Len(t, m.Jobs(manager.JobFilter{}), 4)
}

func TestSubmit(t *testing.T) {
	m, addr := startFarm(t)
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: 1
resources:
  - type: slot
    count: 1
    label: task
    with:
      - type: core
        count: 1
tasks:
  - command: ["sh", "-c", "exit 4"]
    slot: task
    count:
      per_slot: 1
attributes:
  system:
    duration: 10
`), 0644))

	out, err := execute(t, "submit", "--addr", addr, "--wait", path)
	require.NoError(t, err)
	lines := outputLines(out)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "submit: "), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], " Error: task(s) exited with exit code 4"), lines[1])

	out, err = execute(t, "submit", "--addr", addr, path)
	require.NoError(t, err)
	assert.Len(t, outputLines(out), 1)
	assert.Len(t, m.Jobs(manager.JobFilter{}), 2)

	_, err = execute(t, "submit", "--addr", addr, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLocalBatch(t *testing.T) {
	out, err := execute(t, "--local", "--slots", "3", "6")
	require.NoError(t, err)
	lines := outputLines(out)
	require.Len(t, lines, 12)

	nSubmit, nSuccess, nError := 0, 0, 0
	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "submit: "):
			nSubmit++
		case strings.HasPrefix(l, "wait: ") && strings.HasSuffix(l, " Success"):
			nSuccess++
		case strings.HasPrefix(l, "wait: ") && strings.HasSuffix(l, " Error: task(s) exited with exit code 1"):
			nError++
		default:
			t.Fatalf("unexpected line: %q", l)
		}
	}
	assert.Equal(t, 6, nSubmit)
	assert.Equal(t, 3, nSuccess)
	assert.Equal(t, 3, nError)
	for _, l := range lines[:6] {
		assert.True(t, strings.HasPrefix(l, "submit: "), "submissions should come first: %q", l)
	}
}

func TestLocalBatchEdges(t *testing.T) {
	out, err := execute(t, "--local", "0")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = execute(t, "--local", "1")
	require.NoError(t, err)
	lines := outputLines(out)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "submit: "))
	assert.True(t, strings.HasSuffix(lines[0], " /bin/false"), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], " Error: task(s) exited with exit code 1"), lines[1])
}

func TestLocalBatchCommands(t *testing.T) {
	out, err := execute(t, "--local", "--true", "sh -c true", "--false", "sh -c false", "2")
	require.NoError(t, err)
	lines := outputLines(out)
	require.Len(t, lines, 4)
	assert.Contains(t, out, " sh -c true\n")
}

func TestBadArgs(t *testing.T) {
	for _, args := range [][]string{
		{"--local", "abc"},
		{"--local", "--", "-1"},
		{"--local", "1", "2"},
		{"--local", "--true", "", "2"},
	} {
		_, err := execute(t, args...)
		assert.Error(t, err, args)
	}
}

func TestList(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/jobs", r.URL.Path)
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode([]*manager.JobInfo{
			{ID: "cn1q3i6c5b2hr8f0ks10", Status: "done", Command: []string{"/bin/true"}},
			{ID: "cn1q3i6c5b2hr8f0ks1g", Status: "failed", Command: []string{"/bin/false"}, Errstr: "task(s) exited with exit code 1"},
		})
	}))
	defer srv.Close()

	out, err := execute(t, "list", "--http", strings.TrimPrefix(srv.URL, "http://"), "--status", "failed")
	require.NoError(t, err)
	assert.Equal(t, "status=failed", gotQuery)
	assert.Equal(t, []string{
		"[cn1q3i6c5b2hr8f0ks10] done    - /bin/true",
		"[cn1q3i6c5b2hr8f0ks1g] failed  - /bin/false (task(s) exited with exit code 1)",
	}, outputLines(out))
}

func TestListEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()
	out, err := execute(t, "list", "--http", strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	assert.Equal(t, "no job to show\n", out)
}

func TestCancel(t *testing.T) {
	var mu sync.Mutex
	canceled := []string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/cancel" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		id := r.FormValue("id")
		if id == "missing" {
			http.Error(w, "cannot find the job: missing", http.StatusBadRequest)
			return
		}
		mu.Lock()
		canceled = append(canceled, id)
		mu.Unlock()
	}))
	defer srv.Close()
	addr := strings.TrimPrefix(srv.URL, "http://")

	out, err := execute(t, "cancel", "--http", addr, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "canceled: a\ncanceled: b\n", out)
	assert.Equal(t, []string{"a", "b"}, canceled)

	_, err = execute(t, "cancel", "--http", addr, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot find the job: missing")

	_, err = execute(t, "cancel", "--http", addr)
	assert.Error(t, err)
}

func TestCutOrFill(t *testing.T) {
	cases := []struct {
		s        string
		n        int
		fillLeft bool
		want     string
	}{
		{"done", 7, false, "done   "},
		{"done", 7, true, "   done"},
		{"waiting", 4, false, "wait"},
		{"done", -1, false, "done"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, cutOrFill(c.s, c.n, c.fillLeft))
	}
}
