package cocowait

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	cases := []struct {
		n       int
		nPass   int
		nFailed int
	}{
		{n: 0, nPass: 0, nFailed: 0},
		{n: 1, nPass: 0, nFailed: 1},
		{n: 2, nPass: 1, nFailed: 1},
		{n: 7, nPass: 3, nFailed: 4},
		{n: 10, nPass: 5, nFailed: 5},
	}
	for _, c := range cases {
		out := &bytes.Buffer{}
		s := newFakeSession(int64(c.n))
		r, err := Run(context.Background(), s, RunOptions{N: c.n, Out: out})
		require.NoError(t, err, "n=%d", c.n)
		assert.Equal(t, c.n, len(s.submitted), "n=%d", c.n)
		assert.Equal(t, c.n, s.waits, "n=%d", c.n)
		assert.Equal(t, c.nPass, r.Succeeded(), "n=%d", c.n)
		assert.Equal(t, c.nFailed, r.Failed(), "n=%d", c.n)

		o := out.String()
		assert.Equal(t, c.n, strings.Count(o, "submit: "), "n=%d", c.n)
		assert.Equal(t, c.nPass, strings.Count(o, " Success\n"), "n=%d", c.n)
		assert.Equal(t, c.nFailed, strings.Count(o, " Error: "), "n=%d", c.n)
		for _, id := range s.submitted {
			assert.Equal(t, 1, strings.Count(o, "wait: "+string(id)+" "), "n=%d id=%s", c.n, id)
		}
	}
}

func TestRunSubmitFailureSkipsDrain(t *testing.T) {
	s := newFakeSession(1)
	s.submitErrAt = 1
	s.submitErr = errors.WithStack(ErrConnection)
	r, err := Run(context.Background(), s, RunOptions{N: 3})
	require.Error(t, err)
	assert.Nil(t, r)
	assert.True(t, errors.Is(err, ErrConnection))
	assert.Equal(t, 0, s.waits)
}

func TestRunDetectsDuplicate(t *testing.T) {
	s := newFakeSession(1)
	s.duplicate = true
	r, err := Run(context.Background(), s, RunOptions{N: 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "don't match")
	assert.Equal(t, 4, r.Len())
}

func TestReportVerify(t *testing.T) {
	r := &Report{}
	r.add(&JobResult{ID: "b", Success: true})
	r.add(&JobResult{ID: "a"})
	assert.NoError(t, r.Verify([]JobID{"a", "b"}))

	err := r.Verify([]JobID{"a", "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing [c]")
	assert.Contains(t, err.Error(), "unexpected [b]")

	r.add(&JobResult{ID: "a"})
	err = r.Verify([]JobID{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected [a]")
	assert.Equal(t, 1, r.Succeeded())
	assert.Equal(t, 2, r.Failed())
}
