package cocowait

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/imagvfx/cocowait/jobspec"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSubmitter(out *bytes.Buffer) *BatchSubmitter {
	return &BatchSubmitter{
		Pass: jobspec.FromCommand([]string{"/bin/true"}),
		Fail: jobspec.FromCommand([]string{"/bin/false"}),
		Out:  out,
	}
}

func TestSpecFor(t *testing.T) {
	b := newTestSubmitter(&bytes.Buffer{})
	cases := []struct {
		n     int
		nPass int
	}{
		{n: 0, nPass: 0},
		{n: 1, nPass: 0},
		{n: 2, nPass: 1},
		{n: 3, nPass: 1},
		{n: 10, nPass: 5},
		{n: 11, nPass: 5},
	}
	for _, c := range cases {
		for i := 0; i < c.n; i++ {
			want := b.Fail
			if i < c.nPass {
				want = b.Pass
			}
			assert.Same(t, want, b.SpecFor(i, c.n), "n=%d i=%d", c.n, i)
		}
	}
}

func TestSubmit(t *testing.T) {
	out := &bytes.Buffer{}
	b := newTestSubmitter(out)
	s := newFakeSession(1)

	ids, err := b.Submit(context.Background(), s, 10)
	require.NoError(t, err)
	assert.Equal(t, s.submitted, ids)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 10)
	for i, l := range lines {
		cmd := "/bin/false"
		if i < 5 {
			cmd = "/bin/true"
		}
		assert.Equal(t, "submit: "+string(ids[i])+" "+cmd, l)
	}
}

func TestSubmitZero(t *testing.T) {
	out := &bytes.Buffer{}
	s := newFakeSession(1)
	ids, err := newTestSubmitter(out).Submit(context.Background(), s, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, s.submitted)
	assert.Empty(t, out.String())
}

func TestSubmitNegative(t *testing.T) {
	_, err := newTestSubmitter(&bytes.Buffer{}).Submit(context.Background(), newFakeSession(1), -1)
	assert.Error(t, err)
}

func TestSubmitFailFast(t *testing.T) {
	cases := []struct {
		label string
		err   error
		want  error
	}{
		{
			label: "rejected",
			err:   errors.Wrap(ErrSubmission, "invalid jobspec"),
			want:  ErrSubmission,
		},
		{
			label: "connection",
			err:   errors.WithStack(ErrConnection),
			want:  ErrConnection,
		},
		{
			label: "unknown",
			err:   errors.New("boom"),
			want:  ErrSubmission,
		},
	}
	for _, c := range cases {
		out := &bytes.Buffer{}
		s := newFakeSession(1)
		s.submitErrAt = 4
		s.submitErr = c.err

		ids, err := newTestSubmitter(out).Submit(context.Background(), s, 10)
		require.Error(t, err, c.label)
		assert.True(t, errors.Is(err, c.want), "%s: %v", c.label, err)
		assert.Contains(t, err.Error(), "submit job 4 of 10", c.label)
		assert.Len(t, ids, 3, c.label)
		assert.Equal(t, 3, strings.Count(out.String(), "submit: "), c.label)
	}
}
