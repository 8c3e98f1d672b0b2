package jobspec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const renderSpec = `
version: 1
resources:
  - type: node
    count: 2
    exclusive: true
    with:
      - type: slot
        count: 3
        label: task
        with:
          - type: core
            count: 4
          - type: gpu
            count: 1
tasks:
  - command: ["hostname", "-s"]
    slot: task
    count:
      per_slot: 1
attributes:
  system:
    duration: 60
    queue: render
    urgency: 20
`

func TestFromCommand(t *testing.T) {
	js := FromCommand([]string{"/bin/true"})
	require.NoError(t, js.Validate())
	assert.Equal(t, []string{"/bin/true"}, js.Command())
	assert.Equal(t, "/bin/true", js.String())
	assert.Equal(t, DefaultUrgency, js.Urgency())
	assert.Equal(t, "", js.Queue())
	assert.Equal(t, time.Duration(0), js.Duration())
	assert.Equal(t, 1, js.NumTasks())

	c, err := js.Counts()
	require.NoError(t, err)
	assert.Equal(t, Counts{NSlots: 1, SlotSize: 1}, c)
}

func TestFromCommandCopiesArgs(t *testing.T) {
	cmd := []string{"echo", "a"}
	js := FromCommand(cmd)
	cmd[1] = "b"
	assert.Equal(t, []string{"echo", "a"}, js.Command())
}

func TestEncodeDecode(t *testing.T) {
	js := FromCommand([]string{"/bin/false", "--flag"})
	data, err := js.Encode()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, js, got)
}

func TestDecodeJSON(t *testing.T) {
	data := []byte(`{"version":1,"resources":[{"type":"slot","count":1,"label":"task","with":[{"type":"core","count":1}]}],"tasks":[{"command":["/bin/true"],"slot":"task","count":{"per_slot":1}}],"attributes":{"system":{"duration":0}}}`)
	js, err := Decode(data)
	require.NoError(t, err)
	require.NoError(t, js.Validate())
	assert.Equal(t, FromCommand([]string{"/bin/true"}), js)
}

func TestCounts(t *testing.T) {
	js, err := Decode([]byte(renderSpec))
	require.NoError(t, err)
	require.NoError(t, js.Validate())

	c, err := js.Counts()
	require.NoError(t, err)
	want := Counts{
		NNodes:    2,
		NSlots:    6,
		SlotSize:  4,
		SlotGPUs:  1,
		Exclusive: true,
		Duration:  60,
	}
	assert.Equal(t, want, c)
	assert.Equal(t, "render", js.Queue())
	assert.Equal(t, 20, js.Urgency())
	assert.Equal(t, time.Minute, js.Duration())
	assert.Equal(t, 6, js.NumTasks())
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		label  string
		modify func(js *Jobspec)
		want   string
	}{
		{
			label:  "version",
			modify: func(js *Jobspec) { js.Version = 2 },
			want:   "version 2",
		},
		{
			label:  "no task",
			modify: func(js *Jobspec) { js.Tasks = nil },
			want:   "exactly one task",
		},
		{
			label:  "empty command",
			modify: func(js *Jobspec) { js.Tasks[0].Command = nil },
			want:   "command is empty",
		},
		{
			label:  "no resources",
			modify: func(js *Jobspec) { js.Resources = nil },
			want:   "top level resource",
		},
		{
			label:  "no cores",
			modify: func(js *Jobspec) { js.Resources[0].With = nil },
			want:   "slot has no cores",
		},
		{
			label:  "unknown type",
			modify: func(js *Jobspec) { js.Resources[0].Type = "socket" },
			want:   "unexpected resource type",
		},
		{
			label:  "zero slots",
			modify: func(js *Jobspec) { js.Resources[0].Count = 0 },
			want:   "slot count should be positive",
		},
		{
			label:  "negative duration",
			modify: func(js *Jobspec) { js.Attributes.System.Duration = -1 },
			want:   "duration cannot be negative",
		},
		{
			label: "urgency",
			modify: func(js *Jobspec) {
				u := 32
				js.Attributes.System.Urgency = &u
			},
			want: "urgency should be",
		},
	}
	for _, c := range cases {
		js := FromCommand([]string{"/bin/true"})
		c.modify(js)
		err := js.Validate()
		if assert.Error(t, err, c.label) {
			assert.Contains(t, err.Error(), c.want, c.label)
		}
	}
}
