// Package jobspec reads and writes version 1 jobspecs, the YAML document a
// job manager accepts as the description of one job.
package jobspec

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Version is the only jobspec version understood by this package.
const Version = 1

// DefaultUrgency is used when a jobspec doesn't set attributes.system.urgency.
const DefaultUrgency = 16

// MaxUrgency is the highest urgency a job may ask for.
const MaxUrgency = 31

// Jobspec describes one job: what resources it asks for and what it runs.
type Jobspec struct {
	Version    int         `yaml:"version" json:"version"`
	Resources  []*Resource `yaml:"resources" json:"resources"`
	Tasks      []*Task     `yaml:"tasks" json:"tasks"`
	Attributes Attributes  `yaml:"attributes" json:"attributes"`
}

// Resource is a node in the resource request tree.
// Known types are node, slot, core and gpu.
type Resource struct {
	Type      string      `yaml:"type" json:"type"`
	Count     int         `yaml:"count" json:"count"`
	Label     string      `yaml:"label,omitempty" json:"label,omitempty"`
	Exclusive bool        `yaml:"exclusive,omitempty" json:"exclusive,omitempty"`
	With      []*Resource `yaml:"with,omitempty" json:"with,omitempty"`
}

// Task is a command and how many copies of it run in the allocated slots.
type Task struct {
	Command []string  `yaml:"command" json:"command"`
	Slot    string    `yaml:"slot" json:"slot"`
	Count   TaskCount `yaml:"count" json:"count"`
}

// TaskCount sets either the number of tasks per slot or the total number of tasks.
type TaskCount struct {
	PerSlot int `yaml:"per_slot,omitempty" json:"per_slot,omitempty"`
	Total   int `yaml:"total,omitempty" json:"total,omitempty"`
}

// Attributes holds the job's attributes.
type Attributes struct {
	System System `yaml:"system" json:"system"`
}

// System holds attributes the job manager acts on.
type System struct {
	// Duration is the time limit of the job in seconds. Zero means unlimited.
	Duration float64 `yaml:"duration" json:"duration"`

	// Queue selects which workers may run the job.
	// Empty queue can be served only by workers serving every queue.
	Queue string `yaml:"queue,omitempty" json:"queue,omitempty"`

	// Urgency orders waiting jobs, higher first.
	Urgency *int `yaml:"urgency,omitempty" json:"urgency,omitempty"`

	Cwd         string            `yaml:"cwd,omitempty" json:"cwd,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// FromCommand creates a jobspec that runs cmd once on a single core.
func FromCommand(cmd []string) *Jobspec {
	c := make([]string, len(cmd))
	copy(c, cmd)
	return &Jobspec{
		Version: Version,
		Resources: []*Resource{
			{
				Type:  "slot",
				Count: 1,
				Label: "task",
				With: []*Resource{
					{Type: "core", Count: 1},
				},
			},
		},
		Tasks: []*Task{
			{
				Command: c,
				Slot:    "task",
				Count:   TaskCount{PerSlot: 1},
			},
		},
	}
}

// Decode parses a jobspec document. JSON documents are accepted as well.
// It doesn't validate the result, call Validate for that.
func Decode(data []byte) (*Jobspec, error) {
	js := &Jobspec{}
	err := yaml.Unmarshal(data, js)
	if err != nil {
		return nil, errors.Wrap(err, "decode jobspec")
	}
	return js, nil
}

// Encode writes the jobspec as a YAML document.
func (js *Jobspec) Encode() ([]byte, error) {
	data, err := yaml.Marshal(js)
	if err != nil {
		return nil, errors.Wrap(err, "encode jobspec")
	}
	return data, nil
}

// Validate checks the jobspec can be run.
func (js *Jobspec) Validate() error {
	if js.Version != Version {
		return errors.Errorf("jobspec version %d is not supported", js.Version)
	}
	if len(js.Tasks) != 1 {
		return errors.Errorf("jobspec should have exactly one task, got %d", len(js.Tasks))
	}
	t := js.Tasks[0]
	if len(t.Command) == 0 || t.Command[0] == "" {
		return errors.New("task command is empty")
	}
	if t.Count.PerSlot < 0 || t.Count.Total < 0 {
		return errors.New("task count cannot be negative")
	}
	_, err := js.Counts()
	if err != nil {
		return err
	}
	u := js.Urgency()
	if u < 0 || u > MaxUrgency {
		return errors.Errorf("urgency should be 0-%d, got %d", MaxUrgency, u)
	}
	return nil
}

// Command returns the command line of the job's task.
// It returns nil when the jobspec has no task.
func (js *Jobspec) Command() []string {
	if len(js.Tasks) == 0 {
		return nil
	}
	return js.Tasks[0].Command
}

// String returns the command line joined by spaces.
func (js *Jobspec) String() string {
	return strings.Join(js.Command(), " ")
}

// Queue returns the queue the job asks for.
func (js *Jobspec) Queue() string {
	return js.Attributes.System.Queue
}

// Urgency returns the job's urgency or DefaultUrgency when not set.
func (js *Jobspec) Urgency() int {
	if js.Attributes.System.Urgency == nil {
		return DefaultUrgency
	}
	return *js.Attributes.System.Urgency
}

// Duration returns the job's time limit. Zero means unlimited.
func (js *Jobspec) Duration() time.Duration {
	return time.Duration(js.Attributes.System.Duration * float64(time.Second))
}

// NumTasks returns how many times the task command runs.
func (js *Jobspec) NumTasks() int {
	if len(js.Tasks) == 0 {
		return 0
	}
	c := js.Tasks[0].Count
	if c.Total > 0 {
		return c.Total
	}
	perSlot := c.PerSlot
	if perSlot == 0 {
		perSlot = 1
	}
	counts, err := js.Counts()
	if err != nil || counts.NSlots == 0 {
		return perSlot
	}
	return perSlot * counts.NSlots
}
