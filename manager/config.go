package manager

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// WorkerGroup is a group of worker slots serving the same queues.
type WorkerGroup struct {
	Name string

	// Slots is the number of jobs the group runs at the same time.
	Slots int

	// ServeTargets are the queues the group serves.
	// "*" serves every queue, including jobs that don't name a queue.
	ServeTargets []string
}

// Serves reports whether the group can run a job of the target queue.
func (g *WorkerGroup) Serves(target string) bool {
	for _, t := range g.ServeTargets {
		if t == "*" || t == target {
			return true
		}
	}
	return false
}

// Config configures a Manager.
type Config struct {
	Groups []*WorkerGroup

	// Registerer registers the manager's metrics.
	// Metrics are still counted, but not exported, when it is nil.
	Registerer prometheus.Registerer
}

// DefaultConfig returns a config with one group of the given slots serving every queue.
func DefaultConfig(slots int) Config {
	if slots < 1 {
		slots = 1
	}
	return Config{
		Groups: []*WorkerGroup{
			{Name: "local", Slots: slots, ServeTargets: []string{"*"}},
		},
	}
}

// Validate checks the config can make a working Manager.
func (c Config) Validate() error {
	if len(c.Groups) == 0 {
		return errors.New("need at least one worker group")
	}
	seen := make(map[string]bool)
	for _, g := range c.Groups {
		if g.Name == "" {
			return errors.New("worker group name is empty")
		}
		if seen[g.Name] {
			return errors.Errorf("worker group defined twice: %v", g.Name)
		}
		seen[g.Name] = true
		if g.Slots < 1 {
			return errors.Errorf("worker group %v: slots should be positive, got %d", g.Name, g.Slots)
		}
		if len(g.ServeTargets) == 0 {
			return errors.Errorf("worker group %v: serves no target", g.Name)
		}
	}
	return nil
}
