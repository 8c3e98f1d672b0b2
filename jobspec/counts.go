package jobspec

import "github.com/pkg/errors"

// Counts is a summary of a jobspec's resource request.
type Counts struct {
	// NNodes is the number of nodes requested, or 0 if nodes aren't specified.
	NNodes int

	// NSlots is the total number of slots, across all nodes.
	NSlots int

	// SlotSize is the number of cores per slot.
	SlotSize int

	// SlotGPUs is the number of gpus per slot.
	SlotGPUs int

	// Exclusive is true when the node should be allocated exclusively.
	Exclusive bool

	// Duration is attributes.system.duration in seconds.
	Duration float64
}

// Counts walks the resource tree and summarizes it.
// The tree should be either slot>core[,gpu] or node>slot>core[,gpu].
func (js *Jobspec) Counts() (Counts, error) {
	c := Counts{}
	if js.Version != Version {
		return c, errors.Errorf("jobspec version %d is not supported", js.Version)
	}
	if len(js.Resources) != 1 {
		return c, errors.Errorf("jobspec should have exactly one top level resource, got %d", len(js.Resources))
	}
	r := js.Resources[0]
	if r.Type == "node" {
		if r.Count < 1 {
			return c, errors.Errorf("node count should be positive, got %d", r.Count)
		}
		c.NNodes = r.Count
		c.Exclusive = r.Exclusive
		if len(r.With) != 1 {
			return c, errors.New("node should contain exactly one slot")
		}
		r = r.With[0]
	}
	if r.Type != "slot" {
		return c, errors.Errorf("unexpected resource type: %q", r.Type)
	}
	if r.Count < 1 {
		return c, errors.Errorf("slot count should be positive, got %d", r.Count)
	}
	for _, w := range r.With {
		if w.Count < 1 {
			return c, errors.Errorf("%s count should be positive, got %d", w.Type, w.Count)
		}
		switch w.Type {
		case "core":
			c.SlotSize = w.Count
		case "gpu":
			c.SlotGPUs = w.Count
		default:
			return c, errors.Errorf("unexpected resource type in slot: %q", w.Type)
		}
	}
	if c.SlotSize == 0 {
		return c, errors.New("slot has no cores")
	}
	c.NSlots = r.Count
	if c.NNodes > 0 {
		c.NSlots *= c.NNodes
	}
	c.Duration = js.Attributes.System.Duration
	if c.Duration < 0 {
		return c, errors.Errorf("duration cannot be negative, got %v", c.Duration)
	}
	return c, nil
}
