package task

import "slices"

// Kind selects the runner that executes a task.
type Kind string

const (
	KindNotebook Kind = "notebook"
	KindScript   Kind = "script"
)

// Descriptor is a fully resolved unit of work. Builders hand out fresh
// descriptors; nothing mutates them afterwards.
type Descriptor struct {
	// Name is unique within a run.
	Name string
	Kind Kind

	Source  string
	Product string
	Cwd     string
	Kernel  string

	Params       map[string]any
	Dependencies []string
}

// Clone returns a deep copy of d.
func (d Descriptor) Clone() Descriptor {
	d.Params = deepCopyMap(d.Params)
	d.Dependencies = slices.Clone(d.Dependencies)
	return d
}
