package dag

import (
	"errors"
	"fmt"
)

var (
	// ErrCycle is returned when the dependencies form a cycle.
	ErrCycle = errors.New("dependency cycle")
	// ErrMissingDependency is returned when a task depends on a name that
	// is not registered.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrDuplicateTask is returned when two tasks share a name.
	ErrDuplicateTask = errors.New("duplicate task")
)

// TaskError reports the failure of a single task.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}
