package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/cupidrun/internal/task"
)

// ErrUnknownKind is returned for tasks whose kind has no registered runner.
var ErrUnknownKind = errors.New("no runner registered for task kind")

// Runner executes a single task.
type Runner interface {
	Run(ctx context.Context, t task.Descriptor) error
}

// Registry dispatches tasks to the runner registered for their kind.
type Registry struct {
	mu      sync.RWMutex
	runners map[task.Kind]Runner
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{runners: make(map[task.Kind]Runner)}
}

// Register sets the runner for kind, replacing any previous one.
func (r *Registry) Register(kind task.Kind, runner Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[kind] = runner
}

// Lookup returns the runner for kind.
func (r *Registry) Lookup(kind task.Kind) (Runner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runner, ok := r.runners[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return runner, nil
}

// Run executes t with the runner registered for its kind.
func (r *Registry) Run(ctx context.Context, t task.Descriptor) error {
	runner, err := r.Lookup(t.Kind)
	if err != nil {
		return err
	}
	return runner.Run(ctx, t)
}
