package testutil

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/vk/cupidrun/internal/task"
)

// RecordingRunner is a runner for tests. It records the execution time and
// parameters of each task it runs and can be told to fail specific tasks.
type RecordingRunner struct {
	mu      sync.Mutex
	records map[string]*ExecutionRecord
	started []string

	sleepDuration  time.Duration
	failures       map[string]error
	completionChan chan<- string
}

// NewRecordingRunner creates a runner that sleeps for sleep on every task.
func NewRecordingRunner(sleep time.Duration) *RecordingRunner {
	return &RecordingRunner{
		records:       make(map[string]*ExecutionRecord),
		sleepDuration: sleep,
		failures:      make(map[string]error),
	}
}

// FailOn makes the named task return err.
func (r *RecordingRunner) FailOn(name string, err error) *RecordingRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[name] = err
	return r
}

// NotifyOn sends the name of every finished task on ch.
func (r *RecordingRunner) NotifyOn(ch chan<- string) *RecordingRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completionChan = ch
	return r
}

// Run implements the runner interface used by the executor.
func (r *RecordingRunner) Run(ctx context.Context, t task.Descriptor) error {
	startTime := time.Now()
	r.mu.Lock()
	r.started = append(r.started, t.Name)
	failure := r.failures[t.Name]
	ch := r.completionChan
	r.mu.Unlock()

	if r.sleepDuration > 0 {
		select {
		case <-time.After(r.sleepDuration):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	endTime := time.Now()

	r.mu.Lock()
	r.records[t.Name] = &ExecutionRecord{Start: startTime, End: endTime, Params: t.Params, Kernel: t.Kernel}
	r.mu.Unlock()

	if ch != nil {
		ch <- t.Name
	}
	return failure
}

// Record returns the record of the named task, or nil if it never ran.
func (r *RecordingRunner) Record(name string) *ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[name]
}

// Started returns task names in the order they started.
func (r *RecordingRunner) Started() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.started)
}
