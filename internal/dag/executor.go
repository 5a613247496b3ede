package dag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/cupidrun/internal/ctxlog"
	"github.com/vk/cupidrun/internal/task"
	"golang.org/x/sync/errgroup"
)

// State is the execution state of a task.
type State int32

const (
	Pending State = iota
	Running
	Done
	Failed
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Runner executes a single task.
type Runner interface {
	Run(ctx context.Context, t task.Descriptor) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, t task.Descriptor) error

func (f RunnerFunc) Run(ctx context.Context, t task.Descriptor) error {
	return f(ctx, t)
}

// Executor runs the tasks of a graph once.
type Executor struct {
	graph      *Graph
	runner     Runner
	numWorkers int
	serial     bool

	started atomic.Bool
	states  map[string]*taskState
}

type taskState struct {
	state    atomic.Int32
	depCount atomic.Int32
	skipOnce sync.Once
}

// NewExecutor returns an executor for graph. With serial set, tasks run one
// at a time in TopologicalOrder and numWorkers is ignored.
func NewExecutor(graph *Graph, runner Runner, numWorkers int, serial bool) *Executor {
	if numWorkers < 1 {
		numWorkers = 1
	}
	states := make(map[string]*taskState, graph.Len())
	for _, id := range graph.Nodes() {
		states[id] = &taskState{}
	}
	return &Executor{
		graph:      graph,
		runner:     runner,
		numWorkers: numWorkers,
		serial:     serial,
		states:     states,
	}
}

// State returns the current state of the named task.
func (e *Executor) State(id string) State {
	s, ok := e.states[id]
	if !ok {
		return Pending
	}
	return State(s.state.Load())
}

// Run executes the graph and blocks until every task has finished or been
// skipped. The first task failure cancels the remaining work; the returned
// error wraps that failure as a *TaskError.
func (e *Executor) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return errors.New("executor has already run")
	}

	var err error
	if e.serial {
		err = e.runSerial(ctx)
	} else {
		err = e.runConcurrent(ctx)
	}
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("execution interrupted: %w", ctx.Err())
	}
	return nil
}

func (e *Executor) runSerial(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	order, err := e.graph.TopologicalOrder()
	if err != nil {
		return err
	}
	logger.Debug("Running tasks serially.", "order", order)

	for i, id := range order {
		if ctx.Err() != nil {
			e.skip(ctx, order[i:], "context canceled")
			return nil
		}
		if err := e.execute(ctx, id); err != nil {
			e.skip(ctx, order[i+1:], fmt.Sprintf("upstream failure of %q", id))
			return err
		}
	}
	return nil
}

func (e *Executor) runConcurrent(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	ids := e.graph.Nodes()

	readyChan := make(chan string, len(ids))
	var pending sync.WaitGroup
	pending.Add(len(ids))

	logger.Debug("Initializing executor, finding root nodes...")
	for _, id := range ids {
		deps, _ := e.graph.Dependencies(id)
		e.states[id].depCount.Store(int32(len(deps)))
		if len(deps) == 0 {
			logger.Debug("Found root node.", "task", id)
			readyChan <- id
		}
	}

	go func() {
		pending.Wait()
		close(readyChan)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.numWorkers)
	logger.Debug("Starting worker pool.", "workers", e.numWorkers)

	for id := range readyChan {
		if gctx.Err() != nil {
			if e.skipOne(ctx, id, "context canceled") {
				e.skipDependents(ctx, id, &pending)
				pending.Done()
			}
			continue
		}
		g.Go(func() error {
			defer pending.Done()
			if err := e.execute(gctx, id); err != nil {
				e.skipDependents(ctx, id, &pending)
				return err
			}
			dependents, _ := e.graph.Dependents(id)
			for _, dep := range dependents {
				if e.states[dep].depCount.Add(-1) == 0 {
					logger.Debug("Unlocking dependent node.", "task", dep, "dependency", id)
					readyChan <- dep
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// execute runs one task and records its outcome.
func (e *Executor) execute(ctx context.Context, id string) error {
	ctx = ctxlog.With(ctx, "task", id)
	logger := ctxlog.FromContext(ctx)
	st := e.states[id]
	t, _ := e.graph.Task(id)

	st.state.Store(int32(Running))
	logger.Info("Task started.", "kind", t.Kind)
	if err := e.runner.Run(ctx, t); err != nil {
		st.state.Store(int32(Failed))
		logger.Error("Task failed.", "error", err)
		return &TaskError{Task: id, Err: err}
	}
	st.state.Store(int32(Done))
	logger.Info("Task completed.")
	return nil
}

// skipDependents recursively marks every downstream task as skipped.
func (e *Executor) skipDependents(ctx context.Context, id string, pending *sync.WaitGroup) {
	dependents, _ := e.graph.Dependents(id)
	for _, dep := range dependents {
		e.states[dep].skipOnce.Do(func() {
			e.markSkipped(ctx, dep, fmt.Sprintf("upstream failure of %q", id))
			pending.Done()
			e.skipDependents(ctx, dep, pending)
		})
	}
}

// skipOne marks a single task as skipped and reports whether this call did it.
func (e *Executor) skipOne(ctx context.Context, id, reason string) bool {
	skipped := false
	e.states[id].skipOnce.Do(func() {
		e.markSkipped(ctx, id, reason)
		skipped = true
	})
	return skipped
}

func (e *Executor) skip(ctx context.Context, ids []string, reason string) {
	for _, id := range ids {
		e.skipOne(ctx, id, reason)
	}
}

func (e *Executor) markSkipped(ctx context.Context, id, reason string) {
	e.states[id].state.Store(int32(Skipped))
	ctxlog.FromContext(ctx).Warn("Skipping task.", "task", id, "reason", reason)
}
