package dag

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/cupidrun/internal/ctxlog"
	"github.com/vk/cupidrun/internal/task"
)

// Build constructs a complete, validated dependency graph from task
// descriptors. Edges come only from each task's declared dependencies.
func Build(ctx context.Context, tasks []task.Descriptor) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "tasks", len(tasks))
	graph := New()

	// First pass: register every task.
	for _, t := range tasks {
		if err := graph.AddNode(t); err != nil {
			return nil, err
		}
	}
	logger.Debug("Build: Node creation complete.", "node_count", graph.Len())

	// Second pass: link dependencies, collecting every unknown name so the
	// error reports all of them at once.
	var missing []string
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if _, ok := graph.nodes[dep]; !ok {
				missing = append(missing, fmt.Sprintf("%s (needed by %s)", dep, t.Name))
				continue
			}
			if err := graph.AddEdge(dep, t.Name); err != nil {
				return nil, err
			}
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingDependency, strings.Join(missing, ", "))
	}
	logger.Debug("Build: Node linking complete.", "edges", len(graph.Edges()))

	if err := graph.DetectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	logger.Debug("Build: Cycle detection passed.")

	return graph, nil
}
