package dag

import (
	"sync"

	"github.com/vk/cupidrun/internal/task"
)

// Graph is a collection of tasks and their dependencies, representing a DAG.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects nodes and order during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by task name.
	nodes map[string]*node
	// order remembers registration order; it only breaks ties.
	order []string
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using task names),
// not by direct struct manipulation.
type node struct {
	id   string
	task task.Descriptor
	// seq is the registration index of the node.
	seq int
	// deps holds the set of nodes that this node depends on (predecessors).
	deps map[string]*node
	// dependents holds the set of nodes that depend on this node (successors).
	dependents map[string]*node
}

// Edge is a dependency edge: To runs after From.
type Edge struct {
	From string
	To   string
}
