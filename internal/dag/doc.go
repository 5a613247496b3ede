// Package dag is the execution layer. It builds a directed acyclic graph of
// task descriptors from their declared dependencies, validates it, and
// executes the tasks with a bounded worker pool so that every task starts
// only after all of its dependencies have completed.
package dag
