// Package runner executes single tasks: notebooks through papermill and
// scripts through a Python interpreter. Runners are selected by task kind
// through a Registry.
package runner
