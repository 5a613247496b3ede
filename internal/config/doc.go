// Package config defines the format-agnostic control model for a diagnostics
// run, along with the Loader interface for reading it from various sources.
//
// The `config.Control` is the single source of truth for the time-series,
// catalog and task-graph stages. Concrete loaders, such as for YAML and HCL,
// are provided in separate packages and hand a `Raw` document to `FromRaw`.
package config
