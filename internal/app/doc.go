// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the pipeline that takes a control file from
// loading through time-series generation, catalog resolution and graph
// construction to execution, decoupled from any specific entrypoint.
package app
