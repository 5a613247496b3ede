// Package timeseries prepares single-variable time-series files from CESM
// history output before diagnostics run. Each model component is one row of
// a table; the stage walks the table and hands one Request per component to
// a Generator.
package timeseries
