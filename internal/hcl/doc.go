// Package hcl provides the HCL implementation of config.Loader. A control
// file written in HCL uses `data_sources`, `computation_config` and
// `timeseries` blocks, one `notebook "<name>"` or `script "<name>"` block per
// task, and top-level attributes for `global_params`, `book_config_keys` and
// `book_toc`. Attribute expressions may reference `env.<NAME>`.
package hcl
