// Package catalog reads and subsets ESM collection catalogs: a JSON
// description whose asset table is a CSV file or an inline list. The
// resolver turns the configured catalog into the path handed to every task.
package catalog
