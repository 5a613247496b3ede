// Package task turns the declarations of a control file into runnable task
// descriptors: one per notebook or script parameter group, each owning its
// own copy of the merged parameters.
package task
