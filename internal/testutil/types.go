package testutil

import "time"

// ExecutionRecord holds what a recording runner observed for one task.
type ExecutionRecord struct {
	Start  time.Time
	End    time.Time
	Params map[string]any
	Kernel string
}
