package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertRanBefore checks that task first finished before task second started.
func AssertRanBefore(t *testing.T, r *RecordingRunner, first, second string) {
	t.Helper()

	a := r.Record(first)
	b := r.Record(second)
	require.NotNil(t, a, "task %q did not run", first)
	require.NotNil(t, b, "task %q did not run", second)
	require.False(t, a.End.After(b.Start),
		"expected %q (ended %s) to finish before %q started (%s)", first, a.End, second, b.Start)
}

// AssertLogContains checks that captured log output mentions every fragment.
func AssertLogContains(t *testing.T, logs string, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		require.True(t, strings.Contains(logs, f), "expected log output to contain %q", f)
	}
}
