package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/cupidrun/internal/testutil"
	"github.com/vk/cupidrun/internal/timeseries"
)

// setupAppTest writes the control file into dir, replacing every "{{dir}}"
// with dir, and returns an app configured to load it with logs captured at
// debug level.
func setupAppTest(t *testing.T, dir, name, control string, cfg Config, opts ...Option) (*App, *testutil.SafeBuffer) {
	t.Helper()

	path := filepath.Join(dir, name)
	control = strings.ReplaceAll(control, "{{dir}}", dir)
	require.NoError(t, os.WriteFile(path, []byte(control), 0o644))

	cfg.ConfigPath = path
	cfg.LogLevel = "debug"
	appConfig, err := NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &testutil.SafeBuffer{}
	testutil.LogTestOutput(t, logBuffer)
	return NewApp(logBuffer, appConfig, opts...), logBuffer
}

// recordingGenerator remembers the components it was asked to generate.
type recordingGenerator struct {
	mu         sync.Mutex
	components []string
}

func (g *recordingGenerator) Generate(_ context.Context, req timeseries.Request) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.components = append(g.components, req.Component)
	return nil
}

func (g *recordingGenerator) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.components...)
}
