package app

import (
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/vk/cupidrun/internal/config"
	"github.com/vk/cupidrun/internal/dag"
	"github.com/vk/cupidrun/internal/hcl"
	"github.com/vk/cupidrun/internal/runner"
	"github.com/vk/cupidrun/internal/task"
	"github.com/vk/cupidrun/internal/timeseries"
	"github.com/vk/cupidrun/internal/yamlcfg"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	runID  string

	loader    config.Loader
	fs        afero.Fs
	generator timeseries.Generator
	runner    dag.Runner

	mu      sync.Mutex
	phase   Phase
	history []Phase
}

// Option customizes an App. Tests use options to replace the external
// processes and the filesystem.
type Option func(*App)

// WithLoader replaces the control file loader.
func WithLoader(l config.Loader) Option {
	return func(a *App) { a.loader = l }
}

// WithFs replaces the filesystem used for the catalog and the book files.
func WithFs(fs afero.Fs) Option {
	return func(a *App) { a.fs = fs }
}

// WithGenerator replaces the time-series generator.
func WithGenerator(g timeseries.Generator) Option {
	return func(a *App) { a.generator = g }
}

// WithRunner replaces the task runner.
func WithRunner(r dag.Runner) Option {
	return func(a *App) { a.runner = r }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger.
func NewApp(outW io.Writer, appConfig *Config, opts ...Option) *App {
	runID := uuid.NewString()
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW).With("run_id", runID)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:   outW,
		logger: logger,
		config: appConfig,
		runID:  runID,
		phase:  PhaseIdle,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.loader == nil {
		a.loader = config.ByExtension{
			".yml":  yamlcfg.NewLoader(),
			".yaml": yamlcfg.NewLoader(),
			".hcl":  hcl.NewLoader(),
		}
	}
	if a.fs == nil {
		a.fs = afero.NewOsFs()
	}
	if a.generator == nil {
		a.generator = &timeseries.CommandGenerator{Command: appConfig.TSCommand, Stdout: outW, Stderr: outW}
	}
	if a.runner == nil {
		reg := runner.NewRegistry()
		nb := runner.NewNotebook(appConfig.Papermill)
		nb.Fs = a.fs
		nb.Stdout, nb.Stderr = outW, outW
		reg.Register(task.KindNotebook, nb)
		script := runner.NewScript(appConfig.Python)
		script.Stdout, script.Stderr = outW, outW
		reg.Register(task.KindScript, script)
		a.runner = reg
	}
	logger.Debug("App initialized.", "config_path", appConfig.ConfigPath, "workers", appConfig.WorkerCount, "serial", appConfig.Serial)

	return a
}

// RunID returns the identifier attached to every log line of this App.
func (a *App) RunID() string {
	return a.runID
}
