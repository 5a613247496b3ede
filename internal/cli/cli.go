package cli

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/vk/cupidrun/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// usageCode is the exit code for invalid command lines.
const usageCode = 2

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var config *app.Config
	cmd := newRootCommand(&config)
	cmd.SetArgs(rewriteArgs(args))
	cmd.SetOut(output)
	cmd.SetErr(output)

	if err := cmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return nil, false, exitErr
		}
		return nil, false, &ExitError{Code: usageCode, Message: err.Error()}
	}

	if config == nil {
		// Help or version output was printed instead of running.
		return nil, true, nil
	}
	slog.Debug("CLI parser finished successfully.", "config_path", config.ConfigPath)
	return config, false, nil
}

func newRootCommand(out **app.Config) *cobra.Command {
	var cfg app.Config

	cmd := &cobra.Command{
		Use:   "cupidrun [flags] CONFIG_PATH",
		Short: "Run CUPiD diagnostics notebooks and scripts",
		Long: `cupidrun runs the diagnostics notebooks and scripts declared in a control
file (YAML or HCL). Tasks run in dependency order, in parallel unless
--serial is given. With --time-series the time-series files are generated
first.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return &ExitError{Code: usageCode, Message: "missing CONFIG_PATH argument"}
			}
			cfg.ConfigPath = args[0]

			config, err := app.NewConfig(cfg)
			if err != nil {
				return &ExitError{Code: usageCode, Message: err.Error()}
			}
			*out = config
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&cfg.Serial, "serial", "s", false, "Do not use a worker pool; run tasks one at a time.")
	flags.BoolVar(&cfg.TimeSeries, "time-series", false, "Generate time series before running the tasks.")
	flags.BoolVar(&cfg.TimeSeries, "ts", false, "Shorthand for --time-series.")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "Logging level: debug, info, warn or error.")
	flags.StringVar(&cfg.LogFormat, "log-format", "text", "Log output format: text, json or pretty.")
	flags.IntVar(&cfg.WorkerCount, "workers", 0, "Number of concurrent workers (0 means one per CPU).")
	flags.StringVar(&cfg.Papermill, "papermill", "papermill", "Papermill executable used for notebooks.")
	flags.StringVar(&cfg.Python, "python", "python", "Python interpreter used for scripts.")
	flags.StringVar(&cfg.TSCommand, "ts-command", app.DefaultTSCommand, "Executable that generates time series for one component.")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: usageCode, Message: err.Error()}
	})
	return cmd
}

// rewriteArgs accepts the single-dash "-ts" spelling of --ts.
func rewriteArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a == "--" {
			copy(out[i:], args[i:])
			break
		}
		if a == "-ts" {
			a = "--ts"
		}
		out[i] = a
	}
	return out
}
