package app

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json", "pretty"}
)

// DefaultTSCommand is the executable that generates time series for one
// component per invocation.
const DefaultTSCommand = "cupid-timeseries"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string

	Serial     bool
	TimeSeries bool

	LogFormat   string
	LogLevel    string
	WorkerCount int

	// Executables used by the default runners and generator.
	Papermill string
	Python    string
	TSCommand string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if !slices.Contains(logLevels, cfg.LogLevel) {
		return nil, fmt.Errorf("invalid log level %q: must be one of %s", cfg.LogLevel, strings.Join(logLevels, ", "))
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if !slices.Contains(logFormats, cfg.LogFormat) {
		return nil, fmt.Errorf("invalid log format %q: must be one of %s", cfg.LogFormat, strings.Join(logFormats, ", "))
	}

	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("invalid worker count %d: must not be negative", cfg.WorkerCount)
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = runtime.NumCPU()
	}
	if cfg.Serial {
		cfg.WorkerCount = 1
	}

	if cfg.Papermill == "" {
		cfg.Papermill = "papermill"
	}
	if cfg.Python == "" {
		cfg.Python = "python"
	}
	if cfg.TSCommand == "" {
		cfg.TSCommand = DefaultTSCommand
	}

	return &cfg, nil
}
