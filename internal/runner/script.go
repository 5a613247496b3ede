package runner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vk/cupidrun/internal/task"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPython is the interpreter looked up on PATH.
	DefaultPython = "python"
	// ParamsEnv is the environment variable carrying a script's parameters
	// as a YAML document.
	ParamsEnv = "CUPID_PARAMS"
	// ProductEnv names the script's expected output, when it has one.
	ProductEnv = "CUPID_PRODUCT"
)

// Script executes Python scripts with the task parameters in the
// environment.
type Script struct {
	Python string
	Stdout io.Writer
	Stderr io.Writer
}

// NewScript returns a script runner using the given interpreter, or
// DefaultPython when empty.
func NewScript(python string) *Script {
	if python == "" {
		python = DefaultPython
	}
	return &Script{Python: python}
}

// Run executes t.
func (s *Script) Run(ctx context.Context, t task.Descriptor) error {
	cmd, err := s.command(t)
	if err != nil {
		return err
	}
	return cmd.run(ctx, s.Stdout, s.Stderr)
}

func (s *Script) command(t task.Descriptor) (command, error) {
	if t.Source == "" {
		return command{}, errors.New("script task needs a source path")
	}
	params, err := yaml.Marshal(t.Params)
	if err != nil {
		return command{}, fmt.Errorf("encoding parameters: %w", err)
	}

	env := []string{ParamsEnv + "=" + string(params)}
	if t.Product != "" {
		env = append(env, ProductEnv+"="+t.Product)
	}
	return command{argv: []string{s.Python, t.Source}, dir: t.Cwd, env: env}, nil
}
