package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/vk/cupidrun/internal/task"
	"gopkg.in/yaml.v3"
)

// DefaultPapermill is the papermill executable looked up on PATH.
const DefaultPapermill = "papermill"

// Notebook executes notebooks with papermill, injecting the task parameters
// and writing the executed copy to the task's product path.
type Notebook struct {
	Papermill string
	Fs        afero.Fs
	Stdout    io.Writer
	Stderr    io.Writer
}

// NewNotebook returns a notebook runner using the given papermill
// executable, or DefaultPapermill when empty.
func NewNotebook(papermill string) *Notebook {
	if papermill == "" {
		papermill = DefaultPapermill
	}
	return &Notebook{Papermill: papermill, Fs: afero.NewOsFs()}
}

// Run executes t.
func (n *Notebook) Run(ctx context.Context, t task.Descriptor) error {
	argv, err := n.argv(t)
	if err != nil {
		return err
	}
	if err := n.fs().MkdirAll(filepath.Dir(t.Product), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return command{argv: argv, dir: t.Cwd}.run(ctx, n.Stdout, n.Stderr)
}

func (n *Notebook) argv(t task.Descriptor) ([]string, error) {
	if t.Source == "" || t.Product == "" {
		return nil, errors.New("notebook task needs both a source and a product path")
	}
	params, err := yaml.Marshal(t.Params)
	if err != nil {
		return nil, fmt.Errorf("encoding parameters: %w", err)
	}

	argv := []string{n.Papermill, t.Source, t.Product, "-y", string(params)}
	if t.Kernel != "" {
		argv = append(argv, "-k", t.Kernel)
	}
	if t.Cwd != "" {
		argv = append(argv, "--cwd", t.Cwd)
	}
	return argv, nil
}

func (n *Notebook) fs() afero.Fs {
	if n.Fs == nil {
		return afero.NewOsFs()
	}
	return n.Fs
}
