package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/cupidrun/internal/task"
	"gopkg.in/yaml.v3"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

// fakeExecutable writes an executable shell script and returns its path.
func fakeExecutable(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	var got task.Descriptor
	reg.Register(task.KindScript, runnerFunc(func(_ context.Context, d task.Descriptor) error {
		got = d
		return nil
	}))

	require.NoError(t, reg.Run(context.Background(), task.Descriptor{Name: "s", Kind: task.KindScript}))
	assert.Equal(t, "s", got.Name)

	err := reg.Run(context.Background(), task.Descriptor{Name: "n", Kind: task.KindNotebook})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

type runnerFunc func(ctx context.Context, d task.Descriptor) error

func (f runnerFunc) Run(ctx context.Context, d task.Descriptor) error { return f(ctx, d) }

func TestNotebook_Argv(t *testing.T) {
	n := NewNotebook("")
	d := task.Descriptor{
		Name:    "A",
		Source:  "/nbs/A.ipynb",
		Product: "/out/A.ipynb",
		Kernel:  "cupid-analysis",
		Cwd:     "/nbs",
		Params:  map[string]any{"x": 1, "serial": true},
	}

	argv, err := n.argv(d)
	require.NoError(t, err)
	require.Len(t, argv, 9)
	assert.Equal(t, []string{"papermill", "/nbs/A.ipynb", "/out/A.ipynb", "-y"}, argv[:4])
	assert.Equal(t, []string{"-k", "cupid-analysis", "--cwd", "/nbs"}, argv[5:])

	var params map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(argv[4]), &params))
	assert.Equal(t, map[string]any{"x": 1, "serial": true}, params)

	d.Kernel = ""
	d.Cwd = ""
	argv, err = n.argv(d)
	require.NoError(t, err)
	assert.Len(t, argv, 5)

	_, err = n.argv(task.Descriptor{Source: "/nbs/A.ipynb"})
	assert.Error(t, err)
}

func TestNotebook_Run(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	papermill := fakeExecutable(t, dir, "papermill", `printf '%s\n' "$@" > `+argsFile)

	n := NewNotebook(papermill)
	n.Fs = afero.NewOsFs()
	product := filepath.Join(dir, "computed", "A.ipynb")
	err := n.Run(context.Background(), task.Descriptor{
		Name:    "A",
		Source:  filepath.Join(dir, "A.ipynb"),
		Product: product,
		Cwd:     dir,
		Params:  map[string]any{"y": 2},
	})
	require.NoError(t, err)

	assert.DirExists(t, filepath.Dir(product), "output directory is created before papermill runs")
	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	args := string(data)
	assert.Contains(t, args, filepath.Join(dir, "A.ipynb"))
	assert.Contains(t, args, product)
	assert.Contains(t, args, "y: 2")
}

func TestScript_Run(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "params.yml")
	script := fakeExecutable(t, dir, "regrid.py", `printf '%s' "$CUPID_PARAMS" > `+out+`; pwd >> `+out+`.cwd`)

	s := NewScript("sh")
	err := s.Run(context.Background(), task.Descriptor{
		Name:   "regrid",
		Kind:   task.KindScript,
		Source: script,
		Cwd:    dir,
		Params: map[string]any{"x": 1, "serial": false},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var params map[string]any
	require.NoError(t, yaml.Unmarshal(data, &params))
	assert.Equal(t, map[string]any{"x": 1, "serial": false}, params)

	cwd, err := os.ReadFile(out + ".cwd")
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolved, strings.TrimSpace(string(cwd)))
}

func TestScript_Command(t *testing.T) {
	s := NewScript("")
	cmd, err := s.command(task.Descriptor{Source: "/nbs/s.py", Product: "/out/s.nc", Cwd: "/nbs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "/nbs/s.py"}, cmd.argv)
	assert.Equal(t, "/nbs", cmd.dir)
	assert.Contains(t, cmd.env, "CUPID_PRODUCT=/out/s.nc")

	_, err = s.command(task.Descriptor{})
	assert.Error(t, err)
}

func TestExecError(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	script := fakeExecutable(t, dir, "broken.py", `echo "Traceback: NameError" >&2; exit 7`)

	err := NewScript("sh").Run(context.Background(), task.Descriptor{Name: "broken", Source: script, Cwd: dir})
	require.Error(t, err)

	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, 7, execErr.ExitCode)
	assert.Contains(t, execErr.Stderr, "NameError")
	assert.ErrorContains(t, err, "NameError")
}

func TestExec_Canceled(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := command{argv: []string{"sh", "-c", "sleep 5"}}.run(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{max: 5}
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("defgh"))
	assert.Equal(t, "defgh", b.String())
}
