package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/vk/cupidrun/internal/ctxlog"
)

// stderrTailSize bounds how much of a failed command's stderr is kept.
const stderrTailSize = 4096

// ExecError reports a command that could not be started or exited non-zero.
type ExecError struct {
	Command  []string
	ExitCode int
	// Stderr holds the last bytes the command wrote to stderr.
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("command %q failed: %v", strings.Join(e.Command, " "), e.Err)
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// command describes one external process invocation.
type command struct {
	argv []string
	dir  string
	env  []string
}

// run starts the command and waits for it. Stdout goes to stdout, stderr is
// forwarded to stderr and its tail is kept for the error.
func (c command) run(ctx context.Context, stdout, stderr io.Writer) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Running command.", "argv", c.argv, "dir", c.dir)

	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Dir = c.dir
	cmd.Env = append(os.Environ(), c.env...)

	tail := &tailBuffer{max: stderrTailSize}
	if stdout == nil {
		stdout = io.Discard
	}
	cmd.Stdout = stdout
	if stderr != nil {
		cmd.Stderr = io.MultiWriter(stderr, tail)
	} else {
		cmd.Stderr = tail
	}

	if err := cmd.Run(); err != nil {
		execErr := &ExecError{Command: c.argv, ExitCode: -1, Stderr: tail.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			execErr.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			execErr.Err = fmt.Errorf("%w (%v)", ctx.Err(), err)
		}
		return execErr
	}
	return nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
