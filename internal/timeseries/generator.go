package timeseries

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/vk/cupidrun/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// CommandGenerator runs an external executable once per component and
// streams the Request to it as a YAML document on stdin.
type CommandGenerator struct {
	Command string
	Args    []string
	Stdout  io.Writer
	Stderr  io.Writer
}

// Generate implements Generator.
func (g *CommandGenerator) Generate(ctx context.Context, req Request) error {
	payload, err := yaml.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	cmd := exec.CommandContext(ctx, g.Command, g.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = g.Stdout
	var stderr bytes.Buffer
	if g.Stderr != nil {
		cmd.Stderr = io.MultiWriter(g.Stderr, &stderr)
	} else {
		cmd.Stderr = &stderr
	}

	ctxlog.FromContext(ctx).Debug("Starting timeseries generator.", "command", g.Command, "component", req.Component)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("generator %q failed: %w: %s", g.Command, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}
