package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vk/cupidrun/internal/ctxlog"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the control file at path and translates it into the
	// format-agnostic model.
	Load(ctx context.Context, path string) (*Control, error)
}

// ByExtension dispatches to a Loader based on the file extension of the
// path being loaded. Keys are lower-case extensions including the dot.
type ByExtension map[string]Loader

// Load implements Loader.
func (b ByExtension) Load(ctx context.Context, path string) (*Control, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := b[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	ctxlog.FromContext(ctx).Debug("Selected configuration loader.", "path", path, "extension", ext)
	return loader.Load(ctx, path)
}
