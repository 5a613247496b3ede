package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/vk/cupidrun/internal/config"
	"github.com/vk/cupidrun/internal/ctxlog"
	"github.com/vk/cupidrun/internal/fsutil"
)

// Ref points at the catalog tasks should read. The zero value means no
// catalog is in use.
type Ref struct {
	Path string
	// Subset is true when Path names a derived subset rather than the
	// configured catalog.
	Subset bool
}

// InUse reports whether downstream tasks get a catalog.
func (r Ref) InUse() bool {
	return r.Path != ""
}

// Resolver locates the configured catalog and derives a subset when one is
// requested.
type Resolver struct {
	Fs afero.Fs
}

// Resolve returns the catalog reference for a run. With no catalog path it
// returns the zero Ref. With a subset query the filtered catalog is written
// to tempDir as <stem>_subset.json and that path is returned.
func (r *Resolver) Resolve(ctx context.Context, ds config.DataSources, tempDir string) (Ref, error) {
	logger := ctxlog.FromContext(ctx)
	if ds.CatalogPath == "" {
		logger.Debug("No catalog configured.")
		return Ref{}, nil
	}

	fullPath, err := fsutil.ExpandPath(ds.CatalogPath)
	if err != nil {
		return Ref{}, fmt.Errorf("resolving catalog path: %w", err)
	}

	full, err := Open(r.Fs, fullPath)
	if err != nil {
		return Ref{}, err
	}
	logger.Debug("Opened catalog.", "path", fullPath, "assets", full.Len())

	if ds.Subset == nil {
		return Ref{Path: fullPath}, nil
	}

	subset, err := full.Search(ds.Subset)
	if err != nil {
		return Ref{}, fmt.Errorf("subsetting catalog %s: %w", fullPath, err)
	}

	name := SubsetName(fullPath)
	path, err := subset.Serialize(r.Fs, tempDir, name)
	if err != nil {
		return Ref{}, fmt.Errorf("writing catalog subset: %w", err)
	}
	logger.Info("Catalog subset written.", "path", path, "assets", subset.Len(), "of", full.Len())
	return Ref{Path: path, Subset: true}, nil
}

// SubsetName derives the subset catalog's name from the full catalog path:
// the base name up to its first dot, plus "_subset".
func SubsetName(fullPath string) string {
	stem, _, _ := strings.Cut(filepath.Base(fullPath), ".")
	return stem + "_subset"
}
