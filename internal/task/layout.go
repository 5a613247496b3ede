package task

import (
	"fmt"
	"path/filepath"

	"github.com/vk/cupidrun/internal/config"
	"github.com/vk/cupidrun/internal/fsutil"
)

// Layout is the set of directories a run reads from and writes to.
type Layout struct {
	RunDir     string
	NbPathRoot string
	// OutputDir receives executed notebooks: <run_dir>/computed_notebooks/<sname>.
	OutputDir string
	// TempDir holds intermediate data such as catalog subsets.
	TempDir string
}

// NewLayout expands the configured paths and derives the output locations.
func NewLayout(ds config.DataSources) (Layout, error) {
	runDir, err := fsutil.ExpandPath(ds.RunDir)
	if err != nil {
		return Layout{}, fmt.Errorf("data_sources.run_dir: %w", err)
	}
	nbRoot, err := fsutil.ExpandPath(ds.NbPathRoot)
	if err != nil {
		return Layout{}, fmt.Errorf("data_sources.nb_path_root: %w", err)
	}
	return Layout{
		RunDir:     runDir,
		NbPathRoot: nbRoot,
		OutputDir:  filepath.Join(runDir, "computed_notebooks", ds.SName),
		TempDir:    filepath.Join(runDir, "temp_data"),
	}, nil
}
