package config

// Control is the unified, format-agnostic representation of a control file.
// It is read-only once returned by a Loader; consumers copy what they need.
type Control struct {
	// Path is the file the control structure was loaded from.
	Path string

	DataSources       DataSources
	GlobalParams      map[string]any
	ComputationConfig ComputationConfig

	// Timeseries is nil when the control file has no timeseries section.
	Timeseries *Section

	// Notebooks and Scripts keep the declaration order of the file.
	Notebooks []TaskDecl
	Scripts   []TaskDecl

	BookConfigKeys map[string]any
	BookToc        any
}

// DataSources is the `data_sources` section.
type DataSources struct {
	RunDir     string
	SName      string
	NbPathRoot string

	// CatalogPath is empty when no catalog is configured.
	CatalogPath string
	// Subset holds the search query applied to the full catalog, if any.
	Subset map[string]any
}

// ComputationConfig is the `computation_config` section.
type ComputationConfig struct {
	DefaultKernelName string
}

// TaskDecl is a single entry of `compute_notebooks` or `compute_scripts`.
type TaskDecl struct {
	Name            string
	ParameterGroups []ParameterGroup
	Dependency      []string
	KernelName      string
	Product         string
	Subset          map[string]any
}

// ParameterGroup is one named parameter set of a task declaration.
type ParameterGroup struct {
	Name   string
	Params map[string]any
}

// HasSubset reports whether the declaration carries its own subset query.
func (d TaskDecl) HasSubset() bool {
	return d.Subset != nil
}

// TimeseriesSection returns the timeseries section, failing with
// ErrMissingKey when the control file has none.
func (c *Control) TimeseriesSection() (*Section, error) {
	if c.Timeseries == nil {
		return nil, missingKey("", sectionTimeseries)
	}
	return c.Timeseries, nil
}
