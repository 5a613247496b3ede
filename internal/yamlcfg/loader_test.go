package yamlcfg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/cupidrun/internal/config"
)

const controlYAML = `
data_sources:
  run_dir: /glade/run
  sname: quick-run
  nb_path_root: /glade/nbs
  path_to_cat_json: /glade/cat.json
  subset:
    experiment: [b.e23.fhist]

computation_config:
  default_kernel_name: cupid-analysis

global_params:
  CESM_output_dir: /glade/archive
  lc_kwargs:
    threads_per_worker: 1

timeseries:
  num_procs: 8
  case_name: b.e23
  atm_vars: [TS]

compute_notebooks:
  zeta:
    parameter_groups:
      none:
        y: 2
  alpha:
    dependency: zeta
    kernel_name: other-kernel

compute_scripts:
  regrid:
    product: /glade/out.nc
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_Load(t *testing.T) {
	path := writeFile(t, "config.yml", controlYAML)

	c, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, path, c.Path)
	assert.Equal(t, "/glade/run", c.DataSources.RunDir)
	assert.Equal(t, "quick-run", c.DataSources.SName)
	assert.Equal(t, "/glade/cat.json", c.DataSources.CatalogPath)
	assert.Equal(t, map[string]any{"experiment": []any{"b.e23.fhist"}}, c.DataSources.Subset)
	assert.Equal(t, "cupid-analysis", c.ComputationConfig.DefaultKernelName)
	assert.Equal(t, "/glade/archive", c.GlobalParams["CESM_output_dir"])
	assert.Equal(t, map[string]any{"threads_per_worker": 1}, c.GlobalParams["lc_kwargs"])

	require.NotNil(t, c.Timeseries)
	procs, err := c.Timeseries.Int("num_procs")
	require.NoError(t, err)
	assert.Equal(t, 8, procs)

	require.Len(t, c.Notebooks, 2)
	assert.Equal(t, "zeta", c.Notebooks[0].Name, "document order is kept, not sorted")
	assert.Equal(t, "alpha", c.Notebooks[1].Name)
	assert.Equal(t, []string{"zeta"}, c.Notebooks[1].Dependency)
	assert.Equal(t, "other-kernel", c.Notebooks[1].KernelName)
	assert.Equal(t, map[string]any{"y": 2}, c.Notebooks[0].ParameterGroups[0].Params)

	require.Len(t, c.Scripts, 1)
	assert.Equal(t, "/glade/out.nc", c.Scripts[0].Product)
}

func TestLoader_NoTimeseriesSection(t *testing.T) {
	path := writeFile(t, "config.yml", `
data_sources: {run_dir: /r, sname: s, nb_path_root: /n}
compute_notebooks:
  only: {}
`)
	c, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Nil(t, c.Timeseries)
	assert.Empty(t, c.DataSources.CatalogPath)
}

func TestLoader_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.yml"))
		assert.ErrorContains(t, err, "failed to read control file")
	})

	t.Run("syntax error", func(t *testing.T) {
		path := writeFile(t, "bad.yml", "data_sources: [unclosed")
		_, err := NewLoader().Load(context.Background(), path)
		assert.ErrorContains(t, err, "failed to parse YAML")
	})

	t.Run("top level is a list", func(t *testing.T) {
		path := writeFile(t, "list.yml", "- a\n- b\n")
		_, err := NewLoader().Load(context.Background(), path)
		assert.ErrorContains(t, err, "top level must be a mapping")
	})

	t.Run("missing required key", func(t *testing.T) {
		path := writeFile(t, "partial.yml", "data_sources: {run_dir: /r, sname: s}\ncompute_notebooks: {}\n")
		_, err := NewLoader().Load(context.Background(), path)
		assert.ErrorIs(t, err, config.ErrMissingKey)
		assert.ErrorContains(t, err, "nb_path_root")
	})
}

func TestParse_KeyOrderThroughAlias(t *testing.T) {
	raw, err := Parse([]byte(`
base: &nbs
  second: {}
  first: {}
data_sources: {run_dir: /r, sname: s, nb_path_root: /n}
compute_notebooks: *nbs
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, raw.NotebookOrder)
	assert.Nil(t, raw.ScriptOrder)
}

func TestLoader_ParameterGroupsKeepFileOrder(t *testing.T) {
	path := writeFile(t, "config.yml", `
data_sources: {run_dir: /r, sname: s, nb_path_root: /n}
compute_notebooks:
  seasonal:
    parameter_groups:
      son: {season: SON}
      djf: {season: DJF}
      none: {season: ANN}
compute_scripts:
  regrid:
    parameter_groups:
      fine: {res: 0.25}
      coarse: {res: 1}
`)

	c, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	names := func(d config.TaskDecl) []string {
		var out []string
		for _, g := range d.ParameterGroups {
			out = append(out, g.Name)
		}
		return out
	}
	require.Len(t, c.Notebooks, 1)
	assert.Equal(t, []string{"son", "djf", "none"}, names(c.Notebooks[0]))
	require.Len(t, c.Scripts, 1)
	assert.Equal(t, []string{"fine", "coarse"}, names(c.Scripts[0]))
}
