package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/cupidrun/internal/config"
	"github.com/zclconf/go-cty/cty"
)

const controlHCL = `
data_sources {
  run_dir          = "/scratch/${env.CUPID_USER}/run"
  sname            = "quick-run"
  nb_path_root     = "/glade/nbs"
  path_to_cat_json = "/glade/cat.json"
  subset           = { experiment = ["b.e23"] }
}

computation_config {
  default_kernel_name = "cupid-analysis"
}

global_params = {
  CESM_output_dir = "/glade/archive"
  ratio           = 0.5
}

timeseries {
  num_procs = 8
  ts_done   = [false]
}

notebook "zeta" {
  parameter_groups = {
    none = { y = 2 }
  }
}

notebook "alpha" {
  dependency  = "zeta"
  kernel_name = "other-kernel"
}

script "regrid" {
  product    = "/glade/out.nc"
  dependency = ["alpha", "zeta"]
}
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testLoader() *Loader {
	return &Loader{Environ: func() []string { return []string{"CUPID_USER=jdoe", "BROKEN"} }}
}

func TestLoader_Load(t *testing.T) {
	path := writeFile(t, controlHCL)

	c, err := testLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "/scratch/jdoe/run", c.DataSources.RunDir)
	assert.Equal(t, "/glade/cat.json", c.DataSources.CatalogPath)
	assert.Equal(t, map[string]any{"experiment": []any{"b.e23"}}, c.DataSources.Subset)
	assert.Equal(t, "cupid-analysis", c.ComputationConfig.DefaultKernelName)
	assert.Equal(t, map[string]any{"CESM_output_dir": "/glade/archive", "ratio": 0.5}, c.GlobalParams)

	require.NotNil(t, c.Timeseries)
	procs, err := c.Timeseries.Int("num_procs")
	require.NoError(t, err)
	assert.Equal(t, 8, procs)
	done, err := c.Timeseries.Bools("ts_done")
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, done)

	require.Len(t, c.Notebooks, 2)
	assert.Equal(t, "zeta", c.Notebooks[0].Name)
	assert.Equal(t, map[string]any{"y": 2}, c.Notebooks[0].ParameterGroups[0].Params)
	assert.Equal(t, "alpha", c.Notebooks[1].Name)
	assert.Equal(t, []string{"zeta"}, c.Notebooks[1].Dependency)

	require.Len(t, c.Scripts, 1)
	assert.Equal(t, []string{"alpha", "zeta"}, c.Scripts[0].Dependency)
	assert.Equal(t, "/glade/out.nc", c.Scripts[0].Product)
}

func TestLoader_ParameterGroupsKeepSourceOrder(t *testing.T) {
	path := writeFile(t, `
data_sources {
  run_dir      = "/r"
  sname        = "s"
  nb_path_root = "/n"
}

notebook "seasonal" {
  parameter_groups = {
    son    = { season = "SON" }
    "djf"  = { season = "DJF" }
    none   = { season = "ANN" }
  }
}
`)

	c, err := testLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, c.Notebooks, 1)

	var names []string
	for _, g := range c.Notebooks[0].ParameterGroups {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"son", "djf", "none"}, names)
}

func TestLoader_Errors(t *testing.T) {
	t.Run("syntax error", func(t *testing.T) {
		path := writeFile(t, `data_sources {`)
		_, err := testLoader().Load(context.Background(), path)
		assert.ErrorContains(t, err, "failed to parse HCL file")
	})

	t.Run("unknown variable", func(t *testing.T) {
		path := writeFile(t, `
data_sources {
  run_dir      = var.nope
  sname        = "s"
  nb_path_root = "/n"
}
`)
		_, err := testLoader().Load(context.Background(), path)
		assert.ErrorContains(t, err, "failed to evaluate HCL file")
	})

	t.Run("duplicate notebook", func(t *testing.T) {
		path := writeFile(t, `
data_sources {
  run_dir      = "/r"
  sname        = "s"
  nb_path_root = "/n"
}
notebook "a" {}
notebook "a" {}
`)
		_, err := testLoader().Load(context.Background(), path)
		assert.ErrorContains(t, err, `duplicate notebook block "a"`)
	})

	t.Run("missing data_sources", func(t *testing.T) {
		path := writeFile(t, `notebook "a" {}`)
		_, err := testLoader().Load(context.Background(), path)
		assert.ErrorIs(t, err, config.ErrMissingKey)
	})
}

func TestCtyToNative(t *testing.T) {
	testCases := []struct {
		name string
		in   cty.Value
		want any
	}{
		{"null", cty.NullVal(cty.String), nil},
		{"string", cty.StringVal("x"), "x"},
		{"int", cty.NumberIntVal(42), 42},
		{"float", cty.NumberFloatVal(1.5), 1.5},
		{"bool", cty.True, true},
		{"tuple", cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.NumberIntVal(1)}), []any{"a", 1}},
		{"set", cty.SetVal([]cty.Value{cty.StringVal("a")}), []any{"a"}},
		{"object", cty.ObjectVal(map[string]cty.Value{"k": cty.False}), map[string]any{"k": false}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ctyToNative(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ctyToNative(cty.UnknownVal(cty.String))
	assert.Error(t, err)
}
