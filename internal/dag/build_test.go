package dag

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/cupidrun/internal/config"
	"github.com/vk/cupidrun/internal/task"
	"github.com/vk/cupidrun/internal/yamlcfg"
)

func descriptors() []task.Descriptor {
	return []task.Descriptor{
		{Name: "B", Kind: task.KindNotebook, Dependencies: []string{"A"}},
		{Name: "A", Kind: task.KindNotebook},
		{Name: "C", Kind: task.KindScript, Dependencies: []string{"A", "B"}},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	// Arrange
	tasks := descriptors()

	// Act
	g, err := Build(context.Background(), tasks)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, g.Nodes(), "registration follows input order")
	assert.Equal(t, []Edge{{From: "A", To: "B"}, {From: "B", To: "C"}, {From: "A", To: "C"}}, g.Edges())

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, order)
}

func TestBuild_Idempotent(t *testing.T) {
	t.Parallel()

	first, err := Build(context.Background(), descriptors())
	require.NoError(t, err)
	second, err := Build(context.Background(), descriptors())
	require.NoError(t, err)

	if diff := cmp.Diff(first.Nodes(), second.Nodes()); diff != "" {
		t.Errorf("nodes differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Edges(), second.Edges()); diff != "" {
		t.Errorf("edges differ (-first +second):\n%s", diff)
	}
}

const idempotenceControl = `
data_sources:
  run_dir: /runs/r1
  sname: quick-run
  nb_path_root: /nbs
global_params:
  x: 1
compute_notebooks:
  regional:
    parameter_groups:
      tropics: {lat: 23}
      arctic: {lat: 66}
  summary:
    dependency: regional
  seasonal:
    dependency: [summary]
compute_scripts:
  regrid:
    dependency: [seasonal, regional]
    product: regridded.nc
`

// graphFromControl runs the whole path from control file text to graph.
func graphFromControl(t *testing.T, data string) *Graph {
	t.Helper()
	raw, err := yamlcfg.Parse([]byte(data))
	require.NoError(t, err)
	control, err := config.FromRaw(raw)
	require.NoError(t, err)
	layout, err := task.NewLayout(control.DataSources)
	require.NoError(t, err)

	b := &task.Builder{Layout: layout, Global: task.NewGlobalParams(control.GlobalParams, false)}
	tasks, err := b.Build(context.Background(), control)
	require.NoError(t, err)
	g, err := Build(context.Background(), tasks)
	require.NoError(t, err)
	return g
}

func TestBuild_IdempotentFromControlFile(t *testing.T) {
	t.Parallel()

	// Act
	first := graphFromControl(t, idempotenceControl)
	second := graphFromControl(t, idempotenceControl)

	// Assert
	assert.Equal(t, []string{"regional-tropics", "regional-arctic", "summary", "seasonal", "regrid"}, first.Nodes())
	if diff := cmp.Diff(first.Nodes(), second.Nodes()); diff != "" {
		t.Errorf("nodes differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Edges(), second.Edges()); diff != "" {
		t.Errorf("edges differ (-first +second):\n%s", diff)
	}
	for _, id := range first.Nodes() {
		a, _ := first.Task(id)
		b, _ := second.Task(id)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("task %s differs (-first +second):\n%s", id, diff)
		}
	}
}

func TestBuild_CycleDetection(t *testing.T) {
	t.Parallel()

	// Arrange: A -> B -> A.
	tasks := []task.Descriptor{
		{Name: "A", Dependencies: []string{"B"}},
		{Name: "B", Dependencies: []string{"A"}},
	}

	// Act
	_, err := Build(context.Background(), tasks)

	// Assert
	require.ErrorIs(t, err, ErrCycle)
	assert.ErrorContains(t, err, "A -> B -> A")
}

func TestBuild_MissingDependencies(t *testing.T) {
	t.Parallel()

	tasks := []task.Descriptor{
		{Name: "A", Dependencies: []string{"ghost"}},
		{Name: "B", Dependencies: []string{"A", "phantom"}},
	}

	_, err := Build(context.Background(), tasks)

	require.ErrorIs(t, err, ErrMissingDependency)
	assert.ErrorContains(t, err, "ghost (needed by A)")
	assert.ErrorContains(t, err, "phantom (needed by B)")
}

func TestBuild_DuplicateTask(t *testing.T) {
	t.Parallel()

	_, err := Build(context.Background(), []task.Descriptor{{Name: "A"}, {Name: "A"}})
	assert.ErrorIs(t, err, ErrDuplicateTask)
}
