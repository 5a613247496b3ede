package app

import (
	"context"
	"fmt"

	"github.com/vk/cupidrun/internal/book"
	"github.com/vk/cupidrun/internal/catalog"
	"github.com/vk/cupidrun/internal/config"
	"github.com/vk/cupidrun/internal/ctxlog"
	"github.com/vk/cupidrun/internal/dag"
	"github.com/vk/cupidrun/internal/task"
	"github.com/vk/cupidrun/internal/timeseries"
)

// Run executes the pipeline once: load the control file, prepare the book,
// optionally generate time series, resolve the catalog, build the task graph
// and execute it.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer func() {
		if err != nil {
			a.setPhase(PhaseFailed)
			return
		}
		a.setPhase(PhaseDone)
	}()

	control, err := a.loader.Load(ctx, a.config.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.setPhase(PhaseConfigLoaded)
	a.logger.Info("Configuration loaded.", "path", a.config.ConfigPath,
		"notebooks", len(control.Notebooks), "scripts", len(control.Scripts))

	layout, err := task.NewLayout(control.DataSources)
	if err != nil {
		return err
	}
	if err := book.Setup(ctx, a.fs, layout.OutputDir, control); err != nil {
		return fmt.Errorf("failed to set up book: %w", err)
	}

	if a.config.TimeSeries {
		a.setPhase(PhaseTimeseriesRunning)
		if err := timeseries.NewStage(a.generator, a.config.Serial).Run(ctx, control); err != nil {
			return fmt.Errorf("time-series generation failed: %w", err)
		}
	}

	ref, err := (&catalog.Resolver{Fs: a.fs}).Resolve(ctx, control.DataSources, layout.TempDir)
	if err != nil {
		return fmt.Errorf("failed to resolve catalog: %w", err)
	}
	a.setPhase(PhaseCatalogResolved)
	if ref.InUse() {
		a.logger.Info("Catalog resolved.", "path", ref.Path, "subset", ref.Subset)
	}

	graph, err := a.buildGraph(ctx, control, layout, ref)
	if err != nil {
		return err
	}
	a.setPhase(PhaseGraphBuilt)

	if graph.Len() == 0 {
		a.logger.Warn("No tasks found in graph, execution not required.")
		return nil
	}

	a.setPhase(PhaseExecuting)
	a.logger.Info("Starting execution.", "tasks", graph.Len(), "workers", a.config.WorkerCount, "serial", a.config.Serial)
	exec := dag.NewExecutor(graph, a.runner, a.config.WorkerCount, a.config.Serial)
	if err := exec.Run(ctx); err != nil {
		return err
	}
	a.logger.Info("Execution finished.", "output_dir", layout.OutputDir)

	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) buildGraph(ctx context.Context, control *config.Control, layout task.Layout, ref catalog.Ref) (*dag.Graph, error) {
	a.logger.Debug("Building dependency graph from control file...")
	builder := &task.Builder{
		Layout:        layout,
		Catalog:       ref,
		Global:        task.NewGlobalParams(control.GlobalParams, a.config.Serial),
		DefaultKernel: control.ComputationConfig.DefaultKernelName,
	}
	tasks, err := builder.Build(ctx, control)
	if err != nil {
		return nil, fmt.Errorf("failed to build tasks: %w", err)
	}
	graph, err := dag.Build(ctx, tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", graph.Len())
	return graph, nil
}
