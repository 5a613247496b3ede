package timeseries

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/cupidrun/internal/config"
	"github.com/vk/cupidrun/internal/ctxlog"
	"github.com/vk/cupidrun/internal/fsutil"
)

// Request carries everything one generator call needs for one component.
type Request struct {
	Component     string   `yaml:"component"`
	Vars          []string `yaml:"vars"`
	DerivedVars   []string `yaml:"derive_vars"`
	CaseNames     []string `yaml:"case_names"`
	HistStr       string   `yaml:"hist_str"`
	InputDirs     []string `yaml:"input_dirs"`
	OutputDirs    []string `yaml:"output_dirs"`
	HistoryFiles  []string `yaml:"history_files"`
	TSDone        []bool   `yaml:"ts_done"`
	Overwrite     []bool   `yaml:"overwrite_ts"`
	StartYears    []int    `yaml:"start_years"`
	EndYears      []int    `yaml:"end_years"`
	VerticalCoord string   `yaml:"vertical_coord"`
	NumProcs      int      `yaml:"num_procs"`
	Serial        bool     `yaml:"serial"`
}

// Generator produces time-series files for one component.
type Generator interface {
	Generate(ctx context.Context, req Request) error
}

// Stage runs the generator once per component, in table order. The first
// failure stops the stage.
type Stage struct {
	Components []Component
	Generator  Generator
	Serial     bool
}

// NewStage returns a stage over DefaultComponents.
func NewStage(gen Generator, serial bool) *Stage {
	return &Stage{Components: DefaultComponents, Generator: gen, Serial: serial}
}

// Run reads the timeseries section of control and generates every component.
func (s *Stage) Run(ctx context.Context, control *config.Control) error {
	logger := ctxlog.FromContext(ctx)

	section, err := control.TimeseriesSection()
	if err != nil {
		return err
	}
	outputRoot, ok := control.GlobalParams["CESM_output_dir"].(string)
	if !ok {
		return fmt.Errorf("%w: global_params.CESM_output_dir", config.ErrMissingKey)
	}

	for _, comp := range s.Components {
		req, err := s.request(section, comp, outputRoot)
		if err != nil {
			return fmt.Errorf("timeseries %s: %w", comp.Name, err)
		}

		for _, dir := range req.InputDirs {
			files, err := fsutil.FindFiles(dir, "*"+req.HistStr+"*.nc")
			if err != nil {
				return fmt.Errorf("timeseries %s: listing history files: %w", comp.Name, err)
			}
			req.HistoryFiles = append(req.HistoryFiles, files...)
		}

		logger.Info("Calling timeseries generation.", "component", comp.Name, "history_files", len(req.HistoryFiles))
		if err := s.Generator.Generate(ctx, req); err != nil {
			return fmt.Errorf("timeseries %s: %w", comp.Name, err)
		}
		logger.Debug("Timeseries generation finished.", "component", comp.Name)
	}
	return nil
}

// request marshals the per-component and shared settings into a Request.
func (s *Stage) request(section *config.Section, comp Component, outputRoot string) (Request, error) {
	req := Request{
		Component:     comp.Name,
		VerticalCoord: VerticalCoord,
		Serial:        s.Serial,
	}

	caseName, err := section.String("case_name")
	if err != nil {
		return req, err
	}
	req.CaseNames = []string{caseName}
	req.InputDirs = []string{filepath.Join(outputRoot, caseName, comp.Dir, "hist")}
	req.OutputDirs = []string{filepath.Join(outputRoot, caseName, comp.Dir, "proc", "tseries")}

	if req.NumProcs, err = section.Int("num_procs"); err != nil {
		return req, err
	}
	if req.TSDone, err = section.Bools("ts_done"); err != nil {
		return req, err
	}
	if req.Overwrite, err = section.Bools("overwrite_ts"); err != nil {
		return req, err
	}
	if req.Vars, err = section.Strings(comp.VarsKey()); err != nil {
		return req, err
	}
	if req.DerivedVars, err = section.Strings(comp.DeriveKey()); err != nil {
		return req, err
	}
	if req.HistStr, err = section.String(comp.HistKey()); err != nil {
		return req, err
	}
	if req.StartYears, err = section.Ints(comp.StartYearsKey()); err != nil {
		return req, err
	}
	if req.EndYears, err = section.Ints(comp.EndYearsKey()); err != nil {
		return req, err
	}
	return req, nil
}
