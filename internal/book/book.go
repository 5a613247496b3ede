// Package book prepares the Jupyter Book skeleton that collects the executed
// notebooks of a run.
package book

import (
	"context"
	"fmt"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/spf13/afero"
	"github.com/vk/cupidrun/internal/config"
	"github.com/vk/cupidrun/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFile = "_config.yml"
	TocFile    = "_toc.yml"
)

// defaultConfig is the base _config.yml; book_config_keys override it.
func defaultConfig() map[string]any {
	return map[string]any{
		"title":     "CUPiD Diagnostics",
		"author":    "CUPiD",
		"copyright": "2024",
		"execute": map[string]any{
			"execute_notebooks": "off",
		},
		"html": map[string]any{
			"use_issues_button":     false,
			"use_repository_button": false,
		},
	}
}

// Setup creates outputDir and writes the book configuration into it.
// _toc.yml is only written when the control file has a book_toc section.
func Setup(ctx context.Context, fs afero.Fs, outputDir string, control *config.Control) error {
	logger := ctxlog.FromContext(ctx)

	if err := fs.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating book directory: %w", err)
	}

	cfg := defaultConfig()
	if len(control.BookConfigKeys) > 0 {
		overrides := make(map[string]any, len(control.BookConfigKeys))
		for k, v := range control.BookConfigKeys {
			overrides[k] = v
		}
		if err := mergo.Merge(&cfg, overrides, mergo.WithOverride); err != nil {
			return fmt.Errorf("merging book_config_keys: %w", err)
		}
	}
	if err := writeYAML(fs, filepath.Join(outputDir, ConfigFile), cfg); err != nil {
		return err
	}
	logger.Debug("Book configuration written.", "path", filepath.Join(outputDir, ConfigFile))

	if control.BookToc == nil {
		return nil
	}
	if err := writeYAML(fs, filepath.Join(outputDir, TocFile), control.BookToc); err != nil {
		return err
	}
	logger.Debug("Book table of contents written.", "path", filepath.Join(outputDir, TocFile))
	return nil
}

func writeYAML(fs afero.Fs, path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
