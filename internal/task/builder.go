package task

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"

	"github.com/vk/cupidrun/internal/catalog"
	"github.com/vk/cupidrun/internal/config"
	"github.com/vk/cupidrun/internal/ctxlog"
)

const (
	paramSubsetKwargs = "subset_kwargs"
	paramPathToCat    = "path_to_cat"
)

// Builder produces task descriptors from a control structure.
type Builder struct {
	Layout  Layout
	Catalog catalog.Ref
	Global  GlobalParams
	// DefaultKernel is used for notebooks that do not name a kernel.
	DefaultKernel string
}

// Build returns one descriptor per parameter group of every notebook and
// script, notebooks first, each in declaration order. Dependencies naming a
// declaration are expanded to every task generated from it.
func (b *Builder) Build(ctx context.Context, control *config.Control) ([]Descriptor, error) {
	logger := ctxlog.FromContext(ctx)

	var out []Descriptor
	generated := map[string][]string{}

	add := func(kind Kind, decls []config.TaskDecl) error {
		for _, decl := range decls {
			if _, dup := generated[decl.Name]; dup {
				return fmt.Errorf("task %q is declared more than once", decl.Name)
			}
			tasks := b.expand(kind, decl)
			for _, t := range tasks {
				generated[decl.Name] = append(generated[decl.Name], t.Name)
			}
			out = append(out, tasks...)
		}
		return nil
	}
	if err := add(KindNotebook, control.Notebooks); err != nil {
		return nil, err
	}
	if err := add(KindScript, control.Scripts); err != nil {
		return nil, err
	}

	for i := range out {
		out[i].Dependencies = resolveDependencies(out[i].Dependencies, generated)
		logger.Debug("Built task.", "task", out[i].Name, "kind", out[i].Kind, "dependencies", out[i].Dependencies)
	}
	return out, nil
}

func (b *Builder) expand(kind Kind, decl config.TaskDecl) []Descriptor {
	groups := decl.ParameterGroups
	if len(groups) == 0 {
		groups = []config.ParameterGroup{{Name: config.NoneGroup}}
	}

	tasks := make([]Descriptor, 0, len(groups))
	for _, group := range groups {
		params := b.params(decl, group)

		name := decl.Name
		if group.Name != config.NoneGroup {
			name = decl.Name + "-" + group.Name
		}

		d := Descriptor{
			Name:         name,
			Kind:         kind,
			Cwd:          b.Layout.NbPathRoot,
			Params:       params,
			Dependencies: append([]string(nil), decl.Dependency...),
		}
		switch kind {
		case KindNotebook:
			d.Source = filepath.Join(b.Layout.NbPathRoot, decl.Name+".ipynb")
			d.Product = filepath.Join(b.Layout.OutputDir, name+".ipynb")
			d.Kernel = decl.KernelName
			if d.Kernel == "" {
				d.Kernel = b.DefaultKernel
			}
		case KindScript:
			d.Source = filepath.Join(b.Layout.NbPathRoot, decl.Name+".py")
			if decl.Product != "" {
				d.Product = decl.Product
				if !filepath.IsAbs(d.Product) {
					d.Product = filepath.Join(b.Layout.OutputDir, d.Product)
				}
			}
			d.Kernel = decl.KernelName
		}
		tasks = append(tasks, d)
	}
	return tasks
}

// params overlays the group's parameters on the global parameters (with
// serial), then adds the catalog entries. The overlay is by top-level key: a
// group value replaces the global value whole, nested maps included.
func (b *Builder) params(decl config.TaskDecl, group config.ParameterGroup) map[string]any {
	params := b.Global.Map()
	maps.Copy(params, deepCopyMap(group.Params))
	if decl.HasSubset() {
		params[paramSubsetKwargs] = deepCopyMap(decl.Subset)
	}
	if b.Catalog.InUse() {
		params[paramPathToCat] = b.Catalog.Path
	}
	return params
}

func resolveDependencies(deps []string, generated map[string][]string) []string {
	if len(deps) == 0 {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, dep := range deps {
		names, ok := generated[dep]
		if !ok {
			names = []string{dep}
		}
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}
