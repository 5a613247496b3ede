package hcl

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/cupidrun/internal/config"
	"github.com/vk/cupidrun/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// Environ supplies the `env` variable; it defaults to os.Environ.
	Environ func() []string
}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{Environ: os.Environ}
}

// fileRoot is a struct used to decode all possible top-level blocks of a
// control file. Top-level attributes land in Remain.
type fileRoot struct {
	DataSources       *attrBlock   `hcl:"data_sources,block"`
	ComputationConfig *attrBlock   `hcl:"computation_config,block"`
	Timeseries        *attrBlock   `hcl:"timeseries,block"`
	Notebooks         []*taskBlock `hcl:"notebook,block"`
	Scripts           []*taskBlock `hcl:"script,block"`
	Remain            hcl.Body     `hcl:",remain"`
}

type attrBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type taskBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// Load parses the HCL control file at path and translates it into the
// format-agnostic model.
func (l *Loader) Load(ctx context.Context, path string) (*config.Control, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	raw, err := l.translate(&root)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate HCL file %s: %w", path, err)
	}
	raw.Path = path

	control, err := config.FromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid control file %s: %w", path, err)
	}

	logger.Debug("HCL loading complete.",
		"notebooks", len(control.Notebooks),
		"scripts", len(control.Scripts),
		"timeseries", control.Timeseries != nil,
	)
	return control, nil
}

// translate evaluates every block and attribute into the Raw document that
// config.FromRaw understands.
func (l *Loader) translate(root *fileRoot) (config.Raw, error) {
	evalCtx := l.evalContext()
	raw := config.Raw{Sections: map[string]any{}}

	top, err := attributesToMap(root.Remain, evalCtx)
	if err != nil {
		return raw, err
	}
	for name, v := range top {
		raw.Sections[name] = v
	}

	blocks := []struct {
		name  string
		block *attrBlock
	}{
		{"data_sources", root.DataSources},
		{"computation_config", root.ComputationConfig},
		{"timeseries", root.Timeseries},
	}
	for _, b := range blocks {
		if b.block == nil {
			continue
		}
		m, err := attributesToMap(b.block.Body, evalCtx)
		if err != nil {
			return raw, fmt.Errorf("in %s: %w", b.name, err)
		}
		raw.Sections[b.name] = m
	}

	var notebooks, scripts map[string]any
	if notebooks, raw.NotebookOrder, err = translateTasks("notebook", root.Notebooks, evalCtx); err != nil {
		return raw, err
	}
	if scripts, raw.ScriptOrder, err = translateTasks("script", root.Scripts, evalCtx); err != nil {
		return raw, err
	}
	raw.NotebookGroupOrder = groupOrder(root.Notebooks, evalCtx)
	raw.ScriptGroupOrder = groupOrder(root.Scripts, evalCtx)
	// An HCL file declares tasks only through blocks, so the notebook section
	// always exists; an empty one is still a valid, if idle, run.
	raw.Sections["compute_notebooks"] = notebooks
	if len(root.Scripts) > 0 {
		raw.Sections["compute_scripts"] = scripts
	}
	return raw, nil
}

func translateTasks(kind string, blocks []*taskBlock, evalCtx *hcl.EvalContext) (map[string]any, []string, error) {
	out := make(map[string]any, len(blocks))
	order := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if _, dup := out[b.Name]; dup {
			return nil, nil, fmt.Errorf("duplicate %s block %q", kind, b.Name)
		}
		m, err := attributesToMap(b.Body, evalCtx)
		if err != nil {
			return nil, nil, fmt.Errorf("in %s %q: %w", kind, b.Name, err)
		}
		out[b.Name] = m
		order = append(order, b.Name)
	}
	return out, order, nil
}

// groupOrder maps each task block to the source order of the keys in its
// parameter_groups object. Blocks whose parameter_groups is not an object
// literal are left out.
func groupOrder(blocks []*taskBlock, evalCtx *hcl.EvalContext) map[string][]string {
	out := map[string][]string{}
	for _, b := range blocks {
		attrs, diags := b.Body.JustAttributes()
		if diags.HasErrors() {
			continue
		}
		attr, ok := attrs["parameter_groups"]
		if !ok {
			continue
		}
		pairs, diags := hcl.ExprMap(attr.Expr)
		if diags.HasErrors() {
			continue
		}
		keys := make([]string, 0, len(pairs))
		for _, pair := range pairs {
			key, diags := pair.Key.Value(evalCtx)
			if diags.HasErrors() || !key.IsKnown() || key.IsNull() || key.Type() != cty.String {
				keys = nil
				break
			}
			keys = append(keys, key.AsString())
		}
		if keys != nil {
			out[b.Name] = keys
		}
	}
	return out
}

func (l *Loader) evalContext() *hcl.EvalContext {
	environ := l.Environ
	if environ == nil {
		environ = os.Environ
	}
	env := map[string]cty.Value{}
	for _, kv := range environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		env[name] = cty.StringVal(value)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
	}
}
