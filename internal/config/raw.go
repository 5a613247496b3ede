package config

import (
	"fmt"
	"maps"
	"slices"
)

const (
	sectionDataSources       = "data_sources"
	sectionGlobalParams      = "global_params"
	sectionTimeseries        = "timeseries"
	sectionComputationConfig = "computation_config"
	sectionNotebooks         = "compute_notebooks"
	sectionScripts           = "compute_scripts"
	sectionBookConfigKeys    = "book_config_keys"
	sectionBookToc           = "book_toc"

	// NoneGroup is the parameter group name that keeps a task's plain name.
	NoneGroup = "none"
)

// Raw is a decoded control document before translation into a Control.
// Loaders produce plain Go values: string, bool, int, float64, []any and
// map[string]any.
type Raw struct {
	Path     string
	Sections map[string]any

	// NotebookOrder and ScriptOrder list the keys of compute_notebooks and
	// compute_scripts in file order. When nil, keys are sorted.
	NotebookOrder []string
	ScriptOrder   []string

	// NotebookGroupOrder and ScriptGroupOrder map a task name to the keys of
	// its parameter_groups in file order. A task without an entry gets "none"
	// first and the rest sorted.
	NotebookGroupOrder map[string][]string
	ScriptGroupOrder   map[string][]string
}

// FromRaw translates a decoded document into the format-agnostic model and
// checks the keys every run needs.
func FromRaw(raw Raw) (*Control, error) {
	c := &Control{Path: raw.Path}

	ds, err := requireMap(raw.Sections, "", sectionDataSources)
	if err != nil {
		return nil, err
	}
	if c.DataSources, err = decodeDataSources(ds); err != nil {
		return nil, err
	}

	if c.GlobalParams, err = optionalMap(raw.Sections, "", sectionGlobalParams); err != nil {
		return nil, err
	}
	if c.GlobalParams == nil {
		c.GlobalParams = map[string]any{}
	}

	if _, ok := raw.Sections[sectionTimeseries]; ok {
		ts, err := optionalMap(raw.Sections, "", sectionTimeseries)
		if err != nil {
			return nil, err
		}
		c.Timeseries = NewSection(sectionTimeseries, ts)
	}

	cc, err := optionalMap(raw.Sections, "", sectionComputationConfig)
	if err != nil {
		return nil, err
	}
	if kernel, ok := cc["default_kernel_name"].(string); ok {
		c.ComputationConfig.DefaultKernelName = kernel
	}

	nbs, err := requireMap(raw.Sections, "", sectionNotebooks)
	if err != nil {
		return nil, err
	}
	if c.Notebooks, err = decodeTaskDecls(sectionNotebooks, nbs, raw.NotebookOrder, raw.NotebookGroupOrder); err != nil {
		return nil, err
	}

	scripts, err := optionalMap(raw.Sections, "", sectionScripts)
	if err != nil {
		return nil, err
	}
	if c.Scripts, err = decodeTaskDecls(sectionScripts, scripts, raw.ScriptOrder, raw.ScriptGroupOrder); err != nil {
		return nil, err
	}

	if c.BookConfigKeys, err = optionalMap(raw.Sections, "", sectionBookConfigKeys); err != nil {
		return nil, err
	}
	c.BookToc = raw.Sections[sectionBookToc]

	return c, nil
}

func decodeDataSources(m map[string]any) (DataSources, error) {
	var ds DataSources
	var err error
	if ds.RunDir, err = requireString(m, sectionDataSources, "run_dir"); err != nil {
		return ds, err
	}
	if ds.SName, err = requireString(m, sectionDataSources, "sname"); err != nil {
		return ds, err
	}
	if ds.NbPathRoot, err = requireString(m, sectionDataSources, "nb_path_root"); err != nil {
		return ds, err
	}
	if v, ok := m["path_to_cat_json"]; ok && v != nil {
		str, ok := v.(string)
		if !ok {
			return ds, invalidValue(sectionDataSources, "path_to_cat_json", "string", v)
		}
		ds.CatalogPath = str
	}
	if ds.Subset, err = optionalMap(m, sectionDataSources, "subset"); err != nil {
		return ds, err
	}
	return ds, nil
}

func decodeTaskDecls(section string, m map[string]any, order []string, groupOrder map[string][]string) ([]TaskDecl, error) {
	if len(m) == 0 {
		return nil, nil
	}
	if order == nil {
		order = slices.Sorted(maps.Keys(m))
	}

	decls := make([]TaskDecl, 0, len(order))
	for _, name := range order {
		raw, ok := m[name]
		if !ok {
			continue
		}
		info, ok := raw.(map[string]any)
		if raw != nil && !ok {
			return nil, invalidValue(section, name, "mapping", raw)
		}
		decl, err := decodeTaskDecl(section, name, info, groupOrder[name])
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

func decodeTaskDecl(section, name string, info map[string]any, groupOrder []string) (TaskDecl, error) {
	decl := TaskDecl{Name: name}
	where := section + "." + name

	for key, v := range info {
		switch key {
		case "parameter_groups":
			groups, err := decodeParameterGroups(where, v, groupOrder)
			if err != nil {
				return decl, err
			}
			decl.ParameterGroups = groups
		case "dependency":
			deps, err := AsStrings(v)
			if err != nil {
				return decl, fmt.Errorf("%s.dependency: %w", where, err)
			}
			decl.Dependency = deps
		case "kernel_name":
			str, ok := v.(string)
			if !ok {
				return decl, invalidValue(where, key, "string", v)
			}
			decl.KernelName = str
		case "product":
			str, ok := v.(string)
			if !ok {
				return decl, invalidValue(where, key, "string", v)
			}
			decl.Product = str
		case "subset":
			sub, ok := v.(map[string]any)
			if v != nil && !ok {
				return decl, invalidValue(where, key, "mapping", v)
			}
			if sub == nil {
				sub = map[string]any{}
			}
			decl.Subset = sub
		}
	}

	if len(decl.ParameterGroups) == 0 {
		decl.ParameterGroups = []ParameterGroup{{Name: NoneGroup, Params: map[string]any{}}}
	}
	return decl, nil
}

// decodeParameterGroups returns the groups in the given order. Without one,
// "none" comes first and the rest are sorted by name, so repeated loads of
// the same file yield the same order.
func decodeParameterGroups(where string, v any, order []string) ([]ParameterGroup, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, invalidValue(where, "parameter_groups", "mapping", v)
	}

	names := groupNames(m, order)
	groups := make([]ParameterGroup, 0, len(names))
	for _, name := range names {
		params, ok := m[name].(map[string]any)
		if m[name] != nil && !ok {
			return nil, invalidValue(where+".parameter_groups", name, "mapping", m[name])
		}
		if params == nil {
			params = map[string]any{}
		}
		groups = append(groups, ParameterGroup{Name: name, Params: params})
	}
	return groups, nil
}

// groupNames lists the keys of m following order. Keys missing from order are
// appended in the default order.
func groupNames(m map[string]any, order []string) []string {
	names := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, name := range order {
		if _, ok := m[name]; ok && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	rest := slices.SortedFunc(maps.Keys(m), func(a, b string) int {
		switch {
		case a == b:
			return 0
		case a == NoneGroup:
			return -1
		case b == NoneGroup:
			return 1
		case a < b:
			return -1
		default:
			return 1
		}
	})
	for _, name := range rest {
		if !seen[name] {
			names = append(names, name)
		}
	}
	return names
}

func requireMap(m map[string]any, section, key string) (map[string]any, error) {
	v, ok := m[key]
	if !ok {
		return nil, missingKey(section, key)
	}
	out, ok := v.(map[string]any)
	if v != nil && !ok {
		return nil, invalidValue(section, key, "mapping", v)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func optionalMap(m map[string]any, section, key string) (map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	out, ok := v.(map[string]any)
	if !ok {
		return nil, invalidValue(section, key, "mapping", v)
	}
	return out, nil
}

func requireString(m map[string]any, section, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", missingKey(section, key)
	}
	str, ok := v.(string)
	if !ok {
		return "", invalidValue(section, key, "string", v)
	}
	return str, nil
}
