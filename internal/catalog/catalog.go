package catalog

import (
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// ErrInvalidCatalog is returned for catalogs that cannot be read or searched.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is an ESM collection: a JSON description plus a table of assets,
// one row per file.
type Catalog struct {
	// Collection holds the collection description with catalog_file and
	// catalog_dict removed.
	Collection map[string]any
	Columns    []string
	Rows       []map[string]string
}

// Open reads the collection JSON at path and its table, either inline
// (catalog_dict) or from the CSV named by catalog_file. A relative
// catalog_file is resolved against the JSON's directory.
func Open(fs afero.Fs, path string) (*Catalog, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var coll map[string]any
	if err := json.Unmarshal(data, &coll); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, path, err)
	}

	cat := &Catalog{Collection: coll}
	inline, hasInline := coll["catalog_dict"]
	file, hasFile := coll["catalog_file"].(string)
	delete(coll, "catalog_dict")
	delete(coll, "catalog_file")

	switch {
	case hasInline && inline != nil:
		if err := cat.loadInline(inline); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, path, err)
		}
	case hasFile && file != "":
		if !filepath.IsAbs(file) {
			file = filepath.Join(filepath.Dir(path), file)
		}
		if err := cat.loadCSV(fs, file); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, file, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s: neither catalog_file nor catalog_dict is set", ErrInvalidCatalog, path)
	}
	return cat, nil
}

func (c *Catalog) loadInline(v any) error {
	records, ok := v.([]any)
	if !ok {
		return fmt.Errorf("catalog_dict must be a list, got %T", v)
	}
	seen := map[string]bool{}
	for _, rec := range records {
		m, ok := rec.(map[string]any)
		if !ok {
			return fmt.Errorf("catalog_dict entries must be objects, got %T", rec)
		}
		row := make(map[string]string, len(m))
		for k, val := range m {
			row[k] = stringify(val)
			seen[k] = true
		}
		c.Rows = append(c.Rows, row)
	}
	c.Columns = c.orderColumns(slices.Collect(maps.Keys(seen)))
	return nil
}

func (c *Catalog) loadCSV(fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gz.Close()
		r = gz
	}

	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.New("empty table")
	}
	c.Columns = records[0]
	for _, rec := range records[1:] {
		row := make(map[string]string, len(c.Columns))
		for i, col := range c.Columns {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		c.Rows = append(c.Rows, row)
	}
	return nil
}

// orderColumns puts the columns named in the collection attributes first, in
// their declared order, followed by the rest sorted.
func (c *Catalog) orderColumns(cols []string) []string {
	var ordered []string
	if attrs, ok := c.Collection["attributes"].([]any); ok {
		for _, a := range attrs {
			m, _ := a.(map[string]any)
			name, _ := m["column_name"].(string)
			if slices.Contains(cols, name) && !slices.Contains(ordered, name) {
				ordered = append(ordered, name)
			}
		}
	}
	rest := slices.DeleteFunc(slices.Clone(cols), func(s string) bool { return slices.Contains(ordered, s) })
	slices.Sort(rest)
	return append(ordered, rest...)
}

// Len returns the number of assets in the catalog.
func (c *Catalog) Len() int {
	return len(c.Rows)
}

// Search returns a new catalog holding the rows where every queried column
// equals the query value, or any of the values when a list is given.
func (c *Catalog) Search(query map[string]any) (*Catalog, error) {
	want := make(map[string][]string, len(query))
	for col, v := range query {
		if !slices.Contains(c.Columns, col) {
			return nil, fmt.Errorf("%w: unknown column %q", ErrInvalidCatalog, col)
		}
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				want[col] = append(want[col], stringify(item))
			}
		case []string:
			want[col] = slices.Clone(t)
		default:
			want[col] = []string{stringify(t)}
		}
	}

	out := &Catalog{Collection: maps.Clone(c.Collection), Columns: slices.Clone(c.Columns)}
	for _, row := range c.Rows {
		if matches(row, want) {
			out.Rows = append(out.Rows, maps.Clone(row))
		}
	}
	return out, nil
}

func matches(row map[string]string, want map[string][]string) bool {
	for col, values := range want {
		if !slices.Contains(values, row[col]) {
			return false
		}
	}
	return true
}

// Serialize writes the catalog as <dir>/<name>.json plus <dir>/<name>.csv and
// returns the JSON path.
func (c *Catalog) Serialize(fs afero.Fs, dir, name string) (string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating catalog directory: %w", err)
	}

	csvPath := filepath.Join(dir, name+".csv")
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(c.Columns); err != nil {
		return "", err
	}
	for _, row := range c.Rows {
		rec := make([]string, len(c.Columns))
		for i, col := range c.Columns {
			rec[i] = row[col]
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	if err := afero.WriteFile(fs, csvPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing catalog table: %w", err)
	}

	coll := maps.Clone(c.Collection)
	if coll == nil {
		coll = map[string]any{}
	}
	coll["id"] = name
	coll["catalog_file"] = csvPath
	data, err := json.MarshalIndent(coll, "", "  ")
	if err != nil {
		return "", err
	}
	jsonPath := filepath.Join(dir, name+".json")
	if err := afero.WriteFile(fs, jsonPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing catalog description: %w", err)
	}
	return jsonPath, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
	}
	return fmt.Sprint(v)
}
