package task

// SerialParam is the parameter every task receives with the serial flag.
const SerialParam = "serial"

// GlobalParams is the parameter set shared by every task of a run. It is
// built once and never modified; Map hands out independent copies.
type GlobalParams struct {
	values map[string]any
}

// NewGlobalParams copies global and adds the serial flag.
func NewGlobalParams(global map[string]any, serial bool) GlobalParams {
	values := deepCopyMap(global)
	if values == nil {
		values = map[string]any{}
	}
	values[SerialParam] = serial
	return GlobalParams{values: values}
}

// Map returns a deep copy of the parameters.
func (g GlobalParams) Map() map[string]any {
	out := deepCopyMap(g.values)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopy(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
