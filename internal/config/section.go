package config

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// Section is a loosely typed configuration section whose keys are looked up
// on first use. Lookups of absent keys fail with ErrMissingKey.
type Section struct {
	name   string
	values map[string]any
}

// NewSection wraps values as a named section. The map is copied.
func NewSection(name string, values map[string]any) *Section {
	return &Section{name: name, values: maps.Clone(values)}
}

// Value returns the raw value stored under key.
func (s *Section) Value(key string) (any, error) {
	v, ok := s.values[key]
	if !ok {
		return nil, missingKey(s.name, key)
	}
	return v, nil
}

// String returns the value under key as a string.
func (s *Section) String(key string) (string, error) {
	v, err := s.Value(key)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", invalidValue(s.name, key, "string", v)
	}
	return str, nil
}

// Strings returns the value under key as a list of strings. A scalar string
// is returned as a one-element list and null as an empty list.
func (s *Section) Strings(key string) ([]string, error) {
	v, err := s.Value(key)
	if err != nil {
		return nil, err
	}
	out, err := AsStrings(v)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", s.name, key, err)
	}
	return out, nil
}

// Int returns the value under key as an int.
func (s *Section) Int(key string) (int, error) {
	v, err := s.Value(key)
	if err != nil {
		return 0, err
	}
	n, ok := asInt(v)
	if !ok {
		return 0, invalidValue(s.name, key, "integer", v)
	}
	return n, nil
}

// Ints returns the value under key as a list of ints. A scalar is returned
// as a one-element list.
func (s *Section) Ints(key string) ([]int, error) {
	v, err := s.Value(key)
	if err != nil {
		return nil, err
	}
	if n, ok := asInt(v); ok {
		return []int{n}, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, invalidValue(s.name, key, "list of integers", v)
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		n, ok := asInt(item)
		if !ok {
			return nil, invalidValue(s.name, key, "list of integers", v)
		}
		out = append(out, n)
	}
	return out, nil
}

// Bool returns the value under key as a bool.
func (s *Section) Bool(key string) (bool, error) {
	v, err := s.Value(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, invalidValue(s.name, key, "boolean", v)
	}
	return b, nil
}

// Bools returns the value under key as a list of bools. A scalar is
// returned as a one-element list.
func (s *Section) Bools(key string) ([]bool, error) {
	v, err := s.Value(key)
	if err != nil {
		return nil, err
	}
	if b, ok := v.(bool); ok {
		return []bool{b}, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, invalidValue(s.name, key, "list of booleans", v)
	}
	out := make([]bool, 0, len(list))
	for _, item := range list {
		b, ok := item.(bool)
		if !ok {
			return nil, invalidValue(s.name, key, "list of booleans", v)
		}
		out = append(out, b)
	}
	return out, nil
}

// AsStrings converts a scalar string, a list of strings or null into a
// string slice.
func AsStrings(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return []string{}, nil
	case string:
		return []string{t}, nil
	case []string:
		return slices.Clone(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: expected list of strings, got element %v (%T)", ErrInvalidValue, item, item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected string or list of strings, got %T", ErrInvalidValue, v)
	}
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case uint64:
		return int(t), true
	case float64:
		if t == math.Trunc(t) {
			return int(t), true
		}
	}
	return 0, false
}

func missingKey(section, key string) error {
	if section == "" {
		return fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return fmt.Errorf("%w: %s.%s", ErrMissingKey, section, key)
}

func invalidValue(section, key, want string, got any) error {
	if section == "" {
		return fmt.Errorf("%w: %s must be a %s, got %T", ErrInvalidValue, key, want, got)
	}
	return fmt.Errorf("%w: %s.%s must be a %s, got %T", ErrInvalidValue, section, key, want, got)
}
