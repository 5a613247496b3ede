package config

import "errors"

var (
	// ErrMissingKey is returned when a required key is absent at the point
	// it is first needed.
	ErrMissingKey = errors.New("missing required key")

	// ErrInvalidValue is returned when a key holds a value of the wrong shape.
	ErrInvalidValue = errors.New("invalid value")

	// ErrUnsupportedFormat is returned for control files with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported configuration format")
)
