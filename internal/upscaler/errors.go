package upscaler

import "errors"

var (
	// ErrInvalidDescription is returned for malformed context or dispatch descriptions.
	ErrInvalidDescription = errors.New("invalid description")
	// ErrInvalidSize is returned when a resolution is empty or out of range.
	ErrInvalidSize = errors.New("invalid size")
	// ErrMissingInput is returned when a required dispatch resource is nil.
	ErrMissingInput = errors.New("missing input")
	// ErrContextDestroyed is returned when a destroyed context is used.
	ErrContextDestroyed = errors.New("context destroyed")
)
