package dcn

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by the typed errors below; test with errors.Is.
var (
	ErrShape    = errors.New("shape mismatch")
	ErrConfig   = errors.New("invalid configuration")
	ErrResource = errors.New("resource limit exceeded")
)

// ShapeError reports a rank, dimension, dtype, layout or divisibility
// mismatch found before any computation ran.
type ShapeError struct {
	Tensor   string // Tensor involved (e.g. "offset")
	Dim      string // Dimension involved (e.g. "channels", "rank")
	Expected int
	Actual   int
	Reason   string // Used instead of Expected/Actual when set
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s %s: %s", ErrShape, e.Tensor, e.Dim, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s: expected %d, got %d", ErrShape, e.Tensor, e.Dim, e.Expected, e.Actual)
}

// Unwrap returns ErrShape.
func (e *ShapeError) Unwrap() error { return ErrShape }

// ConfigError reports an out-of-range configuration field.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %v %s", ErrConfig, e.Field, e.Value, e.Reason)
}

// Unwrap returns ErrConfig.
func (e *ConfigError) Unwrap() error { return ErrConfig }

// ResourceError reports scratch that cannot be allocated: its size overflows
// or exceeds Config.MaxScratchBytes. It is not retried.
type ResourceError struct {
	Resource string
	Bytes    int64 // Requested size; -1 on overflow
	Limit    int64
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	if e.Bytes < 0 {
		return fmt.Sprintf("%s: %s size overflows", ErrResource, e.Resource)
	}
	return fmt.Sprintf("%s: %s needs %d bytes, limit is %d", ErrResource, e.Resource, e.Bytes, e.Limit)
}

// Unwrap returns ErrResource.
func (e *ResourceError) Unwrap() error { return ErrResource }
