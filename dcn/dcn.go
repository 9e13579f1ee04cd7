// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dcn

import (
	"log/slog"

	"github.com/born-ml/dcn/internal/dcn"
	"github.com/born-ml/dcn/internal/parallel"
)

// Config holds the convolution geometry and execution knobs.
// See DefaultConfig for the defaults.
type Config = dcn.Config

// ParallelConfig controls the worker pool of the sampling kernels.
type ParallelConfig = parallel.Config

// DeformConv is the standard deformable convolution operator.
type DeformConv = dcn.DeformConv

// ModulatedDeformConv is the modulated deformable convolution operator.
type ModulatedDeformConv = dcn.ModulatedDeformConv

// Gradients holds the results of a backward pass.
type Gradients = dcn.Gradients

// Option configures an operator.
type Option = dcn.Option

// Error types.
type (
	ShapeError    = dcn.ShapeError
	ConfigError   = dcn.ConfigError
	ResourceError = dcn.ResourceError
)

// Sentinel errors matched by errors.Is.
var (
	ErrShape    = dcn.ErrShape
	ErrConfig   = dcn.ErrConfig
	ErrResource = dcn.ErrResource
)

// DefaultIm2ColStep is the default number of samples gathered per chunk.
const DefaultIm2ColStep = dcn.DefaultIm2ColStep

// DefaultConfig returns a stride-1, unpadded, undilated configuration for a
// kh×kw kernel with one deformable group.
func DefaultConfig(kh, kw int) Config {
	return dcn.DefaultConfig(kh, kw)
}

// DefaultParallelConfig uses one worker per CPU.
func DefaultParallelConfig() ParallelConfig {
	return parallel.DefaultConfig()
}

// SequentialConfig runs every kernel on the calling goroutine.
func SequentialConfig() ParallelConfig {
	return parallel.Sequential()
}

// NewDeformConv creates a standard deformable convolution operator.
//
// Example:
//
//	cfg := dcn.DefaultConfig(3, 3)
//	cfg.PadH, cfg.PadW = 1, 1
//	op, err := dcn.NewDeformConv(cfg)
//	out, err := op.Forward(input, weight, offset, nil)
func NewDeformConv(cfg Config, opts ...Option) (*DeformConv, error) {
	return dcn.NewDeformConv(cfg, opts...)
}

// NewModulatedDeformConv creates a modulated deformable convolution operator.
func NewModulatedDeformConv(cfg Config, opts ...Option) (*ModulatedDeformConv, error) {
	return dcn.NewModulatedDeformConv(cfg, opts...)
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return dcn.WithLogger(logger)
}
