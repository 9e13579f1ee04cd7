// Package dcn implements deformable convolution (standard and modulated)
// on top of the deformable im2col kernels in internal/backend/cpu.
//
// Forward and backward passes validate every tensor shape up front, then
// process the batch in chunks of Im2ColStep samples: gather the deformed
// patches into a column matrix and multiply it with the flattened weight.
package dcn

import (
	"math"

	"github.com/born-ml/dcn/internal/parallel"
)

// DefaultIm2ColStep is the default number of samples gathered per chunk.
const DefaultIm2ColStep = 64

// Config holds the convolution geometry and execution knobs shared by the
// forward and backward passes.
type Config struct {
	KernelH, KernelW     int // Kernel size; must match the weight's last two dims.
	StrideH, StrideW     int // Stride, > 0.
	PadH, PadW           int // Zero padding, >= 0.
	DilationH, DilationW int // Dilation, > 0.

	DeformableGroups int // Number of offset groups G; must divide Cin.

	// Im2ColStep is the number of samples processed per chunk. The effective
	// step is min(Im2ColStep, N) and must divide N. It trades scratch memory
	// for loop iterations and never changes results.
	Im2ColStep int

	WithBias bool    // Add bias in forward and produce its gradient in backward.
	Scale    float64 // Factor applied to the weight gradient.

	// MaxScratchBytes bounds the scratch a single call may allocate.
	// Zero means unlimited.
	MaxScratchBytes int64

	Parallel parallel.Config // Worker configuration for the sampling kernels.
}

// DefaultConfig returns a stride-1, unpadded, undilated configuration for a
// kh×kw kernel with one deformable group.
func DefaultConfig(kh, kw int) Config {
	return Config{
		KernelH:          kh,
		KernelW:          kw,
		StrideH:          1,
		StrideW:          1,
		DilationH:        1,
		DilationW:        1,
		DeformableGroups: 1,
		Im2ColStep:       DefaultIm2ColStep,
		Scale:            1,
		Parallel:         parallel.DefaultConfig(),
	}
}

// Validate checks that every field is in range.
func (c Config) Validate() error {
	switch {
	case c.KernelH <= 0 || c.KernelW <= 0:
		return &ConfigError{Field: "kernel", Value: [2]int{c.KernelH, c.KernelW}, Reason: "must be greater than zero"}
	case c.StrideH <= 0 || c.StrideW <= 0:
		return &ConfigError{Field: "stride", Value: [2]int{c.StrideH, c.StrideW}, Reason: "must be greater than zero"}
	case c.DilationH <= 0 || c.DilationW <= 0:
		return &ConfigError{Field: "dilation", Value: [2]int{c.DilationH, c.DilationW}, Reason: "must be greater than zero"}
	case c.PadH < 0 || c.PadW < 0:
		return &ConfigError{Field: "padding", Value: [2]int{c.PadH, c.PadW}, Reason: "must not be negative"}
	case c.DeformableGroups <= 0:
		return &ConfigError{Field: "deformable_groups", Value: c.DeformableGroups, Reason: "must be greater than zero"}
	case c.Im2ColStep <= 0:
		return &ConfigError{Field: "im2col_step", Value: c.Im2ColStep, Reason: "must be greater than zero"}
	case c.MaxScratchBytes < 0:
		return &ConfigError{Field: "max_scratch_bytes", Value: c.MaxScratchBytes, Reason: "must not be negative"}
	case math.IsNaN(c.Scale) || math.IsInf(c.Scale, 0):
		return &ConfigError{Field: "scale", Value: c.Scale, Reason: "must be finite"}
	}
	return nil
}

// OutputSize returns the spatial output size for an height×width input:
// floor((in + 2*pad - (dilation*(k-1)+1)) / stride) + 1 per axis.
// The result may be < 1; callers must reject that.
func (c Config) OutputSize(height, width int) (int, int) {
	outH := floorDiv(height+2*c.PadH-(c.DilationH*(c.KernelH-1)+1), c.StrideH) + 1
	outW := floorDiv(width+2*c.PadW-(c.DilationW*(c.KernelW-1)+1), c.StrideW) + 1
	return outH, outW
}

// floorDiv divides rounding toward negative infinity; b > 0.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}
