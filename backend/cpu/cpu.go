// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/dcn/internal/backend/cpu"
	"github.com/born-ml/dcn/internal/parallel"
	"github.com/born-ml/dcn/tensor"
)

// Geometry describes one batch chunk processed by the kernels.
type Geometry = internalcpu.DeformGeometry

// ParallelConfig controls how kernels split their work.
type ParallelConfig = parallel.Config

// Matrix is a row-major, possibly strided matrix view.
type Matrix[T tensor.Float] = internalcpu.Matrix[T]

// NewMatrix wraps data as a dense rows×cols matrix.
func NewMatrix[T tensor.Float](rows, cols int, data []T) Matrix[T] {
	return internalcpu.NewMatrix(rows, cols, data)
}

// Gemm computes C = alpha * op(A) × op(B) + beta * C.
func Gemm[T tensor.Float](transA, transB bool, alpha T, a, b Matrix[T], beta T, c Matrix[T]) {
	internalcpu.Gemm(transA, transB, alpha, a, b, beta, c)
}

// Bilinear samples a height×width plane at (y, x) with zero padding and
// returns the value and its partial derivatives.
//
// Example:
//
//	v, dy, dx := cpu.Bilinear([]float32{1, 2, 3, 4}, 2, 2, 0.5, 0.5) // 2.5, 2, 1
func Bilinear[T tensor.Float](plane []T, height, width int, y, x T) (value, dy, dx T) {
	return internalcpu.Bilinear(plane, height, width, y, x)
}

// DeformIm2Col gathers deformed patches into columns. mask may be nil.
func DeformIm2Col[T tensor.Float](columns, input, offset, mask []T, g Geometry, cfg ParallelConfig) {
	internalcpu.DeformIm2Col(columns, input, offset, mask, g, cfg)
}

// DeformCol2Im adds the adjoint of DeformIm2Col applied to columns into
// gradInput.
func DeformCol2Im[T tensor.Float](gradInput, columns, offset, mask []T, g Geometry, cfg ParallelConfig) {
	internalcpu.DeformCol2Im(gradInput, columns, offset, mask, g, cfg)
}

// DeformCol2ImCoord computes the offset gradient and, when mask is non-nil,
// the mask gradient from column gradients.
func DeformCol2ImCoord[T tensor.Float](gradOffset, gradMask, columns, input, offset, mask []T, g Geometry, cfg ParallelConfig) {
	internalcpu.DeformCol2ImCoord(gradOffset, gradMask, columns, input, offset, mask, g, cfg)
}
