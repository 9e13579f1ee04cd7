// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/dcn/backend/cpu"
)

func TestBilinear(t *testing.T) {
	v, dy, dx := cpu.Bilinear([]float32{1, 2, 3, 4}, 2, 2, 0.5, 0.5)
	assert.InDelta(t, 2.5, v, 1e-6)
	assert.InDelta(t, 2, dy, 1e-6)
	assert.InDelta(t, 1, dx, 1e-6)
}

func TestKernels_RoundTrip(t *testing.T) {
	g := cpu.Geometry{
		Batch: 1, Channels: 1, Height: 2, Width: 2,
		KernelH: 1, KernelW: 1, StrideH: 1, StrideW: 1, DilationH: 1, DilationW: 1,
		OutH: 2, OutW: 2, DeformableGroups: 1,
	}
	input := []float64{1, 2, 3, 4}
	offset := make([]float64, 8)
	cfg := cpu.ParallelConfig{}

	columns := make([]float64, 4)
	cpu.DeformIm2Col(columns, input, offset, nil, g, cfg)
	assert.Equal(t, input, columns)

	gradInput := make([]float64, 4)
	cpu.DeformCol2Im(gradInput, columns, offset, nil, g, cfg)
	assert.Equal(t, input, gradInput)

	gradOffset := make([]float64, 8)
	cpu.DeformCol2ImCoord(gradOffset, nil, []float64{1, 1, 1, 1}, input, offset, nil, g, cfg)
	// ∂/∂y of the linear plane 1 + 2y + x, except where the upper
	// neighbour falls off the plane.
	assert.Equal(t, []float64{2, 2, -3, -4, 1, -2, 1, -4}, gradOffset)

	out := cpu.NewMatrix(1, 4, make([]float64, 4))
	cpu.Gemm(false, false, 2, cpu.NewMatrix(1, 1, []float64{1}), cpu.NewMatrix(1, 4, columns), 0, out)
	assert.Equal(t, []float64{2, 4, 6, 8}, out.Data)
}
