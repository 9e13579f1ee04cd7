// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/dcn/tensor"
)

func TestPublicCreation(t *testing.T) {
	x, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)
	assert.Equal(t, tensor.Float64, x.DType())

	xt := x.Transpose(0, 1)
	assert.False(t, xt.IsContiguous())
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, tensor.Data[float64](xt.Contiguous()))

	ones, err := tensor.Full(tensor.Shape{3}, float32(1))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 1}, ones.AsFloat32())

	u, err := tensor.Uniform[float32](tensor.Shape{16}, -1, 1, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	for _, v := range u.AsFloat32() {
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.LessOrEqual(t, v, float32(1))
	}

	_, err = tensor.NewRaw(tensor.Shape{0, 2}, tensor.Float32)
	assert.Error(t, err)
}
