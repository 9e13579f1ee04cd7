// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"math/rand"

	"github.com/born-ml/dcn/internal/tensor"
)

// RawTensor is the low-level tensor representation.
//
// RawTensor provides:
//   - Shape and type information via Shape(), Strides(), DType()
//   - Typed data access via AsFloat32(), AsFloat64() and Data
//   - Zero-copy views via Reshape(), Transpose(), Narrow()
//   - Deep copies via Clone() and Contiguous()
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32)
//	data := raw.AsFloat32()  // Typed access
//	clone := raw.Clone()     // Independent copy
type RawTensor = tensor.RawTensor

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// DataType identifies the element type of a tensor.
type DataType = tensor.DataType

// Float is the constraint satisfied by the supported element types.
type Float = tensor.Float

// Supported data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
)

// NewRaw creates a zero-filled tensor of the given shape and dtype.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// Zeros creates a zero-filled tensor of element type T.
func Zeros[T Float](shape Shape) (*RawTensor, error) {
	return tensor.Zeros[T](shape)
}

// Full creates a tensor filled with value.
func Full[T Float](shape Shape, value T) (*RawTensor, error) {
	return tensor.Full(shape, value)
}

// FromSlice creates a tensor holding a copy of data.
func FromSlice[T Float](data []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}

// Uniform creates a tensor with values drawn uniformly from [lo, hi).
func Uniform[T Float](shape Shape, lo, hi T, rng *rand.Rand) (*RawTensor, error) {
	return tensor.Uniform(shape, lo, hi, rng)
}

// Data returns a zero-copy typed slice over a contiguous tensor.
// It panics if T does not match the tensor's dtype.
func Data[T Float](r *RawTensor) []T {
	return tensor.Data[T](r)
}
