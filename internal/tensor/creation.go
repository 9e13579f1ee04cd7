package tensor

import (
	"fmt"
	"math/rand"
)

// Zeros creates a zero-filled tensor of element type T.
func Zeros[T Float](shape Shape) (*RawTensor, error) {
	return NewRaw(shape, DataTypeOf[T]())
}

// Full creates a tensor filled with value.
func Full[T Float](shape Shape, value T) (*RawTensor, error) {
	t, err := Zeros[T](shape)
	if err != nil {
		return nil, err
	}
	data := Data[T](t)
	for i := range data {
		data[i] = value
	}
	return t, nil
}

// FromSlice creates a tensor holding a copy of data.
//
// Example:
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
func FromSlice[T Float](data []T, shape Shape) (*RawTensor, error) {
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	t, err := Zeros[T](shape)
	if err != nil {
		return nil, err
	}
	copy(Data[T](t), data)
	return t, nil
}

// Uniform creates a tensor with values drawn uniformly from [lo, hi).
// Note: Uses math/rand (not crypto/rand) - appropriate for ML/statistical purposes.
func Uniform[T Float](shape Shape, lo, hi T, rng *rand.Rand) (*RawTensor, error) {
	t, err := Zeros[T](shape)
	if err != nil {
		return nil, err
	}
	data := Data[T](t)
	for i := range data {
		data[i] = lo + T(rng.Float64())*(hi-lo)
	}
	return t, nil
}
