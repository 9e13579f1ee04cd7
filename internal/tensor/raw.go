package tensor

import (
	"fmt"
	"unsafe"
)

// tensorBuffer is the backing storage shared by a tensor and its views.
type tensorBuffer struct {
	data []byte
}

func newTensorBuffer(size int) *tensorBuffer {
	return &tensorBuffer{data: make([]byte, size)}
}

// RawTensor is the low-level tensor representation.
// Views (Reshape, Transpose, Narrow) share the buffer of their source.
type RawTensor struct {
	buffer *tensorBuffer // Shared buffer
	shape  Shape         // Tensor dimensions
	stride []int         // Element strides
	dtype  DataType      // Runtime type information
	offset int           // Element offset of the first element within buffer
}

// NewRaw creates a new zero-filled RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	byteSize := shape.NumElements() * dtype.Size()

	return &RawTensor{
		buffer: newTensorBuffer(byteSize),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Rank returns the number of dimensions.
func (r *RawTensor) Rank() int {
	return len(r.shape)
}

// Strides returns the tensor's element strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the logical size of the tensor in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// IsContiguous reports whether the strides are the row-major strides of the
// shape, i.e. the elements occupy one gap-free run of the buffer.
// Dimensions of size 1 do not affect contiguity.
func (r *RawTensor) IsContiguous() bool {
	expected := 1
	for i := len(r.shape) - 1; i >= 0; i-- {
		if r.shape[i] == 1 {
			continue
		}
		if r.stride[i] != expected {
			return false
		}
		expected *= r.shape[i]
	}
	return true
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32 or the tensor is not contiguous.
func (r *RawTensor) AsFloat32() []float32 {
	return Data[float32](r)
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64 or the tensor is not contiguous.
func (r *RawTensor) AsFloat64() []float64 {
	return Data[float64](r)
}

// Data returns a zero-copy typed slice over a contiguous tensor.
func Data[T Float](r *RawTensor) []T {
	if dt := DataTypeOf[T](); dt != r.dtype {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, dt))
	}
	if !r.IsContiguous() {
		panic(fmt.Sprintf("tensor with shape %v and strides %v is not contiguous", r.shape, r.stride))
	}
	start := r.offset * r.dtype.Size()
	data := r.buffer.data[start : start+r.ByteSize()]
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by the slice expression above
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), r.NumElements())
}

// Bytes returns the raw bytes (host byte order) of a contiguous tensor without
// copying. Panics if the tensor is not contiguous.
func (r *RawTensor) Bytes() []byte {
	if !r.IsContiguous() {
		panic(fmt.Sprintf("tensor with shape %v and strides %v is not contiguous", r.shape, r.stride))
	}
	start := r.offset * r.dtype.Size()
	return r.buffer.data[start : start+r.ByteSize()]
}

// Contiguous returns r if it is already contiguous, otherwise a compact copy.
func (r *RawTensor) Contiguous() *RawTensor {
	if r.IsContiguous() {
		return r
	}
	out, err := NewRaw(r.shape, r.dtype)
	if err != nil {
		panic(fmt.Sprintf("contiguous: %v", err))
	}
	copyStrided(out, r)
	return out
}

// Clone returns a deep, contiguous copy of the tensor.
func (r *RawTensor) Clone() *RawTensor {
	out, err := NewRaw(r.shape, r.dtype)
	if err != nil {
		panic(fmt.Sprintf("clone: %v", err))
	}
	copyStrided(out, r)
	return out
}

// copyStrided copies src element by element into the contiguous dst.
func copyStrided(dst, src *RawTensor) {
	size := src.dtype.Size()
	index := make([]int, len(src.shape))
	total := src.NumElements()
	for linear := 0; linear < total; linear++ {
		srcOff := src.offset
		for d, i := range index {
			srcOff += i * src.stride[d]
		}
		copy(dst.buffer.data[linear*size:(linear+1)*size], src.buffer.data[srcOff*size:(srcOff+1)*size])

		for d := len(index) - 1; d >= 0; d-- {
			index[d]++
			if index[d] < src.shape[d] {
				break
			}
			index[d] = 0
		}
	}
}
