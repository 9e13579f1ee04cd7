package tensor

import "fmt"

// Reshape returns a view of r with a new shape. The tensor must be contiguous
// and the element count must not change. No data is copied.
func (r *RawTensor) Reshape(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("reshape: %w", err)
	}
	if shape.NumElements() != r.NumElements() {
		return nil, fmt.Errorf("reshape: cannot view %v (%d elements) as %v (%d elements)",
			r.shape, r.NumElements(), shape, shape.NumElements())
	}
	if !r.IsContiguous() {
		return nil, fmt.Errorf("reshape: tensor with shape %v is not contiguous", r.shape)
	}
	return &RawTensor{
		buffer: r.buffer,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  r.dtype,
		offset: r.offset,
	}, nil
}

// Transpose returns a view with dimensions d0 and d1 swapped.
// The result is generally not contiguous.
func (r *RawTensor) Transpose(d0, d1 int) *RawTensor {
	if d0 < 0 || d0 >= len(r.shape) || d1 < 0 || d1 >= len(r.shape) {
		panic(fmt.Sprintf("transpose: dims (%d, %d) out of range for rank %d", d0, d1, len(r.shape)))
	}
	shape := r.shape.Clone()
	stride := append([]int(nil), r.stride...)
	shape[d0], shape[d1] = shape[d1], shape[d0]
	stride[d0], stride[d1] = stride[d1], stride[d0]
	return &RawTensor{
		buffer: r.buffer,
		shape:  shape,
		stride: stride,
		dtype:  r.dtype,
		offset: r.offset,
	}
}

// Narrow returns a view of length elements of dimension 0 starting at start.
// Narrowing a contiguous tensor along dimension 0 keeps it contiguous.
func (r *RawTensor) Narrow(start, length int) *RawTensor {
	if len(r.shape) == 0 {
		panic("narrow: scalar tensor")
	}
	if start < 0 || length <= 0 || start+length > r.shape[0] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for dimension of size %d",
			start, start+length, r.shape[0]))
	}
	shape := r.shape.Clone()
	shape[0] = length
	return &RawTensor{
		buffer: r.buffer,
		shape:  shape,
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		offset: r.offset + start*r.stride[0],
	}
}

// Unsqueeze adds a leading dimension of size 1. This is a view operation.
func (r *RawTensor) Unsqueeze() *RawTensor {
	return &RawTensor{
		buffer: r.buffer,
		shape:  append(Shape{1}, r.shape...),
		stride: append([]int{r.NumElements()}, r.stride...),
		dtype:  r.dtype,
		offset: r.offset,
	}
}

// Squeeze removes a leading dimension of size 1. This is a view operation.
func (r *RawTensor) Squeeze() *RawTensor {
	if len(r.shape) == 0 || r.shape[0] != 1 {
		panic(fmt.Sprintf("squeeze: leading dimension of %v is not 1", r.shape))
	}
	return &RawTensor{
		buffer: r.buffer,
		shape:  r.shape[1:].Clone(),
		stride: append([]int(nil), r.stride[1:]...),
		dtype:  r.dtype,
		offset: r.offset,
	}
}
