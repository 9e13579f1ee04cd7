package cpu

import (
	"math"

	"github.com/born-ml/dcn/internal/tensor"
)

// corner is one lattice neighbour of a sampling point. Corners that fall
// outside the plane have valid == false and behave as zero padding.
type corner[T tensor.Float] struct {
	index  int // h*width + w within the plane
	weight T   // bilinear interpolation weight
	valid  bool
}

// samplePoint holds the four neighbours of a fractional coordinate in the
// order (low,low), (low,high), (high,low), (high,high) plus the fractional
// parts used for the derivatives.
type samplePoint[T tensor.Float] struct {
	corners [4]corner[T]
	dy, dx  T
}

// locate computes the bilinear neighbourhood of (y, x) on a height×width
// plane. Points with y <= -1, x <= -1, y >= height or x >= width have no
// valid corner and sample to exactly zero.
func locate[T tensor.Float](y, x T, height, width int) samplePoint[T] {
	var p samplePoint[T]
	if !(y > -1 && x > -1 && y < T(height) && x < T(width)) {
		return p
	}

	hLow := int(math.Floor(float64(y)))
	wLow := int(math.Floor(float64(x)))
	hHigh, wHigh := hLow+1, wLow+1
	dy := y - T(hLow)
	dx := x - T(wLow)
	p.dy, p.dx = dy, dx

	p.corners[0] = makeCorner(hLow, wLow, (1-dy)*(1-dx), height, width)
	p.corners[1] = makeCorner(hLow, wHigh, (1-dy)*dx, height, width)
	p.corners[2] = makeCorner(hHigh, wLow, dy*(1-dx), height, width)
	p.corners[3] = makeCorner(hHigh, wHigh, dy*dx, height, width)
	return p
}

func makeCorner[T tensor.Float](h, w int, weight T, height, width int) corner[T] {
	if h < 0 || h >= height || w < 0 || w >= width {
		return corner[T]{}
	}
	return corner[T]{index: h*width + w, weight: weight, valid: true}
}

// neighbours reads the four corner values, zero for invalid corners.
func (p *samplePoint[T]) neighbours(plane []T) [4]T {
	var v [4]T
	for k, c := range p.corners {
		if c.valid {
			v[k] = plane[c.index]
		}
	}
	return v
}

// value returns the bilinearly interpolated value of plane at the point.
func (p *samplePoint[T]) value(plane []T) T {
	var sum T
	for _, c := range p.corners {
		if c.valid {
			sum += c.weight * plane[c.index]
		}
	}
	return sum
}

// gradient returns ∂value/∂y and ∂value/∂x at the point.
func (p *samplePoint[T]) gradient(plane []T) (dy, dx T) {
	v := p.neighbours(plane)
	dy = (1-p.dx)*(v[2]-v[0]) + p.dx*(v[3]-v[1])
	dx = (1-p.dy)*(v[1]-v[0]) + p.dy*(v[3]-v[2])
	return dy, dx
}

// scatter adds value times each corner weight into acc at base+corner index.
func (p *samplePoint[T]) scatter(acc Accumulator[T], base int, value T) {
	for _, c := range p.corners {
		if c.valid {
			acc.Add(base+c.index, c.weight*value)
		}
	}
}

// Bilinear samples plane (height×width, row-major) at (y, x) with zero padding
// and returns the value together with its partial derivatives.
func Bilinear[T tensor.Float](plane []T, height, width int, y, x T) (value, dy, dx T) {
	p := locate(y, x, height, width)
	value = p.value(plane)
	dy, dx = p.gradient(plane)
	return value, dy, dx
}
