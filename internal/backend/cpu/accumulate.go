package cpu

import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/born-ml/dcn/internal/tensor"
)

// Accumulator adds values into a gradient buffer. The col2im scatter writes
// through it because several sampling points can hit the same lattice cell.
type Accumulator[T tensor.Float] interface {
	Add(index int, value T)
}

// NewAccumulator returns an Accumulator over buf. When concurrent is true
// every Add is an atomic read-modify-write, so calls from many goroutines
// never lose an addend; otherwise Add is a plain +=.
func NewAccumulator[T tensor.Float](buf []T, concurrent bool) Accumulator[T] {
	if !concurrent {
		return plainAccumulator[T](buf)
	}
	switch b := any(buf).(type) {
	case []float32:
		return any(atomicFloat32(b)).(Accumulator[T])
	case []float64:
		return any(atomicFloat64(b)).(Accumulator[T])
	default:
		panic(fmt.Sprintf("accumulate: unsupported element type %T", buf))
	}
}

type plainAccumulator[T tensor.Float] []T

func (a plainAccumulator[T]) Add(index int, value T) {
	a[index] += value
}

type atomicFloat32 []float32

func (a atomicFloat32) Add(index int, value float32) {
	//nolint:gosec // float32 and uint32 share size and alignment
	addr := (*uint32)(unsafe.Pointer(&a[index]))
	for {
		old := atomic.LoadUint32(addr)
		next := math.Float32bits(math.Float32frombits(old) + value)
		if atomic.CompareAndSwapUint32(addr, old, next) {
			return
		}
	}
}

type atomicFloat64 []float64

func (a atomicFloat64) Add(index int, value float64) {
	//nolint:gosec // float64 and uint64 share size; slice elements are 8-byte aligned
	addr := (*uint64)(unsafe.Pointer(&a[index]))
	for {
		old := atomic.LoadUint64(addr)
		next := math.Float64bits(math.Float64frombits(old) + value)
		if atomic.CompareAndSwapUint64(addr, old, next) {
			return
		}
	}
}
