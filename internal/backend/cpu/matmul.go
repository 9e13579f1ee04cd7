package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/born-ml/dcn/internal/tensor"
)

// Matrix is a row-major view over a slice: element (i, j) lives at
// Data[i*Stride+j]. Stride may exceed Cols, which lets a Matrix address a
// block of columns inside a wider buffer without copying.
type Matrix[T tensor.Float] struct {
	Rows, Cols, Stride int
	Data               []T
}

// NewMatrix wraps data as a dense rows×cols matrix.
func NewMatrix[T tensor.Float](rows, cols int, data []T) Matrix[T] {
	return Matrix[T]{Rows: rows, Cols: cols, Stride: cols, Data: data}
}

// ColumnBlock returns the view of columns [start, start+cols) of m.
func (m Matrix[T]) ColumnBlock(start, cols int) Matrix[T] {
	if start < 0 || cols <= 0 || start+cols > m.Cols {
		panic(fmt.Sprintf("gemm: column block [%d, %d) out of range for %d columns", start, start+cols, m.Cols))
	}
	return Matrix[T]{Rows: m.Rows, Cols: cols, Stride: m.Stride, Data: m.Data[start:]}
}

// Gemm computes C = alpha * op(A) × op(B) + beta * C using gonum BLAS, where
// op(X) is X or Xᵀ depending on transA/transB.
func Gemm[T tensor.Float](transA, transB bool, alpha T, a, b Matrix[T], beta T, c Matrix[T]) {
	tA, tB := blas.NoTrans, blas.NoTrans
	if transA {
		tA = blas.Trans
	}
	if transB {
		tB = blas.Trans
	}

	switch cd := any(c.Data).(type) {
	case []float32:
		blas32.Gemm(tA, tB, float32(alpha),
			blas32.General{Rows: a.Rows, Cols: a.Cols, Stride: a.Stride, Data: any(a.Data).([]float32)},
			blas32.General{Rows: b.Rows, Cols: b.Cols, Stride: b.Stride, Data: any(b.Data).([]float32)},
			float32(beta),
			blas32.General{Rows: c.Rows, Cols: c.Cols, Stride: c.Stride, Data: cd})
	case []float64:
		blas64.Gemm(tA, tB, float64(alpha),
			blas64.General{Rows: a.Rows, Cols: a.Cols, Stride: a.Stride, Data: any(a.Data).([]float64)},
			blas64.General{Rows: b.Rows, Cols: b.Cols, Stride: b.Stride, Data: any(b.Data).([]float64)},
			float64(beta),
			blas64.General{Rows: c.Rows, Cols: c.Cols, Stride: c.Stride, Data: cd})
	default:
		panic(fmt.Sprintf("gemm: unsupported element type %T", c.Data))
	}
}
