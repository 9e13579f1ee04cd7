// Package cpu implements the CPU kernels behind the deformable convolution
// operators: bilinear sampling, the deformable im2col/col2im gathers and
// scatters, and BLAS-backed GEMM over strided column blocks.
//
// Kernels are generic over float32 and float64 and split their work across
// goroutines according to a parallel.Config.
package cpu
