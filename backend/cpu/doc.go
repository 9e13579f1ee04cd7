// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu exposes the pure Go kernels behind the deformable convolution
// operators.
//
// # Overview
//
// The operators in package dcn are built from four kernels:
//   - DeformIm2Col gathers bilinearly sampled, offset-displaced patches into
//     a column matrix
//   - DeformCol2Im scatters column gradients back onto the input lattice
//   - DeformCol2ImCoord reduces column gradients into offset and mask
//     gradients
//   - Gemm multiplies column matrices with the flattened weight (gonum BLAS)
//
// Most users should call package dcn instead. The kernels are useful for
// building fused variants or checking custom implementations.
//
// # Thread Safety
//
// Kernels split their work over the goroutines allowed by the
// ParallelConfig argument. DeformCol2Im switches to atomic accumulation when
// it runs on more than one worker.
package cpu
