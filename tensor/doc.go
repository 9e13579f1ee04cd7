// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense tensors consumed and produced by the
// deformable convolution operators in package dcn.
//
// # Overview
//
// A RawTensor is a shape, a dtype and a strided view into a shared byte
// buffer. Only float32 and float64 are supported. Views (Reshape, Transpose,
// Narrow, Unsqueeze, Squeeze) never copy; Contiguous and Clone do.
//
// # Basic Usage
//
//	import "github.com/born-ml/dcn/tensor"
//
//	func main() {
//	    x, _ := tensor.Zeros[float32](tensor.Shape{1, 3, 32, 32})
//	    data := tensor.Data[float32](x) // zero-copy, row-major
//	    data[0] = 1
//
//	    y, _ := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
//	    yt := y.Transpose(0, 1).Contiguous()
//	    _ = yt
//	}
//
// # Memory Layout
//
// Freshly created tensors are row-major and contiguous. Typed access through
// Data, AsFloat32 or AsFloat64 requires a contiguous tensor and panics
// otherwise; call Contiguous first when a tensor may be a strided view.
package tensor
