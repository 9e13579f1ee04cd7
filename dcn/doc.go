// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dcn provides deformable convolution operators for CPU.
//
// # Overview
//
// A deformable convolution samples its kh×kw kernel footprint at positions
// displaced by a learned per-location offset field, reading the input with
// bilinear interpolation. Two variants are provided:
//   - DeformConv: the standard variant (offsets only)
//   - ModulatedDeformConv: the modulated variant, which also scales every
//     sampled value by a learned per-tap mask
//
// Both operators expose a forward pass and a backward pass producing the
// gradients with respect to input, offset, mask, weight and bias.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/dcn/dcn"
//	    "github.com/born-ml/dcn/tensor"
//	)
//
//	func main() {
//	    cfg := dcn.DefaultConfig(3, 3)
//	    cfg.PadH, cfg.PadW = 1, 1
//
//	    op, err := dcn.NewModulatedDeformConv(cfg)
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    // input [N, Cin, H, W], weight [Cout, Cin, 3, 3],
//	    // offset [N, 2*9, H, W], mask [N, 9, H, W]
//	    out, err := op.Forward(input, weight, offset, mask, nil)
//	    grads, err := op.Backward(input, weight, offset, mask, gradOut)
//	}
//
// # Tensor Layout
//
// All tensors are row-major NCHW. For deformable group g and kernel tap
// t = p*kw + q, the offset field holds Δy in channel g*2*kh*kw + 2*t and Δx
// in the channel after it; the mask holds tap t in channel g*kh*kw + t.
// Input and its fields may also be passed without the batch dimension.
//
// # Errors
//
// Shape problems are reported before any computation as *ShapeError
// (errors.Is(err, ErrShape)). Invalid configurations yield *ConfigError and
// scratch budget violations *ResourceError.
//
// # Thread Safety
//
// Operators are immutable after construction and safe for concurrent use.
// Every call allocates its own scratch and output tensors.
package dcn
