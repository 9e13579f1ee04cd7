package dcn

import (
	"fmt"

	"github.com/born-ml/dcn/internal/backend/cpu"
	"github.com/born-ml/dcn/internal/tensor"
)

// Geometry is the validated problem size of one call. Every component reads
// OutH/OutW from here instead of recomputing them.
type Geometry struct {
	Batch       int
	Channels    int
	Height      int
	Width       int
	OutChannels int
	OutH, OutW  int
	Step        int  // effective im2col step
	Batched     bool // false when the caller passed rank-3 tensors
	DType       tensor.DataType
}

// Chunks returns the number of chunk iterations.
func (g Geometry) Chunks() int {
	return g.Batch / g.Step
}

// chunk converts the geometry into the kernel description of one chunk.
func (g Geometry) chunk(cfg Config) cpu.DeformGeometry {
	return cpu.DeformGeometry{
		Batch:            g.Step,
		Channels:         g.Channels,
		Height:           g.Height,
		Width:            g.Width,
		KernelH:          cfg.KernelH,
		KernelW:          cfg.KernelW,
		PadH:             cfg.PadH,
		PadW:             cfg.PadW,
		StrideH:          cfg.StrideH,
		StrideW:          cfg.StrideW,
		DilationH:        cfg.DilationH,
		DilationW:        cfg.DilationW,
		OutH:             g.OutH,
		OutW:             g.OutW,
		DeformableGroups: cfg.DeformableGroups,
	}
}

// operands groups the tensors a call may validate. Nil members are skipped.
type operands struct {
	input, weight, offset, mask, bias, gradOutput *tensor.RawTensor
	modulated                                     bool
	backward                                      bool // gradOutput is required
}

// checkShapes validates the operands against cfg and returns the call
// geometry. It never touches tensor data.
//
//nolint:gocognit,gocyclo // one check per invariant
func checkShapes(cfg Config, ops operands) (Geometry, error) {
	if err := cfg.Validate(); err != nil {
		return Geometry{}, err
	}
	if ops.input == nil || ops.weight == nil || ops.offset == nil {
		return Geometry{}, &ShapeError{Tensor: "input/weight/offset", Dim: "presence", Reason: "must not be nil"}
	}

	weight := ops.weight.Shape()
	if len(weight) != 4 {
		return Geometry{}, &ShapeError{Tensor: "weight", Dim: "rank", Expected: 4, Actual: len(weight)}
	}
	if weight[2] != cfg.KernelH {
		return Geometry{}, &ShapeError{Tensor: "weight", Dim: "kernel height", Expected: cfg.KernelH, Actual: weight[2]}
	}
	if weight[3] != cfg.KernelW {
		return Geometry{}, &ShapeError{Tensor: "weight", Dim: "kernel width", Expected: cfg.KernelW, Actual: weight[3]}
	}

	input := ops.input.Shape()
	rank := len(input)
	if rank != 3 && rank != 4 {
		return Geometry{}, &ShapeError{Tensor: "input", Dim: "rank", Reason: fmt.Sprintf("3D or 4D tensor expected, got %dD", rank)}
	}
	batched := rank == 4
	dims := input
	if !batched {
		dims = append(tensor.Shape{1}, input...)
	}

	geo := Geometry{
		Batch:       dims[0],
		Channels:    dims[1],
		Height:      dims[2],
		Width:       dims[3],
		OutChannels: weight[0],
		Batched:     batched,
		DType:       ops.input.DType(),
	}

	for _, t := range []struct {
		name string
		raw  *tensor.RawTensor
	}{{"weight", ops.weight}, {"offset", ops.offset}, {"mask", ops.mask}, {"bias", ops.bias}, {"grad_output", ops.gradOutput}} {
		if t.raw != nil && t.raw.DType() != geo.DType {
			return Geometry{}, &ShapeError{Tensor: t.name, Dim: "dtype",
				Reason: fmt.Sprintf("expected %s, got %s", geo.DType, t.raw.DType())}
		}
	}

	if geo.Channels%cfg.DeformableGroups != 0 {
		return Geometry{}, &ShapeError{Tensor: "input", Dim: "channels",
			Reason: fmt.Sprintf("%d channels not divisible by %d deformable groups", geo.Channels, cfg.DeformableGroups)}
	}
	if weight[1] != geo.Channels {
		return Geometry{}, &ShapeError{Tensor: "weight", Dim: "input channels", Expected: geo.Channels, Actual: weight[1]}
	}

	geo.OutH, geo.OutW = cfg.OutputSize(geo.Height, geo.Width)
	if geo.OutH < 1 || geo.OutW < 1 {
		return Geometry{}, &ShapeError{Tensor: "output", Dim: "spatial size",
			Reason: fmt.Sprintf("input %dx%dx%d gives output %dx%dx%d, which is too small",
				geo.Channels, geo.Height, geo.Width, geo.OutChannels, geo.OutH, geo.OutW)}
	}
	if geo.Height < cfg.KernelH || geo.Width < cfg.KernelW {
		return Geometry{}, &ShapeError{Tensor: "input", Dim: "spatial size",
			Reason: fmt.Sprintf("input %dx%d is smaller than kernel %dx%d", geo.Height, geo.Width, cfg.KernelH, cfg.KernelW)}
	}

	taps := cfg.KernelH * cfg.KernelW
	if err := checkField("offset", ops.offset, rank, geo, cfg.DeformableGroups*2*taps); err != nil {
		return Geometry{}, err
	}
	if ops.modulated {
		if ops.mask == nil {
			return Geometry{}, &ShapeError{Tensor: "mask", Dim: "presence", Reason: "required by the modulated variant"}
		}
		if err := checkField("mask", ops.mask, rank, geo, cfg.DeformableGroups*taps); err != nil {
			return Geometry{}, err
		}
	}
	if ops.backward && ops.gradOutput == nil {
		return Geometry{}, &ShapeError{Tensor: "grad_output", Dim: "presence", Reason: "required by the backward pass"}
	}
	if ops.gradOutput != nil {
		if err := checkField("grad_output", ops.gradOutput, rank, geo, geo.OutChannels); err != nil {
			return Geometry{}, err
		}
	}

	if cfg.WithBias && ops.bias != nil {
		bias := ops.bias.Shape()
		if len(bias) != 1 {
			return Geometry{}, &ShapeError{Tensor: "bias", Dim: "rank", Expected: 1, Actual: len(bias)}
		}
		if bias[0] != geo.OutChannels {
			return Geometry{}, &ShapeError{Tensor: "bias", Dim: "channels", Expected: geo.OutChannels, Actual: bias[0]}
		}
	}

	geo.Step = min(cfg.Im2ColStep, geo.Batch)
	if geo.Batch%geo.Step != 0 {
		return Geometry{}, &ShapeError{Tensor: "input", Dim: "batch",
			Reason: fmt.Sprintf("batch size %d is not divisible by im2col_step %d", geo.Batch, geo.Step)}
	}

	return geo, nil
}

// checkField validates a per-output-location tensor ([N, channels, OutH, OutW]
// or its unbatched form) against the geometry.
func checkField(name string, raw *tensor.RawTensor, rank int, geo Geometry, channels int) error {
	shape := raw.Shape()
	if len(shape) != rank {
		return &ShapeError{Tensor: name, Dim: "rank", Expected: rank, Actual: len(shape)}
	}
	if rank == 3 {
		shape = append(tensor.Shape{1}, shape...)
	}
	if shape[0] != geo.Batch {
		return &ShapeError{Tensor: name, Dim: "batch", Expected: geo.Batch, Actual: shape[0]}
	}
	if shape[1] != channels {
		return &ShapeError{Tensor: name, Dim: "channels", Expected: channels, Actual: shape[1]}
	}
	if shape[2] != geo.OutH {
		return &ShapeError{Tensor: name, Dim: "height", Expected: geo.OutH, Actual: shape[2]}
	}
	if shape[3] != geo.OutW {
		return &ShapeError{Tensor: name, Dim: "width", Expected: geo.OutW, Actual: shape[3]}
	}
	return nil
}
