package dcn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/dcn/internal/tensor"
)

// Problem is a complete set of operands for one deformable convolution.
// Mask is nil for the standard variant and Bias is nil without bias.
type Problem struct {
	Input  *tensor.RawTensor
	Weight *tensor.RawTensor
	Offset *tensor.RawTensor
	Mask   *tensor.RawTensor
	Bias   *tensor.RawTensor
}

// ProblemSize describes the tensor sizes of a random problem.
type ProblemSize struct {
	Batch, Channels, Height, Width, OutChannels int
	Modulated                                   bool
}

// RandomProblem draws a problem for cfg with inputs and weights in [-1, 1),
// offsets in [-offsetRange, offsetRange) and masks in [0, 1).
func RandomProblem[T tensor.Float](cfg Config, size ProblemSize, offsetRange T, rng *rand.Rand) (*Problem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	outH, outW := cfg.OutputSize(size.Height, size.Width)
	if outH < 1 || outW < 1 {
		return nil, &ShapeError{Tensor: "output", Dim: "spatial size",
			Reason: fmt.Sprintf("%dx%d input gives %dx%d output", size.Height, size.Width, outH, outW)}
	}
	taps := cfg.KernelH * cfg.KernelW

	var p Problem
	var err error
	if p.Input, err = tensor.Uniform[T](tensor.Shape{size.Batch, size.Channels, size.Height, size.Width}, -1, 1, rng); err != nil {
		return nil, err
	}
	if p.Weight, err = tensor.Uniform[T](tensor.Shape{size.OutChannels, size.Channels, cfg.KernelH, cfg.KernelW}, -1, 1, rng); err != nil {
		return nil, err
	}
	offsetShape := tensor.Shape{size.Batch, cfg.DeformableGroups * 2 * taps, outH, outW}
	if p.Offset, err = tensor.Uniform[T](offsetShape, -offsetRange, offsetRange, rng); err != nil {
		return nil, err
	}
	if size.Modulated {
		if p.Mask, err = tensor.Uniform[T](tensor.Shape{size.Batch, cfg.DeformableGroups * taps, outH, outW}, 0, 1, rng); err != nil {
			return nil, err
		}
	}
	if cfg.WithBias {
		if p.Bias, err = tensor.Uniform[T](tensor.Shape{size.OutChannels}, -1, 1, rng); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// AvoidLattice remaps every offset o to floor(o) + 0.1 + 0.8*frac(o), so
// that no sampling point lies within 0.1 of a lattice line, where the
// bilinear interpolant is not differentiable.
func (p *Problem) AvoidLattice() {
	switch p.Offset.DType() {
	case tensor.Float32:
		avoidLattice(p.Offset.AsFloat32())
	case tensor.Float64:
		avoidLattice(p.Offset.AsFloat64())
	}
}

func avoidLattice[T tensor.Float](offsets []T) {
	for i, o := range offsets {
		fl := T(math.Floor(float64(o)))
		offsets[i] = fl + 0.1 + 0.8*(o-fl)
	}
}

// Run executes the forward pass of p with the variant its Mask selects.
func (p *Problem) Run(cfg Config, opts ...Option) (*tensor.RawTensor, error) {
	if p.Mask != nil {
		op, err := NewModulatedDeformConv(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return op.Forward(p.Input, p.Weight, p.Offset, p.Mask, p.Bias)
	}
	op, err := NewDeformConv(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return op.Forward(p.Input, p.Weight, p.Offset, p.Bias)
}

// Gradients executes the full backward pass of p for gradOutput.
func (p *Problem) Gradients(cfg Config, gradOutput *tensor.RawTensor, opts ...Option) (*Gradients, error) {
	if p.Mask != nil {
		op, err := NewModulatedDeformConv(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return op.Backward(p.Input, p.Weight, p.Offset, p.Mask, gradOutput)
	}
	op, err := NewDeformConv(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return op.Backward(p.Input, p.Weight, p.Offset, gradOutput)
}

// GradCheckResult compares analytic and finite-difference gradients of one
// operand.
type GradCheckResult struct {
	Name      string
	Checked   int     // entries compared
	MaxAbsErr float64 // max |analytic - numeric|
	MaxAbs    float64 // max |analytic|, for scale
}

// GradCheckOptions controls CheckGradients.
type GradCheckOptions struct {
	Epsilon float64 // finite-difference step
	Samples int     // entries checked per operand; <= 0 checks all
	Seed    int64
}

// ErrGradCheckDType is returned when the problem is not float64.
var ErrGradCheckDType = errors.New("gradient check requires float64 tensors")

// CheckGradients verifies the backward pass of p against central finite
// differences of the scalar loss L = Σ output ⊙ R for a random R. p must
// hold float64 tensors; its data is perturbed in place and restored.
func CheckGradients(cfg Config, p *Problem, opts GradCheckOptions) ([]GradCheckResult, error) {
	if p.Input.DType() != tensor.Float64 {
		return nil, ErrGradCheckDType
	}
	rng := rand.New(rand.NewSource(opts.Seed)) //nolint:gosec // reproducible test data

	out, err := p.Run(cfg)
	if err != nil {
		return nil, err
	}
	projection, err := tensor.Uniform[float64](out.Shape(), -1, 1, rng)
	if err != nil {
		return nil, err
	}
	grads, err := p.Gradients(cfg, projection)
	if err != nil {
		return nil, err
	}

	loss := func() (float64, error) {
		out, err := p.Run(cfg)
		if err != nil {
			return 0, err
		}
		return floats.Dot(out.AsFloat64(), projection.AsFloat64()), nil
	}

	targets := []struct {
		name     string
		operand  *tensor.RawTensor
		analytic *tensor.RawTensor
	}{
		{"input", p.Input, grads.Input},
		{"offset", p.Offset, grads.Offset},
		{"mask", p.Mask, grads.Mask},
		{"weight", p.Weight, grads.Weight},
		{"bias", p.Bias, grads.Bias},
	}

	var results []GradCheckResult
	for _, target := range targets {
		if target.operand == nil || target.analytic == nil {
			continue
		}
		data := target.operand.Contiguous().AsFloat64()
		analytic := target.analytic.AsFloat64()

		indices := rng.Perm(len(data))
		if opts.Samples > 0 && opts.Samples < len(indices) {
			indices = indices[:opts.Samples]
		}

		want := make([]float64, len(indices))
		got := make([]float64, len(indices))
		for k, idx := range indices {
			orig := data[idx]
			data[idx] = orig + opts.Epsilon
			plus, err := loss()
			if err != nil {
				return nil, err
			}
			data[idx] = orig - opts.Epsilon
			minus, err := loss()
			if err != nil {
				return nil, err
			}
			data[idx] = orig

			want[k] = analytic[idx]
			got[k] = (plus - minus) / (2 * opts.Epsilon)
		}

		results = append(results, GradCheckResult{
			Name:      target.name,
			Checked:   len(indices),
			MaxAbsErr: floats.Distance(want, got, math.Inf(1)),
			MaxAbs:    floats.Norm(want, math.Inf(1)),
		})
	}
	return results, nil
}
