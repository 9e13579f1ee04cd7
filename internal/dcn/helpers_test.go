package dcn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/dcn/internal/backend/cpu"
	"github.com/born-ml/dcn/internal/parallel"
	"github.com/born-ml/dcn/internal/tensor"
)

func newProblem(t *testing.T, cfg Config, size ProblemSize, offsetRange float64, seed int64) *Problem {
	t.Helper()
	p, err := RandomProblem(cfg, size, offsetRange, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return p
}

func clone(t *tensor.RawTensor) *tensor.RawTensor {
	if t == nil {
		return nil
	}
	return t.Clone()
}

func (p *Problem) clone() *Problem {
	return &Problem{
		Input:  clone(p.Input),
		Weight: clone(p.Weight),
		Offset: clone(p.Offset),
		Mask:   clone(p.Mask),
		Bias:   clone(p.Bias),
	}
}

// toFloat32 converts a float64 tensor into a new float32 tensor.
func toFloat32(t *testing.T, src *tensor.RawTensor) *tensor.RawTensor {
	t.Helper()
	if src == nil {
		return nil
	}
	in := src.AsFloat64()
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	dst, err := tensor.FromSlice(out, src.Shape())
	require.NoError(t, err)
	return dst
}

func (p *Problem) float32(t *testing.T) *Problem {
	return &Problem{
		Input:  toFloat32(t, p.Input),
		Weight: toFloat32(t, p.Weight),
		Offset: toFloat32(t, p.Offset),
		Mask:   toFloat32(t, p.Mask),
		Bias:   toFloat32(t, p.Bias),
	}
}

// denseConv computes the undeformed convolution of p (plus bias) with the
// reference kernel.
func denseConv(t *testing.T, cfg Config, p *Problem) []float64 {
	t.Helper()
	in := p.Input.Shape()
	outChannels := p.Weight.Shape()[0]
	g := cpu.DeformGeometry{
		Batch: in[0], Channels: in[1], Height: in[2], Width: in[3],
		KernelH: cfg.KernelH, KernelW: cfg.KernelW,
		PadH: cfg.PadH, PadW: cfg.PadW,
		StrideH: cfg.StrideH, StrideW: cfg.StrideW,
		DilationH: cfg.DilationH, DilationW: cfg.DilationW,
		DeformableGroups: cfg.DeformableGroups,
	}
	g.OutH, g.OutW = cfg.OutputSize(g.Height, g.Width)

	out := make([]float64, g.Batch*outChannels*g.OutH*g.OutW)
	cpu.Conv2D(out, p.Input.AsFloat64(), p.Weight.AsFloat64(), outChannels, g, parallel.Sequential())

	if p.Bias != nil {
		plane := g.OutH * g.OutW
		bias := p.Bias.AsFloat64()
		for i := range out {
			out[i] += bias[(i/plane)%outChannels]
		}
	}
	return out
}

func fill(data []float64, v float64) {
	for i := range data {
		data[i] = v
	}
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
