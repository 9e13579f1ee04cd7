package dcn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckGradients(t *testing.T) {
	tests := []struct {
		name                          string
		k, stride, pad, dilation, grp int
		bias, modulated               bool
		step                          int
	}{
		{"standard", 3, 1, 1, 1, 1, false, false, 64},
		{"standard bias groups", 3, 1, 1, 1, 2, true, false, 1},
		{"modulated", 3, 1, 1, 1, 1, false, true, 64},
		{"modulated strided dilated", 3, 2, 2, 2, 2, true, true, 2},
		{"modulated 2x2 kernel", 2, 1, 0, 1, 1, true, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(tt.k, tt.k)
			cfg.StrideH, cfg.StrideW = tt.stride, tt.stride
			cfg.PadH, cfg.PadW = tt.pad, tt.pad
			cfg.DilationH, cfg.DilationW = tt.dilation, tt.dilation
			cfg.DeformableGroups = tt.grp
			cfg.WithBias = tt.bias
			cfg.Im2ColStep = tt.step
			cfg.Scale = 1

			size := ProblemSize{Batch: 2, Channels: 4, Height: 6, Width: 5, OutChannels: 3, Modulated: tt.modulated}
			p := newProblem(t, cfg, size, 2.5, 31)
			p.AvoidLattice()
			original := p.clone()

			results, err := CheckGradients(cfg, p, GradCheckOptions{Epsilon: 1e-6, Samples: 40, Seed: 33})
			require.NoError(t, err)

			names := make([]string, 0, len(results))
			for _, r := range results {
				names = append(names, r.Name)
				assert.Positive(t, r.Checked)
				tol := 1e-6 * math.Max(1, r.MaxAbs)
				assert.LessOrEqual(t, r.MaxAbsErr, tol, "%s: max error %g (scale %g)", r.Name, r.MaxAbsErr, r.MaxAbs)
			}

			want := []string{"input", "offset"}
			if tt.modulated {
				want = append(want, "mask")
			}
			want = append(want, "weight")
			if tt.bias {
				want = append(want, "bias")
			}
			assert.Equal(t, want, names)

			// Perturbed entries are restored.
			assert.Equal(t, original.Input.AsFloat64(), p.Input.AsFloat64())
			assert.Equal(t, original.Offset.AsFloat64(), p.Offset.AsFloat64())
			assert.Equal(t, original.Weight.AsFloat64(), p.Weight.AsFloat64())
		})
	}
}

func TestCheckGradients_RequiresFloat64(t *testing.T) {
	cfg := DefaultConfig(3, 3)
	p := newProblem(t, cfg, ProblemSize{Batch: 1, Channels: 1, Height: 4, Width: 4, OutChannels: 1}, 1, 34)

	_, err := CheckGradients(cfg, p.float32(t), GradCheckOptions{Epsilon: 1e-3})
	assert.ErrorIs(t, err, ErrGradCheckDType)
}

func TestRandomProblem(t *testing.T) {
	cfg := DefaultConfig(3, 3)
	cfg.DeformableGroups = 2
	cfg.WithBias = true

	p := newProblem(t, cfg, ProblemSize{Batch: 3, Channels: 4, Height: 6, Width: 7, OutChannels: 5, Modulated: true}, 2, 35)
	assert.Equal(t, []int{3, 4, 6, 7}, []int(p.Input.Shape()))
	assert.Equal(t, []int{5, 4, 3, 3}, []int(p.Weight.Shape()))
	assert.Equal(t, []int{3, 36, 4, 5}, []int(p.Offset.Shape()))
	assert.Equal(t, []int{3, 18, 4, 5}, []int(p.Mask.Shape()))
	assert.Equal(t, []int{5}, []int(p.Bias.Shape()))

	for _, v := range p.Offset.AsFloat64() {
		assert.GreaterOrEqual(t, v, -2.0)
		assert.Less(t, v, 2.0)
	}
	for _, v := range p.Mask.AsFloat64() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}

	_, err := RandomProblem(cfg, ProblemSize{Batch: 1, Channels: 4, Height: 2, Width: 2, OutChannels: 1}, 1.0, newRand(1))
	assert.ErrorIs(t, err, ErrShape)
}

func TestProblem_AvoidLattice(t *testing.T) {
	cfg := DefaultConfig(3, 3)
	p := newProblem(t, cfg, ProblemSize{Batch: 2, Channels: 1, Height: 5, Width: 5, OutChannels: 1}, 3, 36)
	p.AvoidLattice()

	for _, v := range p.Offset.AsFloat64() {
		frac := v - math.Floor(v)
		assert.GreaterOrEqual(t, frac, 0.1-1e-12)
		assert.LessOrEqual(t, frac, 0.9+1e-12)
	}

	p32 := p.float32(t)
	p32.AvoidLattice()
	for _, v := range p32.Offset.AsFloat32() {
		frac := float64(v) - math.Floor(float64(v))
		assert.GreaterOrEqual(t, frac, 0.1-1e-5)
		assert.LessOrEqual(t, frac, 0.9+1e-5)
	}
}
