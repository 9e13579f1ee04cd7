package dcn

import (
	"testing"

	"github.com/born-ml/dcn/internal/tensor"
)

func benchmarkProblem(b *testing.B, modulated bool) (Config, *Problem, *tensor.RawTensor) {
	b.Helper()
	cfg := DefaultConfig(3, 3)
	cfg.PadH, cfg.PadW = 1, 1
	cfg.WithBias = true

	size := ProblemSize{Batch: 8, Channels: 16, Height: 32, Width: 32, OutChannels: 16, Modulated: modulated}
	p, err := RandomProblem(cfg, size, float32(2), newRand(1))
	if err != nil {
		b.Fatal(err)
	}
	gradOutput, err := tensor.Full(tensor.Shape{8, 16, 32, 32}, float32(1))
	if err != nil {
		b.Fatal(err)
	}
	return cfg, p, gradOutput
}

func BenchmarkDeformConv_Forward(b *testing.B) {
	cfg, p, _ := benchmarkProblem(b, false)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Run(cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDeformConv_Backward(b *testing.B) {
	cfg, p, gradOutput := benchmarkProblem(b, false)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Gradients(cfg, gradOutput); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkModulatedDeformConv_Forward(b *testing.B) {
	cfg, p, _ := benchmarkProblem(b, true)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Run(cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkModulatedDeformConv_Backward(b *testing.B) {
	cfg, p, gradOutput := benchmarkProblem(b, true)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Gradients(cfg, gradOutput); err != nil {
			b.Fatal(err)
		}
	}
}
