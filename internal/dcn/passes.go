package dcn

import (
	"github.com/born-ml/dcn/internal/backend/cpu"
	"github.com/born-ml/dcn/internal/tensor"
)

// batch holds the batched, contiguous operands of one call. mask and bias
// are nil when absent.
type batch struct {
	input, weight, offset, mask, bias, gradOutput *tensor.RawTensor
}

// chunkData returns the typed data of samples [n0, n0+step) of t, or nil
// when t is nil.
func chunkData[T tensor.Float](t *tensor.RawTensor, n0, step int) []T {
	if t == nil {
		return nil
	}
	return tensor.Data[T](t.Narrow(n0, step))
}

// onesVector returns a length-n vector of ones used to broadcast and reduce
// the bias over spatial positions with GEMM.
func onesVector[T tensor.Float](n int) []T {
	ones := make([]T, n)
	for i := range ones {
		ones[i] = 1
	}
	return ones
}

// forwardPass computes Output[n] = W_flat × Columns[:, n] (+ bias ⊗ ones).
func forwardPass[T tensor.Float](cfg Config, geo Geometry, b batch) (*tensor.RawTensor, error) {
	out, err := tensor.Zeros[T](tensor.Shape{geo.Batch, geo.OutChannels, geo.OutH, geo.OutW})
	if err != nil {
		return nil, err
	}

	cg := geo.chunk(cfg)
	outPlane := geo.OutH * geo.OutW
	rows := cg.ColumnRows()
	columns := make([]T, rows*cg.ColumnCols())
	colM := cpu.NewMatrix(rows, cg.ColumnCols(), columns)
	weight := cpu.NewMatrix(geo.OutChannels, rows, tensor.Data[T](b.weight))

	for chunk := 0; chunk < geo.Chunks(); chunk++ {
		n0 := chunk * geo.Step
		cpu.DeformIm2Col(columns,
			chunkData[T](b.input, n0, geo.Step),
			chunkData[T](b.offset, n0, geo.Step),
			chunkData[T](b.mask, n0, geo.Step),
			cg, cfg.Parallel)

		outChunk := chunkData[T](out, n0, geo.Step)
		for s := 0; s < geo.Step; s++ {
			dst := cpu.NewMatrix(geo.OutChannels, outPlane, outChunk[s*geo.OutChannels*outPlane:])
			cpu.Gemm(false, false, 1, weight, colM.ColumnBlock(s*outPlane, outPlane), 0, dst)
		}
	}

	if b.bias != nil {
		ones := cpu.NewMatrix(1, outPlane, onesVector[T](outPlane))
		bias := cpu.NewMatrix(geo.OutChannels, 1, tensor.Data[T](b.bias))
		outData := tensor.Data[T](out)
		for n := 0; n < geo.Batch; n++ {
			dst := cpu.NewMatrix(geo.OutChannels, outPlane, outData[n*geo.OutChannels*outPlane:])
			cpu.Gemm(false, false, 1, bias, ones, 1, dst)
		}
	}
	return out, nil
}

// inputGradients holds the results of backwardInputPass. mask is nil for the
// unmodulated variant.
type inputGradients struct {
	input, offset, mask *tensor.RawTensor
}

// backwardInputPass computes GradColumns = W_flatᵀ × GradOutput per sample,
// then scatters it into the input gradient and reduces it into the offset
// (and mask) gradients.
func backwardInputPass[T tensor.Float](cfg Config, geo Geometry, b batch) (inputGradients, error) {
	var grads inputGradients
	var err error
	if grads.input, err = tensor.Zeros[T](b.input.Shape()); err != nil {
		return grads, err
	}
	if grads.offset, err = tensor.Zeros[T](b.offset.Shape()); err != nil {
		return grads, err
	}
	if b.mask != nil {
		if grads.mask, err = tensor.Zeros[T](b.mask.Shape()); err != nil {
			return grads, err
		}
	}

	cg := geo.chunk(cfg)
	outPlane := geo.OutH * geo.OutW
	rows := cg.ColumnRows()
	gradColumns := make([]T, rows*cg.ColumnCols())
	colM := cpu.NewMatrix(rows, cg.ColumnCols(), gradColumns)
	weight := cpu.NewMatrix(geo.OutChannels, rows, tensor.Data[T](b.weight))

	for chunk := 0; chunk < geo.Chunks(); chunk++ {
		n0 := chunk * geo.Step
		gradOut := chunkData[T](b.gradOutput, n0, geo.Step)
		for s := 0; s < geo.Step; s++ {
			src := cpu.NewMatrix(geo.OutChannels, outPlane, gradOut[s*geo.OutChannels*outPlane:])
			cpu.Gemm(true, false, 1, weight, src, 0, colM.ColumnBlock(s*outPlane, outPlane))
		}

		input := chunkData[T](b.input, n0, geo.Step)
		offset := chunkData[T](b.offset, n0, geo.Step)
		mask := chunkData[T](b.mask, n0, geo.Step)

		cpu.DeformCol2ImCoord(
			chunkData[T](grads.offset, n0, geo.Step),
			chunkData[T](grads.mask, n0, geo.Step),
			gradColumns, input, offset, mask, cg, cfg.Parallel)
		cpu.DeformCol2Im(
			chunkData[T](grads.input, n0, geo.Step),
			gradColumns, offset, mask, cg, cfg.Parallel)
	}
	return grads, nil
}

// backwardWeightPass re-gathers the columns per chunk and accumulates
// GradWeight += scale * GradOutput[n] × Columns[:, n]ᵀ.
func backwardWeightPass[T tensor.Float](cfg Config, geo Geometry, b batch) (*tensor.RawTensor, error) {
	gradWeight, err := tensor.Zeros[T](b.weight.Shape())
	if err != nil {
		return nil, err
	}

	cg := geo.chunk(cfg)
	outPlane := geo.OutH * geo.OutW
	rows := cg.ColumnRows()
	columns := make([]T, rows*cg.ColumnCols())
	colM := cpu.NewMatrix(rows, cg.ColumnCols(), columns)
	gw := cpu.NewMatrix(geo.OutChannels, rows, tensor.Data[T](gradWeight))
	scale := T(cfg.Scale)

	for chunk := 0; chunk < geo.Chunks(); chunk++ {
		n0 := chunk * geo.Step
		cpu.DeformIm2Col(columns,
			chunkData[T](b.input, n0, geo.Step),
			chunkData[T](b.offset, n0, geo.Step),
			chunkData[T](b.mask, n0, geo.Step),
			cg, cfg.Parallel)

		gradOut := chunkData[T](b.gradOutput, n0, geo.Step)
		for s := 0; s < geo.Step; s++ {
			src := cpu.NewMatrix(geo.OutChannels, outPlane, gradOut[s*geo.OutChannels*outPlane:])
			cpu.Gemm(false, true, scale, src, colM.ColumnBlock(s*outPlane, outPlane), 1, gw)
		}
	}
	return gradWeight, nil
}

// backwardBiasPass sums GradOutput over batch and spatial positions per
// output channel: GradBias += GradOutput[n] × ones.
func backwardBiasPass[T tensor.Float](geo Geometry, b batch) (*tensor.RawTensor, error) {
	gradBias, err := tensor.Zeros[T](tensor.Shape{geo.OutChannels})
	if err != nil {
		return nil, err
	}

	outPlane := geo.OutH * geo.OutW
	ones := cpu.NewMatrix(outPlane, 1, onesVector[T](outPlane))
	gb := cpu.NewMatrix(geo.OutChannels, 1, tensor.Data[T](gradBias))
	gradOut := tensor.Data[T](b.gradOutput)
	for n := 0; n < geo.Batch; n++ {
		src := cpu.NewMatrix(geo.OutChannels, outPlane, gradOut[n*geo.OutChannels*outPlane:])
		cpu.Gemm(false, false, 1, src, ones, 1, gb)
	}
	return gradBias, nil
}
