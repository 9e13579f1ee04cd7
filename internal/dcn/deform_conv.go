package dcn

import (
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/born-ml/dcn/internal/tensor"
)

// Option configures an operator.
type Option func(*operator)

// WithLogger sets the logger used for debug output. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(op *operator) {
		op.logger = logger
	}
}

// operator is the state shared by both variants. It is immutable after
// construction, so one operator may serve concurrent calls.
type operator struct {
	cfg    Config
	logger *slog.Logger
}

func newOperator(cfg Config, opts []Option) (operator, error) {
	if err := cfg.Validate(); err != nil {
		return operator{}, err
	}
	op := operator{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(&op)
	}
	return op, nil
}

// Config returns the operator configuration.
func (op *operator) Config() Config {
	return op.cfg
}

// Gradients holds the results of a backward pass. Mask is nil for the
// unmodulated variant and Bias is nil unless Config.WithBias is set.
type Gradients struct {
	Input  *tensor.RawTensor
	Offset *tensor.RawTensor
	Mask   *tensor.RawTensor
	Weight *tensor.RawTensor
	Bias   *tensor.RawTensor
}

// prepare validates the operands, checks the scratch budget and returns the
// geometry plus batched, contiguous views of the operands.
func (op *operator) prepare(ops operands, columnBuffers int, withOnes bool) (Geometry, batch, error) {
	geo, err := checkShapes(op.cfg, ops)
	if err != nil {
		return Geometry{}, batch{}, err
	}
	scratch, err := scratchBytes(op.cfg, geo, columnBuffers, withOnes)
	if err != nil {
		return Geometry{}, batch{}, err
	}

	op.logger.Debug("deform conv geometry",
		"batch", geo.Batch, "channels", geo.Channels, "height", geo.Height, "width", geo.Width,
		"out_channels", geo.OutChannels, "out_h", geo.OutH, "out_w", geo.OutW,
		"groups", op.cfg.DeformableGroups, "modulated", ops.modulated,
		"im2col_step", geo.Step, "chunks", geo.Chunks(), "scratch_bytes", scratch, "dtype", geo.DType)

	b := batch{
		input:      batchView(ops.input, geo.Batched),
		weight:     ops.weight.Contiguous(),
		offset:     batchView(ops.offset, geo.Batched),
		mask:       batchView(ops.mask, geo.Batched),
		gradOutput: batchView(ops.gradOutput, geo.Batched),
	}
	if op.cfg.WithBias && ops.bias != nil {
		b.bias = ops.bias.Contiguous()
	}
	return geo, b, nil
}

// batchView returns a contiguous rank-4 view of t, adding the batch
// dimension to unbatched tensors.
func batchView(t *tensor.RawTensor, batched bool) *tensor.RawTensor {
	if t == nil {
		return nil
	}
	t = t.Contiguous()
	if !batched {
		t = t.Unsqueeze()
	}
	return t
}

// unbatch removes the batch dimension added by batchView.
func unbatch(t *tensor.RawTensor, batched bool) *tensor.RawTensor {
	if t == nil || batched {
		return t
	}
	return t.Squeeze()
}

func (op *operator) forward(ops operands) (*tensor.RawTensor, error) {
	if ops.weight != nil && !ops.weight.IsContiguous() {
		return nil, &ShapeError{Tensor: "weight", Dim: "layout", Reason: "weight tensor has to be contiguous"}
	}
	if op.cfg.WithBias && ops.bias == nil {
		return nil, &ShapeError{Tensor: "bias", Dim: "presence", Reason: "required when bias is enabled"}
	}
	geo, b, err := op.prepare(ops, 1, op.cfg.WithBias)
	if err != nil {
		return nil, err
	}

	var out *tensor.RawTensor
	switch geo.DType {
	case tensor.Float32:
		out, err = forwardPass[float32](op.cfg, geo, b)
	case tensor.Float64:
		out, err = forwardPass[float64](op.cfg, geo, b)
	default:
		return nil, fmt.Errorf("deform conv forward: unsupported dtype %s", geo.DType)
	}
	if err != nil {
		return nil, fmt.Errorf("deform conv forward: %w", err)
	}
	return unbatch(out, geo.Batched), nil
}

// backward runs the requested consumers concurrently. The input, weight and
// bias consumers write disjoint tensors and only read b.
func (op *operator) backward(ops operands, wantInput, wantParams bool) (*Gradients, error) {
	ops.backward = true
	buffers := 0
	if wantInput {
		buffers++
	}
	if wantParams {
		buffers++
	}
	geo, b, err := op.prepare(ops, buffers, wantParams && op.cfg.WithBias)
	if err != nil {
		return nil, err
	}

	var grads Gradients
	var g errgroup.Group
	if !op.cfg.Parallel.Enabled {
		g.SetLimit(1)
	}

	if wantInput {
		g.Go(func() error {
			var ig inputGradients
			var err error
			switch geo.DType {
			case tensor.Float32:
				ig, err = backwardInputPass[float32](op.cfg, geo, b)
			case tensor.Float64:
				ig, err = backwardInputPass[float64](op.cfg, geo, b)
			default:
				return fmt.Errorf("unsupported dtype %s", geo.DType)
			}
			if err != nil {
				return fmt.Errorf("input gradient: %w", err)
			}
			grads.Input = unbatch(ig.input, geo.Batched)
			grads.Offset = unbatch(ig.offset, geo.Batched)
			grads.Mask = unbatch(ig.mask, geo.Batched)
			return nil
		})
	}

	if wantParams {
		g.Go(func() error {
			var gw *tensor.RawTensor
			var err error
			switch geo.DType {
			case tensor.Float32:
				gw, err = backwardWeightPass[float32](op.cfg, geo, b)
			case tensor.Float64:
				gw, err = backwardWeightPass[float64](op.cfg, geo, b)
			default:
				return fmt.Errorf("unsupported dtype %s", geo.DType)
			}
			if err != nil {
				return fmt.Errorf("weight gradient: %w", err)
			}
			grads.Weight = gw
			return nil
		})

		if op.cfg.WithBias {
			g.Go(func() error {
				var gb *tensor.RawTensor
				var err error
				switch geo.DType {
				case tensor.Float32:
					gb, err = backwardBiasPass[float32](geo, b)
				case tensor.Float64:
					gb, err = backwardBiasPass[float64](geo, b)
				default:
					return fmt.Errorf("unsupported dtype %s", geo.DType)
				}
				if err != nil {
					return fmt.Errorf("bias gradient: %w", err)
				}
				grads.Bias = gb
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("deform conv backward: %w", err)
	}
	return &grads, nil
}

// DeformConv is the standard deformable convolution: every kernel tap
// samples the input at its nominal position displaced by a learned offset.
type DeformConv struct {
	operator
}

// NewDeformConv creates a standard deformable convolution operator.
// It returns a ConfigError if cfg is invalid.
func NewDeformConv(cfg Config, opts ...Option) (*DeformConv, error) {
	op, err := newOperator(cfg, opts)
	if err != nil {
		return nil, err
	}
	return &DeformConv{operator: op}, nil
}

// Forward computes the convolution output.
//
// Shapes: input [N, Cin, H, W] (or [Cin, H, W]), weight [Cout, Cin, kh, kw],
// offset [N, G*2*kh*kw, Hout, Wout], bias [Cout] (only with WithBias, may be
// nil otherwise). The output is [N, Cout, Hout, Wout], unbatched when the
// input was.
func (d *DeformConv) Forward(input, weight, offset, bias *tensor.RawTensor) (*tensor.RawTensor, error) {
	return d.forward(operands{input: input, weight: weight, offset: offset, bias: bias})
}

// BackwardInput returns the gradients with respect to input and offset.
func (d *DeformConv) BackwardInput(input, weight, offset, gradOutput *tensor.RawTensor) (gradInput, gradOffset *tensor.RawTensor, err error) {
	grads, err := d.backward(operands{input: input, weight: weight, offset: offset, gradOutput: gradOutput}, true, false)
	if err != nil {
		return nil, nil, err
	}
	return grads.Input, grads.Offset, nil
}

// BackwardParameters returns the gradient with respect to weight, scaled by
// Config.Scale, and with respect to bias when WithBias is set (nil
// otherwise). weight supplies the shape and is not read.
func (d *DeformConv) BackwardParameters(input, weight, offset, gradOutput *tensor.RawTensor) (gradWeight, gradBias *tensor.RawTensor, err error) {
	grads, err := d.backward(operands{input: input, weight: weight, offset: offset, gradOutput: gradOutput}, false, true)
	if err != nil {
		return nil, nil, err
	}
	return grads.Weight, grads.Bias, nil
}

// Backward runs BackwardInput and BackwardParameters concurrently.
func (d *DeformConv) Backward(input, weight, offset, gradOutput *tensor.RawTensor) (*Gradients, error) {
	return d.backward(operands{input: input, weight: weight, offset: offset, gradOutput: gradOutput}, true, true)
}
