package dcn

import "github.com/born-ml/dcn/internal/tensor"

// ModulatedDeformConv is the modulated ("v2") deformable convolution: each
// sampled value is additionally scaled by a learned per-tap mask. The mask
// is used as given; values outside [0, 1] are not clamped.
type ModulatedDeformConv struct {
	operator
}

// NewModulatedDeformConv creates a modulated deformable convolution operator.
// It returns a ConfigError if cfg is invalid.
func NewModulatedDeformConv(cfg Config, opts ...Option) (*ModulatedDeformConv, error) {
	op, err := newOperator(cfg, opts)
	if err != nil {
		return nil, err
	}
	return &ModulatedDeformConv{operator: op}, nil
}

// Forward computes the convolution output. mask is [N, G*kh*kw, Hout, Wout];
// the other shapes are as for DeformConv.Forward.
func (m *ModulatedDeformConv) Forward(input, weight, offset, mask, bias *tensor.RawTensor) (*tensor.RawTensor, error) {
	return m.forward(operands{input: input, weight: weight, offset: offset, mask: mask, bias: bias, modulated: true})
}

// Backward returns the gradients with respect to input, offset, mask, weight
// and, when WithBias is set, bias. The three consumers run concurrently.
// As for DeformConv, the weight gradient is multiplied by cfg.Scale; set
// Scale to 1 for an unscaled weight gradient.
func (m *ModulatedDeformConv) Backward(input, weight, offset, mask, gradOutput *tensor.RawTensor) (*Gradients, error) {
	return m.backward(operands{
		input: input, weight: weight, offset: offset, mask: mask, gradOutput: gradOutput, modulated: true,
	}, true, true)
}
