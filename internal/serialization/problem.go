package serialization

import (
	"fmt"

	"github.com/born-ml/dcn/internal/dcn"
	"github.com/born-ml/dcn/internal/tensor"
)

// Tensor names used in problem files.
const (
	InputName  = "input"
	WeightName = "weight"
	OffsetName = "offset"
	MaskName   = "mask"
	BiasName   = "bias"
)

// SaveProblem writes the operands of p to path. Nil mask and bias are
// omitted.
func SaveProblem(path string, p *dcn.Problem, metadata map[string]string) error {
	tensors := map[string]*tensor.RawTensor{
		InputName:  p.Input,
		WeightName: p.Weight,
		OffsetName: p.Offset,
	}
	if p.Mask != nil {
		tensors[MaskName] = p.Mask
	}
	if p.Bias != nil {
		tensors[BiasName] = p.Bias
	}
	return WriteFile(path, tensors, metadata)
}

// LoadProblem reads a problem written by SaveProblem. The returned metadata
// includes the stored checksum.
func LoadProblem(path string) (*dcn.Problem, map[string]string, error) {
	tensors, metadata, err := ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range []string{InputName, WeightName, OffsetName} {
		if tensors[name] == nil {
			return nil, nil, &ValidationError{Tensor: name, Details: "required by a problem file", Err: ErrMissingTensor}
		}
	}
	for name := range tensors {
		switch name {
		case InputName, WeightName, OffsetName, MaskName, BiasName:
		default:
			return nil, nil, fmt.Errorf("unexpected tensor %q in problem file", name)
		}
	}

	return &dcn.Problem{
		Input:  tensors[InputName],
		Weight: tensors[WeightName],
		Offset: tensors[OffsetName],
		Mask:   tensors[MaskName],
		Bias:   tensors[BiasName],
	}, metadata, nil
}
