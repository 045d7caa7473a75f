package nn

import (
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Parameter is a named weight tensor belonging to a module.
//
// The engine never trains, so parameters carry no optimizer state; they
// exist so layers can be serialized, loaded from weight containers, and
// looked up by the gradient map after a backward pass.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
}

// NewParameter creates a named parameter around an initialized tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{name: name, tensor: t}
}

// Name returns the parameter name (e.g. "weight", "bias").
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}
