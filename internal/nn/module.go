// Package nn implements the neural network modules the attribution engine
// introspects: convolution, pooling, rectifier and linear layers, plus a
// named-layer Network container with forward hooks.
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module.
	// Returns an empty slice for parameterless modules (activations,
	// pooling, reshaping).
	Parameters() []*Parameter[B]
}

// StatefulModule is satisfied by modules that carry loadable weights.
type StatefulModule[B tensor.Backend] interface {
	Module[B]

	// StateDict returns a map of parameter names to raw tensors.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies parameter data in from a state dictionary.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}
