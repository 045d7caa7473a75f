package nn

import (
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// ReLUBackend is satisfied by backends that implement the rectifier as a
// first-class operation. The autodiff backend does, so the rectifier lands
// on the tape as its own operation and its gradient rule can be rewritten.
type ReLUBackend interface {
	ReLU(*tensor.RawTensor) *tensor.RawTensor
}

// ReLU is a rectified linear unit activation module: f(x) = max(0, x).
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies the rectifier element-wise.
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()

	if reluBackend, ok := any(backend).(ReLUBackend); ok {
		return tensor.New[float32, B](reluBackend.ReLU(input.Raw()), backend)
	}

	// Plain backends get the direct elementwise form.
	out := tensor.Zeros[float32](input.Shape(), backend)
	in, od := input.Data(), out.Data()
	for i := range in {
		if in[i] > 0 {
			od[i] = in[i]
		}
	}
	return out
}

// Parameters returns nil (activations have no trainable parameters).
func (r *ReLU[B]) Parameters() []*Parameter[B] {
	return nil
}
