package ops

import "github.com/gradviz-ml/gradviz/internal/tensor"

// ReLUOp represents a ReLU activation: output = max(0, x).
//
// Standard backward rule: d(ReLU(x))/dx = 1 if x > 0, else 0. Attribution
// methods that rewrite this rule (Deconvnet, Guided Backpropagation) do so
// through tape interceptors keyed on this operation's output, never by
// modifying the op itself.
type ReLUOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{input: input, output: output}
}

// Backward masks the output gradient by the sign of the forward input.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{PassPositiveForward(op.input, outputGrad)}
}

// Inputs returns [x].
func (op *ReLUOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns max(0, x).
func (op *ReLUOp) Output() *tensor.RawTensor { return op.output }

// PassPositiveForward is the standard rectifier backward rule: the gradient
// passes only where the forward input was positive.
func PassPositiveForward(forwardInput, grad *tensor.RawTensor) *tensor.RawTensor {
	out := zerosLike(grad)
	in, gd, od := forwardInput.AsFloat32(), grad.AsFloat32(), out.AsFloat32()
	for i := range gd {
		if in[i] > 0 {
			od[i] = gd[i]
		}
	}
	return out
}

// PassPositiveGrad is the Deconvnet rectifier rule: negative gradient values
// are discarded regardless of the forward activation's sign.
func PassPositiveGrad(grad *tensor.RawTensor) *tensor.RawTensor {
	out := zerosLike(grad)
	gd, od := grad.AsFloat32(), out.AsFloat32()
	for i := range gd {
		if gd[i] > 0 {
			od[i] = gd[i]
		}
	}
	return out
}

// PassPositiveBoth is the Guided Backpropagation rectifier rule: the
// gradient passes only where both the forward input and the incoming
// gradient are strictly positive.
func PassPositiveBoth(forwardInput, grad *tensor.RawTensor) *tensor.RawTensor {
	out := zerosLike(grad)
	in, gd, od := forwardInput.AsFloat32(), grad.AsFloat32(), out.AsFloat32()
	for i := range gd {
		if in[i] > 0 && gd[i] > 0 {
			od[i] = gd[i]
		}
	}
	return out
}
