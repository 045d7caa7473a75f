package ops

import "github.com/gradviz-ml/gradviz/internal/tensor"

// SoftmaxOp represents softmax along the last dimension of a 2D tensor.
//
// Backward uses the simplified Jacobian-vector product:
//
//	∂L/∂x[b,j] = softmax[b,j] * (∂L/∂softmax[b,j] - Σ_i ∂L/∂softmax[b,i] * softmax[b,i])
type SoftmaxOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor // Cached softmax output for backward
}

// NewSoftmaxOp creates a new softmax operation.
func NewSoftmaxOp(input, output *tensor.RawTensor) *SoftmaxOp {
	return &SoftmaxOp{input: input, output: output}
}

// Backward computes the gradient with respect to the logits.
func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	if len(shape) != 2 {
		panic("SoftmaxOp: backward only supports 2D tensors [batch, classes]")
	}
	rows, cols := shape[0], shape[1]

	inputGrad := zerosLike(op.input)
	sm, gd, ig := op.output.AsFloat32(), outputGrad.AsFloat32(), inputGrad.AsFloat32()

	for r := 0; r < rows; r++ {
		var dot float32
		for j := 0; j < cols; j++ {
			idx := r*cols + j
			dot += gd[idx] * sm[idx]
		}
		for j := 0; j < cols; j++ {
			idx := r*cols + j
			ig[idx] = sm[idx] * (gd[idx] - dot)
		}
	}
	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns [logits].
func (op *SoftmaxOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the softmax probabilities.
func (op *SoftmaxOp) Output() *tensor.RawTensor { return op.output }
