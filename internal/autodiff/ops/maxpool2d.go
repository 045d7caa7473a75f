package ops

import "github.com/gradviz-ml/gradviz/internal/tensor"

// MaxPool2DOp records a max pooling operation for autodiff.
//
// The winning input position for each output is found during the forward
// pass; backward routes each output gradient to that position only.
type MaxPool2DOp struct {
	input      *tensor.RawTensor
	output     *tensor.RawTensor
	maxIndices []int
}

// NewMaxPool2DOp creates a new MaxPool2D operation, locating the window
// maxima needed for gradient routing.
func NewMaxPool2DOp(input, output *tensor.RawTensor, kernelSize, stride int) *MaxPool2DOp {
	return &MaxPool2DOp{
		input:      input,
		output:     output,
		maxIndices: computeMaxIndices(input, output, kernelSize, stride),
	}
}

func computeMaxIndices(input, output *tensor.RawTensor, kernelSize, stride int) []int {
	in, on := input.Shape(), output.Shape()
	n, c, h, w := in[0], in[1], in[2], in[3]
	hOut, wOut := on[2], on[3]

	data := input.AsFloat32()
	maxIndices := make([]int, n*c*hOut*wOut)

	outIdx := 0
	for ni := 0; ni < n; ni++ {
		for ci := 0; ci < c; ci++ {
			for oy := 0; oy < hOut; oy++ {
				for ox := 0; ox < wOut; ox++ {
					bestIdx := ((ni*c+ci)*h+oy*stride)*w + ox*stride
					best := data[bestIdx]
					for ky := 0; ky < kernelSize; ky++ {
						for kx := 0; kx < kernelSize; kx++ {
							idx := ((ni*c+ci)*h+oy*stride+ky)*w + ox*stride + kx
							if data[idx] > best {
								best = data[idx]
								bestIdx = idx
							}
						}
					}
					maxIndices[outIdx] = bestIdx
					outIdx++
				}
			}
		}
	}
	return maxIndices
}

// Backward routes output gradients through the stored max positions.
func (op *MaxPool2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MaxPool2DBackward(op.input, outputGrad, op.maxIndices)}
}

// Inputs returns [input].
func (op *MaxPool2DOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the pooled tensor.
func (op *MaxPool2DOp) Output() *tensor.RawTensor { return op.output }
