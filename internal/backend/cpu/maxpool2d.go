package cpu

import (
	"fmt"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// MaxPool2D performs 2D max pooling over NCHW input.
//
// Output: [N, C, (H-kernelSize)/stride+1, (W-kernelSize)/stride+1].
func (b *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	checkFloat32("maxpool2d", input)

	in := input.Shape()
	if len(in) != 4 {
		panic(fmt.Sprintf("cpu: maxpool2d: expected 4D input, got %v", in))
	}

	n, c, h, w := in[0], in[1], in[2], in[3]
	hOut := (h-kernelSize)/stride + 1
	wOut := (w-kernelSize)/stride + 1

	out := newFloat32(tensor.Shape{n, c, hOut, wOut})
	xd, od := input.AsFloat32(), out.AsFloat32()

	outIdx := 0
	for ni := 0; ni < n; ni++ {
		for ci := 0; ci < c; ci++ {
			for oy := 0; oy < hOut; oy++ {
				for ox := 0; ox < wOut; ox++ {
					best := xd[((ni*c+ci)*h+oy*stride)*w+ox*stride]
					for ky := 0; ky < kernelSize; ky++ {
						for kx := 0; kx < kernelSize; kx++ {
							v := xd[((ni*c+ci)*h+oy*stride+ky)*w+ox*stride+kx]
							if v > best {
								best = v
							}
						}
					}
					od[outIdx] = best
					outIdx++
				}
			}
		}
	}
	return out
}

// MaxPool2DBackward routes each output gradient to the input position that
// held the window maximum; every other position receives zero. maxIndices
// holds the flat input index of the winner for each output position, in
// output order.
func (b *CPUBackend) MaxPool2DBackward(input, outputGrad *tensor.RawTensor, maxIndices []int) *tensor.RawTensor {
	checkFloat32("maxpool2d backward", input, outputGrad)

	grad := newFloat32(input.Shape().Clone())
	gd, od := grad.AsFloat32(), outputGrad.AsFloat32()

	if len(maxIndices) != len(od) {
		panic(fmt.Sprintf("cpu: maxpool2d backward: %d max indices for %d output gradients", len(maxIndices), len(od)))
	}

	for outIdx, inIdx := range maxIndices {
		gd[inIdx] += od[outIdx]
	}
	return grad
}
