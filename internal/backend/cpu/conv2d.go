package cpu

import (
	"fmt"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Conv2D performs 2D cross-correlation (the deep-learning "convolution").
//
// Input:  [N, C_in, H, W]
// Kernel: [C_out, C_in, K_h, K_w]
// Output: [N, C_out, H_out, W_out] with
//
//	H_out = (H + 2*padding - K_h)/stride + 1
//	W_out = (W + 2*padding - K_w)/stride + 1
func (b *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	checkFloat32("conv2d", input, kernel)

	in, kn := input.Shape(), kernel.Shape()
	if len(in) != 4 || len(kn) != 4 {
		panic(fmt.Sprintf("cpu: conv2d: expected 4D input and kernel, got %v, %v", in, kn))
	}
	if in[1] != kn[1] {
		panic(fmt.Sprintf("cpu: conv2d: channel mismatch: input %d vs kernel %d", in[1], kn[1]))
	}

	n, cIn, h, w := in[0], in[1], in[2], in[3]
	cOut, kh, kw := kn[0], kn[2], kn[3]
	hOut := (h+2*padding-kh)/stride + 1
	wOut := (w+2*padding-kw)/stride + 1

	out := newFloat32(tensor.Shape{n, cOut, hOut, wOut})
	xd, kd, od := input.AsFloat32(), kernel.AsFloat32(), out.AsFloat32()

	for ni := 0; ni < n; ni++ {
		for co := 0; co < cOut; co++ {
			for oy := 0; oy < hOut; oy++ {
				for ox := 0; ox < wOut; ox++ {
					var sum float32
					for ci := 0; ci < cIn; ci++ {
						for ky := 0; ky < kh; ky++ {
							iy := oy*stride + ky - padding
							if iy < 0 || iy >= h {
								continue
							}
							for kx := 0; kx < kw; kx++ {
								ix := ox*stride + kx - padding
								if ix < 0 || ix >= w {
									continue
								}
								sum += xd[((ni*cIn+ci)*h+iy)*w+ix] * kd[((co*cIn+ci)*kh+ky)*kw+kx]
							}
						}
					}
					od[((ni*cOut+co)*hOut+oy)*wOut+ox] = sum
				}
			}
		}
	}
	return out
}
