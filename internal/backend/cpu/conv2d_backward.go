package cpu

import (
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Conv2DInputBackward computes the gradient of Conv2D with respect to the
// input: the "transposed convolution" of the output gradient with the kernel.
//
//	inputGrad[n,ci,iy,ix] = Σ_co Σ_ky Σ_kx outputGrad[n,co,oy,ox] * kernel[co,ci,ky,kx]
//
// where iy = oy*stride + ky - padding (and likewise for ix).
func (b *CPUBackend) Conv2DInputBackward(input, kernel, outputGrad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	checkFloat32("conv2d input backward", input, kernel, outputGrad)

	in, kn, on := input.Shape(), kernel.Shape(), outputGrad.Shape()
	n, cIn, h, w := in[0], in[1], in[2], in[3]
	cOut, kh, kw := kn[0], kn[2], kn[3]
	hOut, wOut := on[2], on[3]

	grad := newFloat32(in.Clone())
	gd, kd, od := grad.AsFloat32(), kernel.AsFloat32(), outputGrad.AsFloat32()

	for ni := 0; ni < n; ni++ {
		for co := 0; co < cOut; co++ {
			for oy := 0; oy < hOut; oy++ {
				for ox := 0; ox < wOut; ox++ {
					g := od[((ni*cOut+co)*hOut+oy)*wOut+ox]
					if g == 0 {
						continue
					}
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
								gd[((ni*cIn+ci)*h+iy)*w+ix] += g * kd[((co*cIn+ci)*kh+ky)*kw+kx]
							}
						}
					}
				}
			}
		}
	}
	return grad
}

// Conv2DKernelBackward computes the gradient of Conv2D with respect to the
// kernel: the correlation of the input with the output gradient.
func (b *CPUBackend) Conv2DKernelBackward(input, kernel, outputGrad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	checkFloat32("conv2d kernel backward", input, kernel, outputGrad)

	in, kn, on := input.Shape(), kernel.Shape(), outputGrad.Shape()
	n, cIn, h, w := in[0], in[1], in[2], in[3]
	cOut, kh, kw := kn[0], kn[2], kn[3]
	hOut, wOut := on[2], on[3]

	grad := newFloat32(kn.Clone())
	gd, xd, od := grad.AsFloat32(), input.AsFloat32(), outputGrad.AsFloat32()

	for ni := 0; ni < n; ni++ {
		for co := 0; co < cOut; co++ {
			for oy := 0; oy < hOut; oy++ {
				for ox := 0; ox < wOut; ox++ {
					g := od[((ni*cOut+co)*hOut+oy)*wOut+ox]
					if g == 0 {
						continue
					}
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
								gd[((co*cIn+ci)*kh+ky)*kw+kx] += g * xd[((ni*cIn+ci)*h+iy)*w+ix]
							}
						}
					}
				}
			}
		}
	}
	return grad
}
