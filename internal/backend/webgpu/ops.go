package webgpu

import (
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// gpuEligible reports whether a binary op can run as a compute shader:
// same-shape float32 with no broadcasting.
func gpuEligible(x, y *tensor.RawTensor) bool {
	return x.DType() == tensor.Float32 &&
		y.DType() == tensor.Float32 &&
		x.Shape().Equal(y.Shape())
}

// binary runs the shader when eligible and falls back to the CPU kernel
// (which handles broadcasting) otherwise.
func (b *Backend) binary(x, y *tensor.RawTensor, name, code string, fallback func(a, b *tensor.RawTensor) *tensor.RawTensor) *tensor.RawTensor {
	if gpuEligible(x, y) {
		result, err := b.runBinaryOp(x, y, name, code)
		if err != nil {
			panic("webgpu: " + name + ": " + err.Error())
		}
		return result
	}
	return fallback(x, y).ToDevice(tensor.WebGPU)
}

// Add performs element-wise addition.
func (b *Backend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(x, y, "add", addShader, b.cpu.Add)
}

// Sub performs element-wise subtraction.
func (b *Backend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(x, y, "sub", subShader, b.cpu.Sub)
}

// Mul performs element-wise multiplication.
func (b *Backend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(x, y, "mul", mulShader, b.cpu.Mul)
}

// Div performs element-wise division.
func (b *Backend) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(x, y, "div", divShader, b.cpu.Div)
}

// The remaining kernels delegate to the CPU backend. Tensor buffers are
// host-resident on this backend too, so delegation is a direct call; only
// the device tag on the result needs fixing up.

func (b *Backend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.cpu.MatMul(x, y).ToDevice(tensor.WebGPU)
}

func (b *Backend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.cpu.Conv2D(input, kernel, stride, padding).ToDevice(tensor.WebGPU)
}

func (b *Backend) Conv2DInputBackward(input, kernel, outputGrad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.cpu.Conv2DInputBackward(input, kernel, outputGrad, stride, padding).ToDevice(tensor.WebGPU)
}

func (b *Backend) Conv2DKernelBackward(input, kernel, outputGrad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.cpu.Conv2DKernelBackward(input, kernel, outputGrad, stride, padding).ToDevice(tensor.WebGPU)
}

func (b *Backend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	return b.cpu.MaxPool2D(input, kernelSize, stride).ToDevice(tensor.WebGPU)
}

func (b *Backend) MaxPool2DBackward(input, outputGrad *tensor.RawTensor, maxIndices []int) *tensor.RawTensor {
	return b.cpu.MaxPool2DBackward(input, outputGrad, maxIndices).ToDevice(tensor.WebGPU)
}

func (b *Backend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	return b.cpu.Reshape(t, newShape).ToDevice(tensor.WebGPU)
}

func (b *Backend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	return b.cpu.Transpose(t, axes...).ToDevice(tensor.WebGPU)
}

func (b *Backend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return b.cpu.MulScalar(x, scalar).ToDevice(tensor.WebGPU)
}

func (b *Backend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return b.cpu.AddScalar(x, scalar).ToDevice(tensor.WebGPU)
}

func (b *Backend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.cpu.Softmax(x, dim).ToDevice(tensor.WebGPU)
}

func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.cpu.SumDim(x, dim, keepDim).ToDevice(tensor.WebGPU)
}

func (b *Backend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.cpu.MeanDim(x, dim, keepDim).ToDevice(tensor.WebGPU)
}

func (b *Backend) Upsample2D(x *tensor.RawTensor, outH, outW int) *tensor.RawTensor {
	return b.cpu.Upsample2D(x, outH, outW).ToDevice(tensor.WebGPU)
}
