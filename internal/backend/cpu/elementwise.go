package cpu

import (
	"fmt"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Add performs element-wise addition with broadcasting.
func (b *CPUBackend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	return binaryOp("add", x, y, func(a, b float32) float32 { return a + b })
}

// Sub performs element-wise subtraction with broadcasting.
func (b *CPUBackend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	return binaryOp("sub", x, y, func(a, b float32) float32 { return a - b })
}

// Mul performs element-wise multiplication with broadcasting.
func (b *CPUBackend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	return binaryOp("mul", x, y, func(a, b float32) float32 { return a * b })
}

// Div performs element-wise division with broadcasting.
func (b *CPUBackend) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	return binaryOp("div", x, y, func(a, b float32) float32 { return a / b })
}

// MulScalar multiplies every element by a scalar.
func (b *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	s := float32(scalar)
	return unaryOp(x, func(v float32) float32 { return v * s })
}

// AddScalar adds a scalar to every element.
func (b *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	s := float32(scalar)
	return unaryOp(x, func(v float32) float32 { return v + s })
}

func unaryOp(x *tensor.RawTensor, f func(float32) float32) *tensor.RawTensor {
	checkFloat32("unary", x)
	out := newFloat32(x.Shape())
	xd := x.AsFloat32()
	od := out.AsFloat32()
	for i, v := range xd {
		od[i] = f(v)
	}
	return out
}

// binaryOp applies f element-wise with NumPy-style broadcasting.
func binaryOp(name string, x, y *tensor.RawTensor, f func(a, b float32) float32) *tensor.RawTensor {
	checkFloat32(name, x, y)

	xShape, yShape := x.Shape(), y.Shape()
	if xShape.Equal(yShape) {
		// Fast path: identical shapes, flat loop.
		out := newFloat32(xShape)
		xd, yd, od := x.AsFloat32(), y.AsFloat32(), out.AsFloat32()
		for i := range od {
			od[i] = f(xd[i], yd[i])
		}
		return out
	}

	outShape, _, err := tensor.BroadcastShapes(xShape, yShape)
	if err != nil {
		panic(fmt.Sprintf("cpu: %s: %v", name, err))
	}

	out := newFloat32(outShape)
	xd, yd, od := x.AsFloat32(), y.AsFloat32(), out.AsFloat32()

	xStrides := broadcastStrides(xShape, outShape)
	yStrides := broadcastStrides(yShape, outShape)
	outStrides := outShape.ComputeStrides()

	idx := make([]int, len(outShape))
	for flat := range od {
		xOff, yOff := 0, 0
		rem := flat
		for d := range outShape {
			idx[d] = rem / outStrides[d]
			rem %= outStrides[d]
			xOff += idx[d] * xStrides[d]
			yOff += idx[d] * yStrides[d]
		}
		od[flat] = f(xd[xOff], yd[yOff])
	}
	return out
}

// broadcastStrides maps an operand shape onto the output shape: broadcast
// dimensions (size 1 or missing) get stride 0 so their index is ignored.
func broadcastStrides(in, out tensor.Shape) []int {
	inStrides := in.ComputeStrides()
	strides := make([]int, len(out))
	offset := len(out) - len(in)
	for d := range out {
		if d < offset {
			strides[d] = 0
			continue
		}
		if in[d-offset] == 1 && out[d] != 1 {
			strides[d] = 0
		} else {
			strides[d] = inStrides[d-offset]
		}
	}
	return strides
}
