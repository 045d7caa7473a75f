// Package autodiff implements reverse-mode automatic differentiation
// via a gradient tape that records operations during the forward pass.
package autodiff

import (
	"github.com/gradviz-ml/gradviz/internal/autodiff/ops"
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// AutodiffBackend wraps another backend and records operations to a
// gradient tape so gradients can be computed later. It satisfies
// tensor.Backend and is therefore usable anywhere the inner backend is.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates an autodiff backend wrapping the given inner backend.
func New[B tensor.Backend](inner B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: inner,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape.
func (a *AutodiffBackend[B]) Tape() *GradientTape {
	return a.tape
}

// GetTape satisfies BackwardCapable.
func (a *AutodiffBackend[B]) GetTape() *GradientTape {
	return a.tape
}

// Inner returns the wrapped backend.
func (a *AutodiffBackend[B]) Inner() B {
	return a.inner
}

// Name returns the backend name.
func (a *AutodiffBackend[B]) Name() string {
	return "autodiff(" + a.inner.Name() + ")"
}

// Device returns the inner backend's device.
func (a *AutodiffBackend[B]) Device() tensor.Device {
	return a.inner.Device()
}

// record appends the operation to the tape. The tape pins the operation's
// tensors so later copy-on-write cannot invalidate its pointers.
func (a *AutodiffBackend[B]) record(op ops.Operation) {
	a.tape.Record(op)
}

// --- Recorded operations ---

func (a *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := a.inner.Add(x, y)
	a.record(ops.NewAddOp(x, y, out))
	return out
}

func (a *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := a.inner.Sub(x, y)
	a.record(ops.NewSubOp(x, y, out))
	return out
}

func (a *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := a.inner.Mul(x, y)
	a.record(ops.NewMulOp(x, y, out))
	return out
}

func (a *AutodiffBackend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := a.inner.Div(x, y)
	a.record(ops.NewDivOp(x, y, out))
	return out
}

func (a *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := a.inner.MatMul(x, y)
	a.record(ops.NewMatMulOp(x, y, out))
	return out
}

func (a *AutodiffBackend[B]) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	out := a.inner.Conv2D(input, kernel, stride, padding)
	a.record(ops.NewConv2DOp(input, kernel, out, stride, padding))
	return out
}

func (a *AutodiffBackend[B]) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	out := a.inner.MaxPool2D(input, kernelSize, stride)
	a.record(ops.NewMaxPool2DOp(input, out, kernelSize, stride))
	return out
}

func (a *AutodiffBackend[B]) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out := a.inner.Reshape(x, shape)
	a.record(ops.NewReshapeOp(x, out))
	return out
}

func (a *AutodiffBackend[B]) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	out := a.inner.Transpose(x, axes...)
	a.record(ops.NewTransposeOp(x, out, axes))
	return out
}

func (a *AutodiffBackend[B]) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	out := a.inner.Softmax(x, dim)
	a.record(ops.NewSoftmaxOp(x, out))
	return out
}

// ReLU applies the rectifier and records it. The rectifier is the unit the
// gradient interceptors rewrite, so it must always land on the tape as its
// own operation.
func (a *AutodiffBackend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
	if err != nil {
		panic("autodiff: relu: " + err.Error())
	}
	in, od := x.AsFloat32(), out.AsFloat32()
	for i := range in {
		if in[i] > 0 {
			od[i] = in[i]
		}
	}
	a.record(ops.NewReLUOp(x, out))
	return out
}

// --- Pass-through operations (never differentiated) ---

func (a *AutodiffBackend[B]) Conv2DInputBackward(input, kernel, outputGrad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return a.inner.Conv2DInputBackward(input, kernel, outputGrad, stride, padding)
}

func (a *AutodiffBackend[B]) Conv2DKernelBackward(input, kernel, outputGrad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return a.inner.Conv2DKernelBackward(input, kernel, outputGrad, stride, padding)
}

func (a *AutodiffBackend[B]) MaxPool2DBackward(input, outputGrad *tensor.RawTensor, maxIndices []int) *tensor.RawTensor {
	return a.inner.MaxPool2DBackward(input, outputGrad, maxIndices)
}

func (a *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	return a.inner.MulScalar(x, s)
}

func (a *AutodiffBackend[B]) AddScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	return a.inner.AddScalar(x, s)
}

func (a *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return a.inner.SumDim(x, dim, keepDim)
}

func (a *AutodiffBackend[B]) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return a.inner.MeanDim(x, dim, keepDim)
}

func (a *AutodiffBackend[B]) Upsample2D(x *tensor.RawTensor, outH, outW int) *tensor.RawTensor {
	return a.inner.Upsample2D(x, outH, outW)
}
