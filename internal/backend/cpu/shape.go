package cpu

import (
	"fmt"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Reshape returns a view of t with a new shape. The element count must be
// preserved; data is shared copy-on-write.
func (b *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("cpu: reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			t.Shape(), t.NumElements(), newShape, newShape.NumElements()))
	}

	out, err := tensor.NewRaw(newShape, t.DType(), t.Device())
	if err != nil {
		panic("cpu: reshape: " + err.Error())
	}
	copy(out.Data(), t.Data()[:t.ByteSize()])
	return out
}

// Transpose permutes the tensor's dimensions, producing a contiguous copy.
// With no axes given, all dimensions are reversed.
func (b *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	checkFloat32("transpose", t)

	shape := t.Shape()
	ndim := len(shape)
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("cpu: transpose: %d axes for %dD tensor", len(axes), ndim))
	}

	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		outShape[i] = shape[ax]
	}

	out := newFloat32(outShape)
	xd, od := t.AsFloat32(), out.AsFloat32()

	inStrides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()

	for flat := range od {
		rem := flat
		inOff := 0
		for d := 0; d < ndim; d++ {
			idx := rem / outStrides[d]
			rem %= outStrides[d]
			inOff += idx * inStrides[axes[d]]
		}
		od[flat] = xd[inOff]
	}
	return out
}
