package ops

import (
	"fmt"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// reduceGrad collapses a gradient produced under broadcasting back onto the
// operand's original shape: leading broadcast dimensions are summed away and
// size-1 dimensions are summed with keepDim.
func reduceGrad(grad *tensor.RawTensor, target tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	for len(grad.Shape()) > len(target) {
		grad = backend.SumDim(grad, 0, false)
	}
	for d, size := range target {
		if size == 1 && grad.Shape()[d] != 1 {
			grad = backend.SumDim(grad, d, true)
		}
	}
	if !grad.Shape().Equal(target) {
		panic(fmt.Sprintf("ops: gradient shape %v does not reduce to %v", grad.Shape(), target))
	}
	return grad
}

// zerosLike allocates a zero gradient matching t.
func zerosLike(t *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(t.Shape(), t.DType(), t.Device())
	if err != nil {
		panic("ops: " + err.Error())
	}
	return out
}
