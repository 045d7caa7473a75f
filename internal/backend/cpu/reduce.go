package cpu

import (
	"fmt"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// SumDim sums along a dimension. With keepDim the reduced dimension stays
// as size 1, otherwise it is removed.
func (b *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return reduceDim("sumdim", x, dim, keepDim, false)
}

// MeanDim averages along a dimension. With keepDim the reduced dimension
// stays as size 1, otherwise it is removed.
func (b *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return reduceDim("meandim", x, dim, keepDim, true)
}

func reduceDim(name string, x *tensor.RawTensor, dim int, keepDim, mean bool) *tensor.RawTensor {
	checkFloat32(name, x)

	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("cpu: %s: dimension %d out of range for shape %v", name, dim, shape))
	}

	// Collapse the shape into [outer, reduced, inner].
	outer, inner := 1, 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	reduced := shape[dim]

	outShape := make(tensor.Shape, 0, len(shape))
	for d, size := range shape {
		if d == dim {
			if keepDim {
				outShape = append(outShape, 1)
			}
			continue
		}
		outShape = append(outShape, size)
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	out := newFloat32(outShape)
	xd, od := x.AsFloat32(), out.AsFloat32()

	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			var sum float32
			for r := 0; r < reduced; r++ {
				sum += xd[(o*reduced+r)*inner+i]
			}
			if mean {
				sum /= float32(reduced)
			}
			od[o*inner+i] = sum
		}
	}
	return out
}
