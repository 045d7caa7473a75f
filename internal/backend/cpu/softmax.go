package cpu

import (
	"fmt"
	"math"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Softmax applies softmax along the given dimension.
//
// Only the last dimension of a 2D tensor [batch, classes] is supported,
// which is all classification heads need. Rows are max-shifted before
// exponentiation for numerical stability.
func (b *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	checkFloat32("softmax", x)

	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("cpu: softmax: expected 2D tensor, got %v", shape))
	}
	if dim != 1 && dim != -1 {
		panic(fmt.Sprintf("cpu: softmax: only the last dimension is supported, got dim=%d", dim))
	}

	rows, cols := shape[0], shape[1]
	out := newFloat32(shape.Clone())
	xd, od := x.AsFloat32(), out.AsFloat32()

	for r := 0; r < rows; r++ {
		row := xd[r*cols : (r+1)*cols]
		oRow := od[r*cols : (r+1)*cols]

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		var sum float32
		for j, v := range row {
			e := float32(math.Exp(float64(v - maxVal)))
			oRow[j] = e
			sum += e
		}
		for j := range oRow {
			oRow[j] /= sum
		}
	}
	return out
}
