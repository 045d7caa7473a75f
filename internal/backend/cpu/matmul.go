package cpu

import (
	"fmt"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) → (M, N).
func (b *CPUBackend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	checkFloat32("matmul", x, y)

	xShape, yShape := x.Shape(), y.Shape()
	if len(xShape) != 2 || len(yShape) != 2 {
		panic(fmt.Sprintf("cpu: matmul: expected 2D tensors, got %v @ %v", xShape, yShape))
	}
	if xShape[1] != yShape[0] {
		panic(fmt.Sprintf("cpu: matmul: inner dimensions mismatch: %v @ %v", xShape, yShape))
	}

	m, k, n := xShape[0], xShape[1], yShape[1]
	out := newFloat32(tensor.Shape{m, n})

	xd, yd, od := x.AsFloat32(), y.AsFloat32(), out.AsFloat32()

	// ikj loop order keeps the inner loop sequential over both operands.
	for i := 0; i < m; i++ {
		for p := 0; p < k; p++ {
			a := xd[i*k+p]
			if a == 0 {
				continue
			}
			yRow := yd[p*n : (p+1)*n]
			oRow := od[i*n : (i+1)*n]
			for j := range oRow {
				oRow[j] += a * yRow[j]
			}
		}
	}
	return out
}
