// Package cpu implements the pure-Go CPU backend for tensor operations.
//
// All kernels operate on float32 data. The backend is stateless and safe
// for concurrent use; every operation allocates its result.
package cpu

import (
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// CPUBackend implements tensor.Backend with pure Go kernels.
type CPUBackend struct{}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{}
}

// Name returns the backend name.
func (b *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (b *CPUBackend) Device() tensor.Device {
	return tensor.CPU
}

// newFloat32 allocates a float32 result tensor, panicking on invalid shapes.
// Shape errors here are programming errors, not user input.
func newFloat32(shape tensor.Shape) *tensor.RawTensor {
	out, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		panic("cpu: " + err.Error())
	}
	return out
}

func checkFloat32(name string, ts ...*tensor.RawTensor) {
	for _, t := range ts {
		if t.DType() != tensor.Float32 {
			panic("cpu: " + name + ": only float32 tensors are supported, got " + t.DType().String())
		}
	}
}
