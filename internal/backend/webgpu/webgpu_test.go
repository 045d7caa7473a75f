package webgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

func rawFrom(t *testing.T, shape tensor.Shape, values []float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.WebGPU)
	require.NoError(t, err)
	copy(raw.AsFloat32(), values)
	return raw
}

// requireGPU skips the test when no WebGPU device is available, which is
// the common case on CI machines.
func requireGPU(t *testing.T) *Backend {
	t.Helper()
	backend, err := New()
	if err != nil {
		t.Skipf("webgpu unavailable: %v", err)
	}
	t.Cleanup(backend.Release)
	return backend
}

func TestGPUEligible(t *testing.T) {
	x := rawFrom(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	y := rawFrom(t, tensor.Shape{2, 2}, []float32{5, 6, 7, 8})
	assert.True(t, gpuEligible(x, y))

	// Broadcasting shapes take the CPU path.
	bias := rawFrom(t, tensor.Shape{1, 2}, []float32{1, 2})
	assert.False(t, gpuEligible(x, bias))
}

func TestMetadata(t *testing.T) {
	b := &Backend{}
	assert.Equal(t, "WebGPU", b.Name())
	assert.Equal(t, tensor.WebGPU, b.Device())
}

func TestElementwiseOnGPU(t *testing.T) {
	backend := requireGPU(t)

	x := rawFrom(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	y := rawFrom(t, tensor.Shape{2, 3}, []float32{10, 20, 30, 40, 50, 60})

	sum := backend.Add(x, y)
	assert.Equal(t, []float32{11, 22, 33, 44, 55, 66}, sum.AsFloat32())
	assert.Equal(t, tensor.WebGPU, sum.Device())

	diff := backend.Sub(y, x)
	assert.Equal(t, []float32{9, 18, 27, 36, 45, 54}, diff.AsFloat32())

	prod := backend.Mul(x, x)
	assert.Equal(t, []float32{1, 4, 9, 16, 25, 36}, prod.AsFloat32())

	quot := backend.Div(y, x)
	assert.InDeltaSlice(t, []float32{10, 10, 10, 10, 10, 10}, quot.AsFloat32(), 1e-5)
}

func TestBroadcastFallsBackToCPU(t *testing.T) {
	backend := requireGPU(t)

	x := rawFrom(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	bias := rawFrom(t, tensor.Shape{1, 2}, []float32{10, 20})

	sum := backend.Add(x, bias)
	assert.Equal(t, []float32{11, 22, 13, 24}, sum.AsFloat32())
	assert.Equal(t, tensor.WebGPU, sum.Device())
}

func TestDelegatedKernelsRetagDevice(t *testing.T) {
	backend := requireGPU(t)

	a := rawFrom(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	b := rawFrom(t, tensor.Shape{2, 2}, []float32{1, 0, 0, 1})

	out := backend.MatMul(a, b)
	assert.Equal(t, []float32{1, 2, 3, 4}, out.AsFloat32())
	assert.Equal(t, tensor.WebGPU, out.Device())

	probs := backend.Softmax(a, 1)
	assert.Equal(t, tensor.WebGPU, probs.Device())
}
