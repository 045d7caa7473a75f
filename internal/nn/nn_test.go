package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradviz-ml/gradviz/internal/backend/cpu"
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

func TestLinearForward(t *testing.T) {
	backend := cpu.New()
	layer := NewLinear(2, 2, backend)

	// Overwrite initialized weights with known values.
	copy(layer.Weight().Tensor().Data(), []float32{1, 2, 3, 4}) // [[1,2],[3,4]]
	copy(layer.Bias().Tensor().Data(), []float32{10, 20})

	input, err := tensor.FromSlice([]float32{1, 1}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)

	// y = x @ W.T + b = [1+2, 3+4] + [10, 20] = [13, 27]
	output := layer.Forward(input)
	assert.Equal(t, tensor.Shape{1, 2}, output.Shape())
	assert.Equal(t, []float32{13, 27}, output.Data())
}

func TestLinearShapeValidation(t *testing.T) {
	backend := cpu.New()
	layer := NewLinear(4, 2, backend)

	bad, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)

	assert.Panics(t, func() { layer.Forward(bad) })
}

func TestConv2DForward(t *testing.T) {
	backend := cpu.New()
	conv := NewConv2D(1, 1, 2, 2, 1, 0, false, backend)

	// All-ones 2x2 kernel sums each window.
	copy(conv.Weight().Tensor().Data(), []float32{1, 1, 1, 1})

	input, err := tensor.FromSlice(
		[]float32{1, 2, 3, 4, 5, 6, 7, 8, 9},
		tensor.Shape{1, 1, 3, 3}, backend)
	require.NoError(t, err)

	output := conv.Forward(input)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, output.Shape())
	assert.Equal(t, []float32{12, 16, 24, 28}, output.Data())
}

func TestConv2DBias(t *testing.T) {
	backend := cpu.New()
	conv := NewConv2D(1, 2, 1, 1, 1, 0, true, backend)

	copy(conv.Weight().Tensor().Data(), []float32{1, 2}) // channel scales
	copy(conv.Bias().Tensor().Data(), []float32{100, 200})

	input, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{1, 1, 2, 2}, backend)
	require.NoError(t, err)

	output := conv.Forward(input)
	assert.Equal(t, tensor.Shape{1, 2, 2, 2}, output.Shape())
	assert.Equal(t, []float32{101, 102, 103, 104, 202, 204, 206, 208}, output.Data())
}

func TestMaxPool2DForward(t *testing.T) {
	backend := cpu.New()
	pool := NewMaxPool2D(2, 0, backend) // stride defaults to kernel size

	input, err := tensor.FromSlice(
		[]float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		tensor.Shape{1, 1, 4, 4}, backend)
	require.NoError(t, err)

	output := pool.Forward(input)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, output.Shape())
	assert.Equal(t, []float32{6, 8, 14, 16}, output.Data())
}

func TestReLUForward(t *testing.T) {
	backend := cpu.New()
	relu := NewReLU[*cpu.CPUBackend]()

	input, err := tensor.FromSlice([]float32{-1, 0, 2, -3}, tensor.Shape{4}, backend)
	require.NoError(t, err)

	output := relu.Forward(input)
	assert.Equal(t, []float32{0, 0, 2, 0}, output.Data())
}

func TestFlatten(t *testing.T) {
	backend := cpu.New()
	flat := NewFlatten[*cpu.CPUBackend]()

	input := tensor.Ones[float32](tensor.Shape{2, 3, 4, 5}, backend)
	output := flat.Forward(input)
	assert.Equal(t, tensor.Shape{2, 60}, output.Shape())
}

func TestNetworkForwardAndLookup(t *testing.T) {
	backend := cpu.New()
	net := NewNetwork[*cpu.CPUBackend]()
	net.Add("fc1", NewLinear(2, 2, backend))
	net.Add("relu1", NewReLU[*cpu.CPUBackend]())

	assert.Equal(t, 2, net.Len())
	assert.Equal(t, []string{"fc1", "relu1"}, net.Names())

	_, ok := net.Layer("fc1")
	assert.True(t, ok)
	_, ok = net.Layer("missing")
	assert.False(t, ok)

	assert.Panics(t, func() { net.Add("fc1", NewReLU[*cpu.CPUBackend]()) })
}

func TestNetworkForwardHooks(t *testing.T) {
	backend := cpu.New()
	net := NewNetwork[*cpu.CPUBackend]()
	net.Add("relu1", NewReLU[*cpu.CPUBackend]())
	net.Add("relu2", NewReLU[*cpu.CPUBackend]())

	var seen []string
	var captured *tensor.Tensor[float32, *cpu.CPUBackend]
	id, err := net.RegisterForwardHook("relu2", func(layer string, input, output *tensor.Tensor[float32, *cpu.CPUBackend]) {
		seen = append(seen, layer)
		captured = output
	})
	require.NoError(t, err)

	input, err := tensor.FromSlice([]float32{-1, 2}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	output := net.Forward(input)
	assert.Equal(t, []string{"relu2"}, seen)
	assert.Equal(t, output.Data(), captured.Data())

	// Removal stops delivery.
	assert.True(t, net.RemoveForwardHook(id))
	assert.False(t, net.RemoveForwardHook(id))
	net.Forward(input)
	assert.Len(t, seen, 1)
}

func TestNetworkHookUnknownLayer(t *testing.T) {
	net := NewNetwork[*cpu.CPUBackend]()
	_, err := net.RegisterForwardHook("nope", func(string, *tensor.Tensor[float32, *cpu.CPUBackend], *tensor.Tensor[float32, *cpu.CPUBackend]) {})
	assert.Error(t, err)
}

func TestNetworkStateDictRoundTrip(t *testing.T) {
	backend := cpu.New()

	src := NewNetwork[*cpu.CPUBackend]()
	src.Add("fc", NewLinear(2, 2, backend))
	copy(src.StateDict()["fc.weight"].AsFloat32(), []float32{1, 2, 3, 4})
	copy(src.StateDict()["fc.bias"].AsFloat32(), []float32{5, 6})

	dst := NewNetwork[*cpu.CPUBackend]()
	dst.Add("fc", NewLinear(2, 2, backend))
	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	assert.Equal(t, []float32{1, 2, 3, 4}, dst.StateDict()["fc.weight"].AsFloat32())
	assert.Equal(t, []float32{5, 6}, dst.StateDict()["fc.bias"].AsFloat32())
}

func TestNetworkLoadStateDictShapeMismatch(t *testing.T) {
	backend := cpu.New()

	src := NewNetwork[*cpu.CPUBackend]()
	src.Add("fc", NewLinear(3, 2, backend))

	dst := NewNetwork[*cpu.CPUBackend]()
	dst.Add("fc", NewLinear(2, 2, backend))

	assert.Error(t, dst.LoadStateDict(src.StateDict()))
}
