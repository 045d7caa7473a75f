package cpu

import (
	"testing"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

func newTestBackend() *CPUBackend {
	return New()
}

func rawWith(t *testing.T, shape tensor.Shape, values []float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw(%v): %v", shape, err)
	}
	copy(raw.AsFloat32(), values)
	return raw
}

func float32SliceEqual(a, b []float32) bool {
	const epsilon = 1e-6
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > epsilon {
			return false
		}
	}
	return true
}

func TestCPUBackend_New(t *testing.T) {
	backend := New()
	if backend == nil {
		t.Fatal("New() returned nil")
	}
	if backend.Name() != "CPU" {
		t.Errorf("Expected name 'CPU', got '%s'", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Expected device CPU, got %v", backend.Device())
	}
}

func TestCPUBackend_Add(t *testing.T) {
	backend := newTestBackend()

	t.Run("SameShape", func(t *testing.T) {
		a := rawWith(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		b := rawWith(t, tensor.Shape{2, 3}, []float32{10, 11, 12, 13, 14, 15})

		result := backend.Add(a, b)
		expected := []float32{11, 13, 15, 17, 19, 21}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Add: got %v, want %v", result.AsFloat32(), expected)
		}
	})

	t.Run("BroadcastRow", func(t *testing.T) {
		a := rawWith(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		bias := rawWith(t, tensor.Shape{1, 3}, []float32{10, 20, 30})

		result := backend.Add(a, bias)
		expected := []float32{11, 22, 33, 14, 25, 36}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Add broadcast: got %v, want %v", result.AsFloat32(), expected)
		}
	})

	t.Run("BroadcastChannel", func(t *testing.T) {
		// Conv bias pattern: [1, 2, 1, 1] over [1, 2, 2, 2].
		x := rawWith(t, tensor.Shape{1, 2, 2, 2}, []float32{1, 1, 1, 1, 2, 2, 2, 2})
		bias := rawWith(t, tensor.Shape{1, 2, 1, 1}, []float32{10, 20})

		result := backend.Add(x, bias)
		expected := []float32{11, 11, 11, 11, 22, 22, 22, 22}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Add channel broadcast: got %v, want %v", result.AsFloat32(), expected)
		}
	})
}

func TestCPUBackend_SubMulDiv(t *testing.T) {
	backend := newTestBackend()
	a := rawWith(t, tensor.Shape{4}, []float32{10, 20, 30, 40})
	b := rawWith(t, tensor.Shape{4}, []float32{1, 2, 3, 4})

	if got := backend.Sub(a, b).AsFloat32(); !float32SliceEqual(got, []float32{9, 18, 27, 36}) {
		t.Errorf("Sub: got %v", got)
	}
	if got := backend.Mul(a, b).AsFloat32(); !float32SliceEqual(got, []float32{10, 40, 90, 160}) {
		t.Errorf("Mul: got %v", got)
	}
	if got := backend.Div(a, b).AsFloat32(); !float32SliceEqual(got, []float32{10, 10, 10, 10}) {
		t.Errorf("Div: got %v", got)
	}
}

func TestCPUBackend_Scalars(t *testing.T) {
	backend := newTestBackend()
	x := rawWith(t, tensor.Shape{3}, []float32{1, 2, 3})

	if got := backend.MulScalar(x, 2.5).AsFloat32(); !float32SliceEqual(got, []float32{2.5, 5, 7.5}) {
		t.Errorf("MulScalar: got %v", got)
	}
	if got := backend.AddScalar(x, -1).AsFloat32(); !float32SliceEqual(got, []float32{0, 1, 2}) {
		t.Errorf("AddScalar: got %v", got)
	}
}

func TestCPUBackend_MatMul(t *testing.T) {
	backend := newTestBackend()

	// [2,3] @ [3,2]
	a := rawWith(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	b := rawWith(t, tensor.Shape{3, 2}, []float32{7, 8, 9, 10, 11, 12})

	result := backend.MatMul(a, b)
	if !result.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("MatMul shape: got %v", result.Shape())
	}
	expected := []float32{58, 64, 139, 154}
	if !float32SliceEqual(result.AsFloat32(), expected) {
		t.Errorf("MatMul: got %v, want %v", result.AsFloat32(), expected)
	}
}

func TestCPUBackend_ReshapeTranspose(t *testing.T) {
	backend := newTestBackend()
	x := rawWith(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	r := backend.Reshape(x, tensor.Shape{3, 2})
	if !r.Shape().Equal(tensor.Shape{3, 2}) {
		t.Errorf("Reshape shape: got %v", r.Shape())
	}
	if !float32SliceEqual(r.AsFloat32(), x.AsFloat32()) {
		t.Errorf("Reshape must preserve element order")
	}

	tr := backend.Transpose(x)
	if !tr.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("Transpose shape: got %v", tr.Shape())
	}
	expected := []float32{1, 4, 2, 5, 3, 6}
	if !float32SliceEqual(tr.AsFloat32(), expected) {
		t.Errorf("Transpose: got %v, want %v", tr.AsFloat32(), expected)
	}
}

func TestCPUBackend_Conv2D(t *testing.T) {
	backend := newTestBackend()

	// 3x3 input, 2x2 kernel of ones, stride 1, no padding: each output is
	// the sum of its 2x2 window.
	input := rawWith(t, tensor.Shape{1, 1, 3, 3}, []float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	kernel := rawWith(t, tensor.Shape{1, 1, 2, 2}, []float32{1, 1, 1, 1})

	result := backend.Conv2D(input, kernel, 1, 0)
	if !result.Shape().Equal(tensor.Shape{1, 1, 2, 2}) {
		t.Fatalf("Conv2D shape: got %v", result.Shape())
	}
	expected := []float32{12, 16, 24, 28}
	if !float32SliceEqual(result.AsFloat32(), expected) {
		t.Errorf("Conv2D: got %v, want %v", result.AsFloat32(), expected)
	}
}

func TestCPUBackend_Conv2DBackward(t *testing.T) {
	backend := newTestBackend()

	// 1x1 kernel with weight 2: y = 2x, so dL/dx = 2*grad and
	// dL/dw = sum(x*grad).
	input := rawWith(t, tensor.Shape{1, 1, 2, 2}, []float32{1, 2, 3, 4})
	kernel := rawWith(t, tensor.Shape{1, 1, 1, 1}, []float32{2})
	outputGrad := rawWith(t, tensor.Shape{1, 1, 2, 2}, []float32{1, 1, 1, 1})

	inputGrad := backend.Conv2DInputBackward(input, kernel, outputGrad, 1, 0)
	if !float32SliceEqual(inputGrad.AsFloat32(), []float32{2, 2, 2, 2}) {
		t.Errorf("Conv2DInputBackward: got %v", inputGrad.AsFloat32())
	}

	kernelGrad := backend.Conv2DKernelBackward(input, kernel, outputGrad, 1, 0)
	if !float32SliceEqual(kernelGrad.AsFloat32(), []float32{10}) {
		t.Errorf("Conv2DKernelBackward: got %v", kernelGrad.AsFloat32())
	}
}

func TestCPUBackend_MaxPool2D(t *testing.T) {
	backend := newTestBackend()

	input := rawWith(t, tensor.Shape{1, 1, 4, 4}, []float32{
		1, 2, 5, 6,
		3, 4, 7, 8,
		9, 10, 13, 14,
		11, 12, 15, 16,
	})

	result := backend.MaxPool2D(input, 2, 2)
	if !result.Shape().Equal(tensor.Shape{1, 1, 2, 2}) {
		t.Fatalf("MaxPool2D shape: got %v", result.Shape())
	}
	expected := []float32{4, 8, 12, 16}
	if !float32SliceEqual(result.AsFloat32(), expected) {
		t.Errorf("MaxPool2D: got %v, want %v", result.AsFloat32(), expected)
	}
}

func TestCPUBackend_MaxPool2DBackward(t *testing.T) {
	backend := newTestBackend()

	// 2x2 input [1, 3, 2, 0]: the single 2x2 window's max sits at flat
	// index 1.
	input := rawWith(t, tensor.Shape{1, 1, 2, 2}, []float32{1, 3, 2, 0})
	outputGrad := rawWith(t, tensor.Shape{1, 1, 1, 1}, []float32{5})

	grad := backend.MaxPool2DBackward(input, outputGrad, []int{1})
	expected := []float32{0, 5, 0, 0}
	if !float32SliceEqual(grad.AsFloat32(), expected) {
		t.Errorf("MaxPool2DBackward: got %v, want %v", grad.AsFloat32(), expected)
	}
}

func TestCPUBackend_Softmax(t *testing.T) {
	backend := newTestBackend()

	x := rawWith(t, tensor.Shape{2, 2}, []float32{0, 0, 100, 100})
	result := backend.Softmax(x, 1)
	expected := []float32{0.5, 0.5, 0.5, 0.5}
	if !float32SliceEqual(result.AsFloat32(), expected) {
		t.Errorf("Softmax: got %v, want %v", result.AsFloat32(), expected)
	}

	// Rows must sum to one even with large spread (max-shift stability).
	x2 := rawWith(t, tensor.Shape{1, 3}, []float32{1000, 999, 998})
	probs := backend.Softmax(x2, 1).AsFloat32()
	var sum float32
	for _, p := range probs {
		sum += p
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("Softmax row sum: got %v", sum)
	}
	if !(probs[0] > probs[1] && probs[1] > probs[2]) {
		t.Errorf("Softmax ordering: got %v", probs)
	}
}

func TestCPUBackend_Reductions(t *testing.T) {
	backend := newTestBackend()
	x := rawWith(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	t.Run("SumDim0", func(t *testing.T) {
		result := backend.SumDim(x, 0, false)
		if !result.Shape().Equal(tensor.Shape{3}) {
			t.Fatalf("shape: got %v", result.Shape())
		}
		if !float32SliceEqual(result.AsFloat32(), []float32{5, 7, 9}) {
			t.Errorf("SumDim(0): got %v", result.AsFloat32())
		}
	})

	t.Run("MeanDim1KeepDim", func(t *testing.T) {
		result := backend.MeanDim(x, 1, true)
		if !result.Shape().Equal(tensor.Shape{2, 1}) {
			t.Fatalf("shape: got %v", result.Shape())
		}
		if !float32SliceEqual(result.AsFloat32(), []float32{2, 5}) {
			t.Errorf("MeanDim(1): got %v", result.AsFloat32())
		}
	})

	t.Run("NegativeDim", func(t *testing.T) {
		result := backend.SumDim(x, -1, false)
		if !float32SliceEqual(result.AsFloat32(), []float32{6, 15}) {
			t.Errorf("SumDim(-1): got %v", result.AsFloat32())
		}
	})
}

func TestCPUBackend_Upsample2D(t *testing.T) {
	backend := newTestBackend()

	t.Run("Identity", func(t *testing.T) {
		x := rawWith(t, tensor.Shape{1, 1, 2, 2}, []float32{1, 2, 3, 4})
		result := backend.Upsample2D(x, 2, 2)
		if !float32SliceEqual(result.AsFloat32(), x.AsFloat32()) {
			t.Errorf("same-size upsample must be identity: got %v", result.AsFloat32())
		}
	})

	t.Run("ConstantPlane", func(t *testing.T) {
		x := rawWith(t, tensor.Shape{1, 1, 1, 1}, []float32{7})
		result := backend.Upsample2D(x, 4, 4)
		if !result.Shape().Equal(tensor.Shape{1, 1, 4, 4}) {
			t.Fatalf("shape: got %v", result.Shape())
		}
		for i, v := range result.AsFloat32() {
			if v != 7 {
				t.Fatalf("constant upsample: index %d got %v", i, v)
			}
		}
	})

	t.Run("PreservesRange", func(t *testing.T) {
		// Bilinear interpolation never exceeds the source extrema.
		x := rawWith(t, tensor.Shape{1, 1, 2, 2}, []float32{0, 1, 2, 3})
		result := backend.Upsample2D(x, 8, 8)
		for i, v := range result.AsFloat32() {
			if v < 0 || v > 3 {
				t.Fatalf("interpolated value out of range at %d: %v", i, v)
			}
		}
	})
}
