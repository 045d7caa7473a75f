// Copyright 2025 GradViz Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/gradviz-ml/gradviz/internal/tensor"

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Implementations:
//   - backend/cpu: pure Go kernels
//   - backend/webgpu: cross-platform GPU compute via WebGPU
//
// Decorator backends for additional functionality:
//   - autodiff: gradient-tape recording (wraps any backend)
//
// Example:
//
//	import (
//	    "github.com/gradviz-ml/gradviz/tensor"
//	    "github.com/gradviz-ml/gradviz/backend/cpu"
//	)
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)  // Uses backend.Add under the hood
type Backend interface {
	// Element-wise binary operations (NumPy-style broadcasting).
	Add(a, b *RawTensor) *RawTensor // Element-wise addition.
	Sub(a, b *RawTensor) *RawTensor // Element-wise subtraction.
	Mul(a, b *RawTensor) *RawTensor // Element-wise multiplication.
	Div(a, b *RawTensor) *RawTensor // Element-wise division.

	// Matrix operations.
	MatMul(a, b *RawTensor) *RawTensor // Matrix multiplication.

	// Convolutional operations and their gradients.
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor                     // 2D convolution.
	Conv2DInputBackward(input, kernel, outputGrad *RawTensor, stride, padding int) *RawTensor  // Conv2D input gradient.
	Conv2DKernelBackward(input, kernel, outputGrad *RawTensor, stride, padding int) *RawTensor // Conv2D kernel gradient.
	MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor                       // 2D max pooling.
	MaxPool2DBackward(input, outputGrad *RawTensor, maxIndices []int) *RawTensor         // MaxPool2D gradient.

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor // Reshape tensor.
	Transpose(t *RawTensor, axes ...int) *RawTensor  // Transpose dimensions.

	// Scalar operations (element-wise with scalar).
	MulScalar(x *RawTensor, scalar float64) *RawTensor // Multiply by scalar.
	AddScalar(x *RawTensor, scalar float64) *RawTensor // Add scalar.

	// Activation functions.
	Softmax(x *RawTensor, dim int) *RawTensor // Softmax along dimension.

	// Reduction operations.
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // Sum along dimension.
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor // Mean along dimension.

	// Spatial resampling.
	Upsample2D(x *RawTensor, outH, outW int) *RawTensor // Bilinear upsampling of NCHW maps.

	// Metadata.
	Name() string   // Backend name (e.g., "CPU", "WebGPU").
	Device() Device // Device type.
}

// Compile-time check that internal Backend satisfies the public Backend.
var _ Backend = tensor.Backend(nil)
