// Copyright 2025 GradViz Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network layers and building blocks.
//
// The package contains the layers needed to express small image
// classifiers (Linear, Conv2D, MaxPool2D, ReLU, Flatten), the Network
// container with named layers and forward hooks, and the Module and
// Parameter primitives they build on.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//
//	net := nn.NewNetwork[*autodiff.Backend[*cpu.Backend]]()
//	net.Add("conv1", nn.NewConv2D(3, 8, 3, 3, 1, 1, true, backend))
//	net.Add("relu1", nn.NewReLU[*autodiff.Backend[*cpu.Backend]]())
//	net.Add("flatten", nn.NewFlatten[*autodiff.Backend[*cpu.Backend]]())
//	net.Add("fc", nn.NewLinear(8*h*w, 10, backend))
//
//	logits := net.Forward(input)
package nn

import (
	"github.com/gradviz-ml/gradviz/internal/nn"
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Module defines the common interface for all neural network modules.
type Module[B tensor.Backend] = nn.Module[B]

// StatefulModule is a module whose parameters can be exported to and
// loaded from a state dictionary.
type StatefulModule[B tensor.Backend] = nn.StatefulModule[B]

// Parameter represents a named parameter in a neural network.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Layers

// Linear is a fully connected layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a linear layer with Xavier initialization.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// Conv2D is a 2D convolutional layer over NCHW tensors.
type Conv2D[B tensor.Backend] = nn.Conv2D[B]

// NewConv2D creates a 2D convolutional layer.
//
// Example:
//
//	conv := nn.NewConv2D(3, 8, 3, 3, 1, 1, true, backend)
func NewConv2D[B tensor.Backend](
	inChannels, outChannels int,
	kernelH, kernelW int,
	stride, padding int,
	useBias bool,
	backend B,
) *Conv2D[B] {
	return nn.NewConv2D(inChannels, outChannels, kernelH, kernelW, stride, padding, useBias, backend)
}

// MaxPool2D is a 2D max pooling layer.
type MaxPool2D[B tensor.Backend] = nn.MaxPool2D[B]

// NewMaxPool2D creates a 2D max pooling layer. A stride of 0 defaults to
// the kernel size.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int, backend B) *MaxPool2D[B] {
	return nn.NewMaxPool2D(kernelSize, stride, backend)
}

// ReLU is the rectified linear activation.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// Flatten collapses all dimensions after the batch dimension.
type Flatten[B tensor.Backend] = nn.Flatten[B]

// NewFlatten creates a flatten module.
func NewFlatten[B tensor.Backend]() *Flatten[B] {
	return nn.NewFlatten[B]()
}

// Network

// Network is an ordered container of named layers with forward hooks.
type Network[B tensor.Backend] = nn.Network[B]

// ForwardHook observes a layer's input and output during Forward.
type ForwardHook[B tensor.Backend] = nn.ForwardHook[B]

// NewNetwork creates an empty network.
func NewNetwork[B tensor.Backend]() *Network[B] {
	return nn.NewNetwork[B]()
}

// Initialization

// Xavier returns a tensor initialized with Glorot uniform values.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Xavier(fanIn, fanOut, shape, backend)
}

// Zeros returns a zero-initialized tensor.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Zeros(shape, backend)
}

// Ones returns a ones-initialized tensor.
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Ones(shape, backend)
}
