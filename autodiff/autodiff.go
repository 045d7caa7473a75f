// Copyright 2025 GradViz Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// The package implements backpropagation using a gradient tape. It wraps
// any backend to add gradient recording, which the attribution package
// relies on to obtain input and activation gradients.
//
// Example:
//
//	import (
//	    "github.com/gradviz-ml/gradviz/autodiff"
//	    "github.com/gradviz-ml/gradviz/backend/cpu"
//	    "github.com/gradviz-ml/gradviz/tensor"
//	)
//
//	base := cpu.New()
//	backend := autodiff.New(base)
//
//	x := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	y := x.Add(x) // Recorded on the tape
//
//	grads := autodiff.Backward(backend)
//	_ = grads[x.Raw()] // dY/dX
package autodiff

import (
	"github.com/gradviz-ml/gradviz/internal/autodiff"
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Backend is the autodiff-enabled backend decorator.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates a new autodiff backend wrapping the given backend.
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// GradientRewrite replaces the recorded backward rule of an operation.
// Attribution techniques use rewrites to alter how gradients flow through
// rectification units.
type GradientRewrite = autodiff.GradientRewrite

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable is the interface for backends that support
// backpropagation.
type BackwardCapable = autodiff.BackwardCapable

// Backward computes gradients for every recorded tensor, seeding the last
// output with ones.
func Backward(backend BackwardCapable) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(backend)
}

// BackwardFrom computes gradients with an explicit seed gradient, such as
// a one-hot class selection over logits.
func BackwardFrom(backend BackwardCapable, seed *tensor.RawTensor) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.BackwardFrom(backend, seed)
}
