// Copyright 2025 GradViz Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides a cross-platform GPU backend via WebGPU.
//
// Element-wise operations run as compute shaders; the remaining kernels
// delegate to the CPU backend. Construction fails gracefully when no GPU
// or native WebGPU library is available, so callers can fall back to the
// CPU backend.
package webgpu

import (
	internalwebgpu "github.com/gradviz-ml/gradviz/internal/backend/webgpu"
	"github.com/gradviz-ml/gradviz/tensor"
)

// Backend represents the WebGPU backend implementation.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new WebGPU backend.
//
// Returns an error if WebGPU is not available or initialization fails.
//
// Example:
//
//	backend, err := webgpu.New()
//	if err != nil {
//	    // fall back to cpu.New()
//	}
//	defer backend.Release()
func New() (*Backend, error) {
	return internalwebgpu.New()
}
