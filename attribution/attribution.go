// Copyright 2025 GradViz Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package attribution provides gradient-based visual explanation
// techniques for convolutional image classifiers.
//
// Techniques:
//   - BackPropagation: vanilla input-gradient saliency
//   - Deconvnet: rectifier gradients keep only positive output gradients
//   - GuidedBackPropagation: combines both rectifier masks
//   - GradCAM: class activation maps from a convolutional target layer
//   - OcclusionSensitivity: perturbation-based score drop maps
//
// Every technique follows the same lifecycle: Forward a batch, Backward a
// target class per sample, Generate the attribution, and Cleanup when
// done. Forward invalidates gradients from earlier passes.
//
// Example:
//
//	bp := attribution.NewBackPropagation(net, backend)
//	defer bp.Cleanup()
//
//	ranking, err := bp.Forward(batch)
//	if err != nil { ... }
//	if err := bp.Backward([]int{ranking[0][0].ClassID}); err != nil { ... }
//	saliency, err := bp.Generate()
package attribution

import (
	"github.com/gradviz-ml/gradviz/internal/attribution"
	"github.com/gradviz-ml/gradviz/internal/nn"
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Backend is the backend capability required by attribution techniques:
// a compute backend with a gradient tape.
type Backend = attribution.Backend

// Sentinel errors returned by attribution operations. Use errors.Is to
// test for them.
var (
	ErrLayerNotFound  = attribution.ErrLayerNotFound
	ErrInvalidState   = attribution.ErrInvalidState
	ErrShapeMismatch  = attribution.ErrShapeMismatch
	ErrDeviceMismatch = attribution.ErrDeviceMismatch
)

// Prediction pairs a class index with its softmax probability.
type Prediction = attribution.Prediction

// Ranking holds per-sample predictions sorted by descending probability.
type Ranking = attribution.Ranking

// Record captures a hooked layer's activations and, after Backward, its
// gradient.
type Record = attribution.Record

// Registry tracks forward hooks and their captured records.
type Registry[B Backend] = attribution.Registry[B]

// NewRegistry creates a hook registry for the network.
func NewRegistry[B Backend](net *nn.Network[B]) *Registry[B] {
	return attribution.NewRegistry(net)
}

// Techniques

// BackPropagation computes vanilla input-gradient saliency.
type BackPropagation[B Backend] = attribution.BackPropagation[B]

// NewBackPropagation creates a vanilla backpropagation technique.
func NewBackPropagation[B Backend](net *nn.Network[B], backend B) *BackPropagation[B] {
	return attribution.NewBackPropagation(net, backend)
}

// Deconvnet computes saliency with deconvnet rectifier gradients.
type Deconvnet[B Backend] = attribution.Deconvnet[B]

// NewDeconvnet creates a deconvnet technique.
func NewDeconvnet[B Backend](net *nn.Network[B], backend B) *Deconvnet[B] {
	return attribution.NewDeconvnet(net, backend)
}

// GuidedBackPropagation computes saliency with guided rectifier gradients.
type GuidedBackPropagation[B Backend] = attribution.GuidedBackPropagation[B]

// NewGuidedBackPropagation creates a guided backpropagation technique.
func NewGuidedBackPropagation[B Backend](net *nn.Network[B], backend B) *GuidedBackPropagation[B] {
	return attribution.NewGuidedBackPropagation(net, backend)
}

// GradCAM computes class activation maps at a convolutional target layer.
type GradCAM[B Backend] = attribution.GradCAM[B]

// NewGradCAM creates a Grad-CAM technique targeting the named layer.
// Returns ErrLayerNotFound before any forward pass if the layer does not
// exist.
func NewGradCAM[B Backend](net *nn.Network[B], backend B, targetLayer string) (*GradCAM[B], error) {
	return attribution.NewGradCAM(net, backend, targetLayer)
}

// OcclusionSensitivity slides an occluding patch over a single image and
// measures the drop in the target class probability. Returns a 2D score
// map with one cell per patch position.
func OcclusionSensitivity[B Backend](
	net *nn.Network[B],
	backend B,
	image *tensor.Tensor[float32, B],
	classID, patchSize, stride int,
) (*tensor.RawTensor, error) {
	return attribution.OcclusionSensitivity(net, backend, image, classID, patchSize, stride)
}
