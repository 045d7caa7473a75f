package attribution

import (
	"github.com/gradviz-ml/gradviz/internal/autodiff/ops"
	"github.com/gradviz-ml/gradviz/internal/nn"
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// BackPropagation computes vanilla saliency: the gradient of the selected
// class score with respect to the input, through the unmodified network.
type BackPropagation[B Backend] struct {
	method[B]
}

// NewBackPropagation creates a vanilla backpropagation method over the
// given network.
func NewBackPropagation[B Backend](net *nn.Network[B], backend B) *BackPropagation[B] {
	return &BackPropagation[B]{method: newMethod(net, backend)}
}

// Generate returns the raw input gradient from the last backward pass,
// one map per sample with channels preserved.
func (b *BackPropagation[B]) Generate() (*tensor.RawTensor, error) {
	grad, err := b.inputGradient()
	if err != nil {
		return nil, err
	}
	return grad.DeepClone(), nil
}

// Deconvnet computes saliency with the Deconvnet rectifier rule: at every
// rectification unit the backward pass keeps max(gradient, 0), discarding
// negative gradient values regardless of the forward activation's sign.
type Deconvnet[B Backend] struct {
	method[B]
}

// NewDeconvnet creates a Deconvnet method over the given network.
func NewDeconvnet[B Backend](net *nn.Network[B], backend B) *Deconvnet[B] {
	d := &Deconvnet[B]{method: newMethod(net, backend)}
	d.rectifierRewrite = func(_, outputGrad *tensor.RawTensor, _ tensor.Backend) *tensor.RawTensor {
		return ops.PassPositiveGrad(outputGrad)
	}
	return d
}

// Generate returns the rewritten input gradient from the last backward pass.
func (d *Deconvnet[B]) Generate() (*tensor.RawTensor, error) {
	grad, err := d.inputGradient()
	if err != nil {
		return nil, err
	}
	return grad.DeepClone(), nil
}

// GuidedBackPropagation combines the standard and Deconvnet rectifier
// rules: gradient passes through a rectification unit only where both the
// forward input and the incoming gradient are strictly positive.
type GuidedBackPropagation[B Backend] struct {
	method[B]
}

// NewGuidedBackPropagation creates a guided backpropagation method over the
// given network.
func NewGuidedBackPropagation[B Backend](net *nn.Network[B], backend B) *GuidedBackPropagation[B] {
	g := &GuidedBackPropagation[B]{method: newMethod(net, backend)}
	g.rectifierRewrite = func(forwardInput, outputGrad *tensor.RawTensor, _ tensor.Backend) *tensor.RawTensor {
		return ops.PassPositiveBoth(forwardInput, outputGrad)
	}
	return g
}

// Generate returns the guided input gradient from the last backward pass.
func (g *GuidedBackPropagation[B]) Generate() (*tensor.RawTensor, error) {
	grad, err := g.inputGradient()
	if err != nil {
		return nil, err
	}
	return grad.DeepClone(), nil
}
