package attribution

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/gradviz-ml/gradviz/internal/nn"
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// normEpsilon guards min-max normalization against a degenerate value
// range (all-equal maps), keeping rendering well-defined.
const normEpsilon = 1e-6

// GradCAM localizes class evidence in a chosen convolutional layer:
// gradients flowing into the target layer are global-average-pooled into
// per-channel weights, the weighted activation sum is rectified and
// upsampled to input resolution.
type GradCAM[B Backend] struct {
	method[B]
	targetLayer string
	record      *Record
}

// NewGradCAM creates a Grad-CAM method targeting the named layer. Fails
// with ErrLayerNotFound before any forward pass if the layer is absent.
func NewGradCAM[B Backend](net *nn.Network[B], backend B, targetLayer string) (*GradCAM[B], error) {
	g := &GradCAM[B]{
		method:      newMethod(net, backend),
		targetLayer: targetLayer,
	}
	_, rec, err := g.registry.Attach(targetLayer)
	if err != nil {
		return nil, err
	}
	g.record = rec
	return g, nil
}

// TargetLayer returns the hooked layer's name.
func (g *GradCAM[B]) TargetLayer() string {
	return g.targetLayer
}

// Generate computes the class activation map: per-channel weights from
// globally averaged gradients, a rectified weighted activation sum,
// bilinear upsampling to the input resolution, and a per-sample min-max
// normalization. Returns shape [N, 1, H, W] with values in [0, 1].
func (g *GradCAM[B]) Generate() (*tensor.RawTensor, error) {
	if g.state != stateBackwarded {
		return nil, fmt.Errorf("%w: generate in state %s", ErrInvalidState, g.state)
	}
	if g.record.Output == nil || g.record.Gradient == nil {
		return nil, fmt.Errorf("%w: no gradient captured for layer %q", ErrLayerNotFound, g.targetLayer)
	}

	cam := weightedActivationMap(g.record.Output, g.record.Gradient, g.backend)

	// Upsample to the input's spatial resolution.
	inputShape := g.input.Shape()
	if len(inputShape) != 4 {
		return nil, fmt.Errorf("%w: grad-cam needs 4D input [N,C,H,W], got %v", ErrShapeMismatch, inputShape)
	}
	up := g.backend.Upsample2D(cam, inputShape[2], inputShape[3])

	normalizePerSample(up)
	return up, nil
}

// ChannelVisualization returns the target layer's raw activations from the
// last forward pass. This is a diagnostic for inspecting feature maps, not
// an attribution: no gradient weighting is applied.
func (g *GradCAM[B]) ChannelVisualization() (*tensor.RawTensor, error) {
	if g.state != stateForwarded && g.state != stateBackwarded {
		return nil, fmt.Errorf("%w: channel visualization in state %s", ErrInvalidState, g.state)
	}
	if g.record.Output == nil {
		return nil, fmt.Errorf("%w: no activation captured for layer %q", ErrLayerNotFound, g.targetLayer)
	}
	return g.record.Output.DeepClone(), nil
}

// weightedActivationMap forms ReLU(sum_k GAP(dY/dA_k) * A_k) at the target
// layer's native resolution: [N, K, h, w] -> [N, 1, h, w]. Negative
// contributions are clipped: only features that push the class score up
// are visualized.
func weightedActivationMap(activation, gradient *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	// GAP over spatial dims: [N, K, h, w] -> [N, K, 1, 1]
	weights := backend.MeanDim(backend.MeanDim(gradient, 3, true), 2, true)

	// Weighted channel sum: [N, K, h, w] * [N, K, 1, 1] -> [N, 1, h, w]
	weighted := backend.Mul(activation, weights)
	cam := backend.SumDim(weighted, 1, true)

	data := cam.AsFloat32()
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
	return cam
}

// normalizePerSample rescales each sample's map to [0, 1] in place, with an
// epsilon denominator for degenerate ranges.
func normalizePerSample(t *tensor.RawTensor) {
	shape := t.Shape()
	batchSize := shape[0]
	sampleSize := t.NumElements() / batchSize
	data := t.AsFloat32()

	sample := make([]float64, sampleSize)
	for i := 0; i < batchSize; i++ {
		chunk := data[i*sampleSize : (i+1)*sampleSize]
		for j, v := range chunk {
			sample[j] = float64(v)
		}
		lo, hi := floats.Min(sample), floats.Max(sample)
		scale := float32(1.0 / (hi - lo + normEpsilon))
		for j := range chunk {
			chunk[j] = (chunk[j] - float32(lo)) * scale
		}
	}
}
