// Package attribution implements gradient-based visual explanations for
// image classifiers: vanilla backpropagation saliency, Deconvnet, Guided
// Backpropagation and Grad-CAM, plus an occlusion-sensitivity collaborator.
//
// All techniques share one lifecycle: Forward runs the network and ranks
// predictions, Backward seeds a one-hot class gradient and backpropagates
// it, Generate extracts the technique's attribution map, and Cleanup
// detaches hooks so the network can be reused.
package attribution

import (
	"fmt"
	"sort"

	"github.com/gradviz-ml/gradviz/internal/autodiff"
	"github.com/gradviz-ml/gradviz/internal/nn"
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

type state int

const (
	stateUninitialized state = iota
	stateForwarded
	stateBackwarded
	stateDiscarded
)

func (s state) String() string {
	switch s {
	case stateUninitialized:
		return "Uninitialized"
	case stateForwarded:
		return "Forwarded"
	case stateBackwarded:
		return "Backwarded"
	case stateDiscarded:
		return "Discarded"
	default:
		return "unknown"
	}
}

// Prediction pairs a class id with its softmax probability.
type Prediction struct {
	ClassID     int
	Probability float32
}

// Ranking holds, per sample, the class predictions sorted descending by
// probability.
type Ranking [][]Prediction

// method is the lifecycle shared by all attribution techniques.
//
// The network is borrowed, never owned: weights stay read-only throughout;
// only activations and gradients are observed through hooks.
type method[B Backend] struct {
	net      *nn.Network[B]
	backend  B
	registry *Registry[B]

	// rectifierRewrite, when set, replaces the backward rule of every
	// rectification unit recorded during the forward pass.
	rectifierRewrite autodiff.GradientRewrite

	state      state
	input      *tensor.RawTensor
	logits     *tensor.RawTensor
	numClasses int
	grads      map[*tensor.RawTensor]*tensor.RawTensor
}

func newMethod[B Backend](net *nn.Network[B], backend B) method[B] {
	return method[B]{
		net:      net,
		backend:  backend,
		registry: NewRegistry(net),
	}
}

// Forward runs the network on the batch, records the logits and returns
// per-sample class rankings. Supersedes any previous forward or backward
// state: earlier captured gradients are invalidated.
func (m *method[B]) Forward(batch *tensor.Tensor[float32, B]) (Ranking, error) {
	if m.state == stateDiscarded {
		return nil, fmt.Errorf("%w: forward after cleanup", ErrInvalidState)
	}
	if batch.Device() != m.backend.Device() {
		return nil, fmt.Errorf("%w: batch on %s, backend on %s",
			ErrDeviceMismatch, batch.Device(), m.backend.Device())
	}
	if len(batch.Shape()) < 2 {
		return nil, fmt.Errorf("%w: batch must have a leading sample dimension, got shape %v",
			ErrShapeMismatch, batch.Shape())
	}

	tape := m.backend.GetTape()
	tape.RemoveInterceptors()
	tape.Clear()

	tape.StartRecording()
	output := m.net.Forward(batch)
	tape.StopRecording()

	if len(output.Shape()) != 2 {
		return nil, fmt.Errorf("%w: expected 2D logits [batch, classes], got shape %v",
			ErrShapeMismatch, output.Shape())
	}

	m.input = batch.Raw()
	m.logits = output.Raw()
	m.numClasses = output.Shape()[1]
	m.grads = nil
	m.state = stateForwarded

	// Rectifier rules are installed per pass: the tape's rectifier outputs
	// only exist after the forward run.
	if m.rectifierRewrite != nil {
		for _, out := range tape.RectifierOutputs() {
			tape.Intercept(out, m.rectifierRewrite)
		}
	}

	// Probabilities live outside the tape: the backward seed targets the
	// raw class scores, not the softmax output.
	probs := m.backend.Softmax(m.logits, 1)
	return rankPredictions(probs), nil
}

// Backward seeds a one-hot gradient at each sample's selected class and
// backpropagates it through the recorded graph. Requires a prior Forward.
func (m *method[B]) Backward(targets []int) error {
	if m.state != stateForwarded && m.state != stateBackwarded {
		return fmt.Errorf("%w: backward in state %s", ErrInvalidState, m.state)
	}

	batchSize := m.logits.Shape()[0]
	if len(targets) != batchSize {
		return fmt.Errorf("%w: %d targets for batch of %d", ErrShapeMismatch, len(targets), batchSize)
	}

	seed, err := tensor.NewRaw(tensor.Shape{batchSize, m.numClasses}, tensor.Float32, m.backend.Device())
	if err != nil {
		return err
	}
	data := seed.AsFloat32()
	for i, classID := range targets {
		if classID < 0 || classID >= m.numClasses {
			return fmt.Errorf("%w: class id %d outside [0, %d)", ErrShapeMismatch, classID, m.numClasses)
		}
		data[i*m.numClasses+classID] = 1
	}

	m.grads = m.backend.GetTape().Backward(seed, m.backend)
	m.registry.ResolveGradients(m.grads)
	m.state = stateBackwarded
	return nil
}

// Cleanup detaches all hooks and interceptors and discards the method.
// Mandatory before reusing the network with another method.
func (m *method[B]) Cleanup() {
	m.registry.DetachAll()
	tape := m.backend.GetTape()
	tape.RemoveInterceptors()
	tape.Clear()
	m.input = nil
	m.logits = nil
	m.grads = nil
	m.state = stateDiscarded
}

// inputGradient returns the gradient w.r.t. the input batch captured by the
// last backward pass.
func (m *method[B]) inputGradient() (*tensor.RawTensor, error) {
	if m.state != stateBackwarded {
		return nil, fmt.Errorf("%w: generate in state %s", ErrInvalidState, m.state)
	}
	grad, ok := m.grads[m.input]
	if !ok {
		return nil, fmt.Errorf("%w: no gradient reached the input", ErrShapeMismatch)
	}
	return grad, nil
}

// rankPredictions sorts each sample's classes descending by probability.
func rankPredictions(probs *tensor.RawTensor) Ranking {
	shape := probs.Shape()
	batchSize, numClasses := shape[0], shape[1]
	data := probs.AsFloat32()

	ranking := make(Ranking, batchSize)
	for i := 0; i < batchSize; i++ {
		row := make([]Prediction, numClasses)
		for c := 0; c < numClasses; c++ {
			row[c] = Prediction{ClassID: c, Probability: data[i*numClasses+c]}
		}
		sort.SliceStable(row, func(a, b int) bool {
			return row[a].Probability > row[b].Probability
		})
		ranking[i] = row
	}
	return ranking
}
