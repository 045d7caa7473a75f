package autodiff

import (
	"github.com/gradviz-ml/gradviz/internal/autodiff/ops"
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// GradientRewrite replaces an operation's backward rule. It receives the
// operation's forward input and the incoming (output) gradient and returns
// the outgoing (input) gradient.
//
// This is the interception point the attribution methods use to rewrite
// rectifier gradients (Deconvnet, Guided Backpropagation) without touching
// the recorded operations themselves.
type GradientRewrite func(forwardInput, outputGrad *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor

// GradientTape records operations during the forward pass and computes
// gradients during the backward pass using reverse-mode automatic
// differentiation.
//
// Usage:
//
//	tape := NewGradientTape()
//	tape.StartRecording()
//	// ... perform operations ...
//	gradients := tape.Backward(outputGrad, backend)
type GradientTape struct {
	operations   []ops.Operation // Recorded operations (in execution order)
	pins         []func()        // Refcount releases for pinned tensors
	recording    bool            // Whether tape is currently recording
	interceptors map[*tensor.RawTensor]GradientRewrite
}

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		operations: make([]ops.Operation, 0, 64),
	}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() {
	t.recording = false
}

// IsRecording returns true if the tape is currently recording operations.
func (t *GradientTape) IsRecording() bool {
	return t.recording
}

// Record adds an operation to the tape.
// Only records if the tape is currently recording.
//
// The operation's tensors are pinned against inplace reuse until Clear:
// the backward pass needs the forward values intact.
func (t *GradientTape) Record(op ops.Operation) {
	if !t.recording {
		return
	}
	for _, in := range op.Inputs() {
		t.pins = append(t.pins, in.ForceNonUnique())
	}
	t.pins = append(t.pins, op.Output().ForceNonUnique())
	t.operations = append(t.operations, op)
}

// Clear resets the tape, removing all recorded operations and releasing
// pinned tensors. Recording state and interceptors are preserved.
func (t *GradientTape) Clear() {
	t.operations = t.operations[:0]
	for _, release := range t.pins {
		release()
	}
	t.pins = t.pins[:0]
}

// Intercept installs a gradient rewrite for the operation whose output is
// the given tensor. During Backward, the rewrite replaces that operation's
// backward rule. Only single-input operations can be intercepted.
func (t *GradientTape) Intercept(output *tensor.RawTensor, fn GradientRewrite) {
	if t.interceptors == nil {
		t.interceptors = make(map[*tensor.RawTensor]GradientRewrite)
	}
	t.interceptors[output] = fn
}

// RemoveInterceptors drops all installed gradient rewrites.
func (t *GradientTape) RemoveInterceptors() {
	t.interceptors = nil
}

// RectifierOutputs returns the output tensors of every recorded rectifier
// operation, in execution order. Gradient rewrites that must cover all
// rectification units (Deconvnet, Guided Backpropagation) intercept each of
// these.
func (t *GradientTape) RectifierOutputs() []*tensor.RawTensor {
	var outs []*tensor.RawTensor
	for _, op := range t.operations {
		if _, ok := op.(*ops.ReLUOp); ok {
			outs = append(outs, op.Output())
		}
	}
	return outs
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int {
	return len(t.operations)
}

// LastOutput returns the output tensor of the most recently recorded
// operation, or nil for an empty tape. Backward seeds start there.
func (t *GradientTape) LastOutput() *tensor.RawTensor {
	if len(t.operations) == 0 {
		return nil
	}
	return t.operations[len(t.operations)-1].Output()
}

// Backward computes gradients for all inputs by walking the tape in reverse.
//
// Algorithm:
//  1. Seed the final operation's output with outputGrad
//  2. Walk operations in reverse order
//  3. For each operation, compute input gradients via the chain rule,
//     honoring any installed interceptor
//  4. Accumulate gradients when the same tensor is used multiple times
//
// Returns a map from RawTensor to its accumulated gradient.
func (t *GradientTape) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	if len(t.operations) == 0 {
		return grads
	}

	// Stop recording during backward to keep gradient math off the tape.
	wasRecording := t.recording
	t.recording = false
	defer func() { t.recording = wasRecording }()

	grads[t.LastOutput()] = outputGrad

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		opGrad, ok := grads[op.Output()]
		if !ok {
			continue
		}

		var inputGrads []*tensor.RawTensor
		if fn, intercepted := t.interceptors[op.Output()]; intercepted {
			inputGrads = []*tensor.RawTensor{fn(op.Inputs()[0], opGrad, backend)}
		} else {
			inputGrads = op.Backward(opGrad, backend)
		}

		t.accumulateGrads(op, inputGrads, grads, backend)
	}

	return grads
}

// accumulateGrads adds each input gradient into the running map.
func (t *GradientTape) accumulateGrads(
	op ops.Operation,
	inputGrads []*tensor.RawTensor,
	grads map[*tensor.RawTensor]*tensor.RawTensor,
	backend tensor.Backend,
) {
	inputs := op.Inputs()
	for j, input := range inputs {
		if j >= len(inputGrads) || inputGrads[j] == nil {
			continue
		}
		if existing, ok := grads[input]; ok {
			grads[input] = backend.Add(existing, inputGrads[j])
		} else {
			grads[input] = inputGrads[j]
		}
	}
}
