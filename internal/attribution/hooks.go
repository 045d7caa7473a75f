package attribution

import (
	"fmt"

	"github.com/gradviz-ml/gradviz/internal/autodiff"
	"github.com/gradviz-ml/gradviz/internal/nn"
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Backend is the capability an attribution session needs from its compute
// backend: the full tensor operation set plus a gradient tape.
type Backend interface {
	tensor.Backend
	GetTape() *autodiff.GradientTape
}

// Record holds the tensors most recently captured for one hooked layer.
// Forward fields are overwritten on each forward pass; Gradient is resolved
// after each backward pass and nil until then.
type Record struct {
	Layer    string
	Input    *tensor.RawTensor // layer input from the last forward pass
	Output   *tensor.RawTensor // layer output from the last forward pass
	Gradient *tensor.RawTensor // gradient w.r.t. Output from the last backward pass
}

// Registry manages hook registrations on a network for one attribution
// session. It captures layer tensors during forward passes and resolves
// their gradients after backward passes.
//
// A registry must be detached (DetachAll) before its network is reused
// with another method; a leaked registration keeps firing on unrelated
// future passes.
type Registry[B Backend] struct {
	net     *nn.Network[B]
	records map[int]*Record
}

// NewRegistry creates a registry bound to the given network.
func NewRegistry[B Backend](net *nn.Network[B]) *Registry[B] {
	return &Registry[B]{
		net:     net,
		records: make(map[int]*Record),
	}
}

// Attach hooks the named layer and returns a detach handle plus the record
// that future passes will fill in. Fails with ErrLayerNotFound before any
// pass runs if the layer does not exist.
func (r *Registry[B]) Attach(layer string) (int, *Record, error) {
	if _, ok := r.net.Layer(layer); !ok {
		return 0, nil, fmt.Errorf("%w: %q", ErrLayerNotFound, layer)
	}

	rec := &Record{Layer: layer}
	id, err := r.net.RegisterForwardHook(layer, func(_ string, input, output *tensor.Tensor[float32, B]) {
		rec.Input = input.Raw()
		rec.Output = output.Raw()
		rec.Gradient = nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %q", ErrLayerNotFound, layer)
	}

	r.records[id] = rec
	return id, rec, nil
}

// Detach removes a single registration. Returns false for an unknown
// handle.
func (r *Registry[B]) Detach(id int) bool {
	if _, ok := r.records[id]; !ok {
		return false
	}
	delete(r.records, id)
	return r.net.RemoveForwardHook(id)
}

// DetachAll removes every registration made through this registry.
// Safe to call repeatedly, including after the owning method is discarded.
func (r *Registry[B]) DetachAll() {
	for id := range r.records {
		r.net.RemoveForwardHook(id)
		delete(r.records, id)
	}
}

// ResolveGradients fills each record's Gradient from a backward pass's
// gradient map, keyed by the captured forward outputs.
func (r *Registry[B]) ResolveGradients(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, rec := range r.records {
		if rec.Output != nil {
			rec.Gradient = grads[rec.Output]
		}
	}
}
