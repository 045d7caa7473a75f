package nn

import (
	"fmt"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// ForwardHook observes a layer during the forward pass. It receives the
// layer's name, its input and its output, after the layer has run.
//
// Hooks observe; they must not mutate the tensors they receive.
type ForwardHook[B tensor.Backend] func(layer string, input, output *tensor.Tensor[float32, B])

type namedModule[B tensor.Backend] struct {
	name   string
	module Module[B]
}

type hookEntry[B tensor.Backend] struct {
	id    int
	layer string
	fn    ForwardHook[B]
}

// Network is a container that chains named modules. Names let attribution
// methods address individual layers: hooks attach by layer name, and
// state dictionaries key parameters by "layer.param".
//
// Example:
//
//	net := nn.NewNetwork[Backend]()
//	net.Add("conv1", nn.NewConv2D(3, 16, 3, 3, 1, 1, true, backend))
//	net.Add("relu1", nn.NewReLU[Backend]())
//	net.Add("fc", nn.NewLinear(16*32*32, 10, backend))
type Network[B tensor.Backend] struct {
	layers     []namedModule[B]
	byName     map[string]int
	hooks      []hookEntry[B]
	nextHookID int
}

// NewNetwork creates an empty network.
func NewNetwork[B tensor.Backend]() *Network[B] {
	return &Network[B]{
		byName: make(map[string]int),
	}
}

// Add appends a named module. Panics on a duplicate name: layer names are
// the addressing scheme for hooks and weights, so collisions are
// programmer error.
func (n *Network[B]) Add(name string, module Module[B]) {
	if _, exists := n.byName[name]; exists {
		panic(fmt.Sprintf("network: duplicate layer name %q", name))
	}
	n.byName[name] = len(n.layers)
	n.layers = append(n.layers, namedModule[B]{name: name, module: module})
}

// Len returns the number of layers.
func (n *Network[B]) Len() int {
	return len(n.layers)
}

// Names returns the layer names in execution order.
func (n *Network[B]) Names() []string {
	names := make([]string, len(n.layers))
	for i, l := range n.layers {
		names[i] = l.name
	}
	return names
}

// Layer returns the named module, or false if no layer has that name.
func (n *Network[B]) Layer(name string) (Module[B], bool) {
	idx, ok := n.byName[name]
	if !ok {
		return nil, false
	}
	return n.layers[idx].module, true
}

// Forward runs all layers in order, firing registered hooks after each
// hooked layer computes its output.
func (n *Network[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input
	for _, l := range n.layers {
		layerInput := output
		output = l.module.Forward(layerInput)
		for _, h := range n.hooks {
			if h.layer == l.name {
				h.fn(l.name, layerInput, output)
			}
		}
	}
	return output
}

// RegisterForwardHook attaches a hook to the named layer and returns a
// handle for removal. Returns an error if the layer does not exist.
func (n *Network[B]) RegisterForwardHook(layer string, fn ForwardHook[B]) (int, error) {
	if _, ok := n.byName[layer]; !ok {
		return 0, fmt.Errorf("network: no layer named %q", layer)
	}
	id := n.nextHookID
	n.nextHookID++
	n.hooks = append(n.hooks, hookEntry[B]{id: id, layer: layer, fn: fn})
	return id, nil
}

// RemoveForwardHook detaches the hook with the given handle. Returns false
// if no such hook is registered.
func (n *Network[B]) RemoveForwardHook(id int) bool {
	for i, h := range n.hooks {
		if h.id == id {
			n.hooks = append(n.hooks[:i], n.hooks[i+1:]...)
			return true
		}
	}
	return false
}

// ClearForwardHooks detaches all hooks.
func (n *Network[B]) ClearForwardHooks() {
	n.hooks = nil
}

// Parameters returns all trainable parameters from all layers.
func (n *Network[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, l := range n.layers {
		params = append(params, l.module.Parameters()...)
	}
	return params
}

// StateDict returns all stateful layers' parameters keyed "layer.param".
func (n *Network[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for _, l := range n.layers {
		stateful, ok := l.module.(StatefulModule[B])
		if !ok {
			continue
		}
		for name, raw := range stateful.StateDict() {
			stateDict[l.name+"."+name] = raw
		}
	}
	return stateDict
}

// LoadStateDict loads parameters into stateful layers from keys of the
// form "layer.param".
func (n *Network[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for _, l := range n.layers {
		stateful, ok := l.module.(StatefulModule[B])
		if !ok {
			continue
		}
		prefix := l.name + "."
		layerDict := make(map[string]*tensor.RawTensor)
		for key, raw := range stateDict {
			if len(key) > len(prefix) && key[:len(prefix)] == prefix {
				layerDict[key[len(prefix):]] = raw
			}
		}
		if len(layerDict) == 0 {
			return fmt.Errorf("network: no parameters for layer %q in state dict", l.name)
		}
		if err := stateful.LoadStateDict(layerDict); err != nil {
			return fmt.Errorf("network: layer %q: %w", l.name, err)
		}
	}
	return nil
}
