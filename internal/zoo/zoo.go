// Package zoo provides named classifier architectures so a CLI flag can
// select a model, and loads their weights from .gvz containers.
package zoo

import (
	"fmt"
	"sort"

	"github.com/gradviz-ml/gradviz/internal/nn"
	"github.com/gradviz-ml/gradviz/internal/serialization"
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Architectures are sized for the engine's fixed input of 3x384x128
// (channels x height x width).
const (
	inputChannels = 3
	inputHeight   = 384
	inputWidth    = 128
)

// Build constructs the named architecture with fresh parameters.
func Build[B tensor.Backend](name string, numClasses int, backend B) (*nn.Network[B], error) {
	if numClasses < 2 {
		return nil, fmt.Errorf("zoo: need at least 2 classes, got %d", numClasses)
	}
	switch name {
	case "simplecnn":
		return buildSimpleCNN(numClasses, backend), nil
	case "lenet5":
		return buildLeNet5(numClasses, backend), nil
	default:
		return nil, fmt.Errorf("zoo: unknown architecture %q (have %v)", name, Names())
	}
}

// Names lists the available architectures.
func Names() []string {
	names := []string{"simplecnn", "lenet5"}
	sort.Strings(names)
	return names
}

// DefaultTargetLayer returns the deepest convolutional layer of the named
// architecture, the usual Grad-CAM target.
func DefaultTargetLayer(name string) string {
	switch name {
	case "lenet5":
		return "conv2"
	default:
		return "conv3"
	}
}

// Load reads a .gvz container, builds the architecture named in its
// header, and loads the weights into it.
func Load[B tensor.Backend](path string, backend B) (*nn.Network[B], *serialization.Header, error) {
	stateDict, header, err := serialization.Load(path)
	if err != nil {
		return nil, nil, err
	}
	net, err := Build(header.Architecture, header.NumClasses, backend)
	if err != nil {
		return nil, nil, err
	}
	if err := net.LoadStateDict(stateDict); err != nil {
		return nil, nil, fmt.Errorf("zoo: loading %s: %w", path, err)
	}
	return net, header, nil
}

// buildSimpleCNN stacks three conv/relu/pool blocks and a linear head.
// Feature map sizes: 384x128 -> 192x64 -> 96x32 -> 48x16.
func buildSimpleCNN[B tensor.Backend](numClasses int, backend B) *nn.Network[B] {
	net := nn.NewNetwork[B]()
	net.Add("conv1", nn.NewConv2D(inputChannels, 8, 3, 3, 1, 1, true, backend))
	net.Add("relu1", nn.NewReLU[B]())
	net.Add("pool1", nn.NewMaxPool2D(2, 2, backend))
	net.Add("conv2", nn.NewConv2D(8, 16, 3, 3, 1, 1, true, backend))
	net.Add("relu2", nn.NewReLU[B]())
	net.Add("pool2", nn.NewMaxPool2D(2, 2, backend))
	net.Add("conv3", nn.NewConv2D(16, 32, 3, 3, 1, 1, true, backend))
	net.Add("relu3", nn.NewReLU[B]())
	net.Add("pool3", nn.NewMaxPool2D(2, 2, backend))
	net.Add("flatten", nn.NewFlatten[B]())
	net.Add("fc", nn.NewLinear(32*(inputHeight/8)*(inputWidth/8), numClasses, backend))
	return net
}

// buildLeNet5 adapts the LeNet-5 layout to the engine's input resolution.
// Feature map sizes: 384x128 -> 192x64 -> 188x60 -> 94x30.
func buildLeNet5[B tensor.Backend](numClasses int, backend B) *nn.Network[B] {
	net := nn.NewNetwork[B]()
	net.Add("conv1", nn.NewConv2D(inputChannels, 6, 5, 5, 1, 2, true, backend))
	net.Add("relu1", nn.NewReLU[B]())
	net.Add("pool1", nn.NewMaxPool2D(2, 2, backend))
	net.Add("conv2", nn.NewConv2D(6, 16, 5, 5, 1, 0, true, backend))
	net.Add("relu2", nn.NewReLU[B]())
	net.Add("pool2", nn.NewMaxPool2D(2, 2, backend))
	net.Add("flatten", nn.NewFlatten[B]())
	net.Add("fc1", nn.NewLinear(16*94*30, 120, backend))
	net.Add("relu3", nn.NewReLU[B]())
	net.Add("fc2", nn.NewLinear(120, numClasses, backend))
	return net
}
