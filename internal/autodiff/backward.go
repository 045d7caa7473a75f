package autodiff

import "github.com/gradviz-ml/gradviz/internal/tensor"

// BackwardCapable is satisfied by backends that carry a gradient tape.
type BackwardCapable interface {
	tensor.Backend
	GetTape() *GradientTape
}

// Backward runs the backward pass from the tape's last recorded output,
// seeded with a gradient of all ones, and returns the gradient map.
func Backward(backend BackwardCapable) map[*tensor.RawTensor]*tensor.RawTensor {
	tape := backend.GetTape()
	out := tape.LastOutput()
	if out == nil {
		return map[*tensor.RawTensor]*tensor.RawTensor{}
	}
	seed := onesLike(out)
	return tape.Backward(seed, backend)
}

// BackwardFrom runs the backward pass seeded with the given gradient. The
// seed's shape must match the tape's last output; attribution methods use
// this to inject one-hot class gradients.
func BackwardFrom(backend BackwardCapable, seed *tensor.RawTensor) map[*tensor.RawTensor]*tensor.RawTensor {
	return backend.GetTape().Backward(seed, backend)
}

func onesLike(x *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
	if err != nil {
		panic("autodiff: " + err.Error())
	}
	data := out.AsFloat32()
	for i := range data {
		data[i] = 1
	}
	return out
}
