package attribution

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/gradviz-ml/gradviz/internal/nn"
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// OcclusionSensitivity measures class evidence empirically, without
// gradients: a patch filled with the image mean slides over the input, the
// network is rerun per position, and each cell of the returned map is the
// resulting drop in the target class's probability.
//
// It runs O(numPatches) forward passes, so it serves as a cross-check for
// Grad-CAM rather than a primary attribution path. The input is one image
// of shape [1, C, H, W]; the result has shape [rows, cols] over the patch
// grid.
func OcclusionSensitivity[B Backend](
	net *nn.Network[B],
	backend B,
	image *tensor.Tensor[float32, B],
	classID, patchSize, stride int,
) (*tensor.RawTensor, error) {
	shape := image.Shape()
	if len(shape) != 4 || shape[0] != 1 {
		return nil, fmt.Errorf("%w: occlusion expects one image [1,C,H,W], got %v", ErrShapeMismatch, shape)
	}
	if image.Device() != backend.Device() {
		return nil, fmt.Errorf("%w: image on %s, backend on %s",
			ErrDeviceMismatch, image.Device(), backend.Device())
	}
	channels, height, width := shape[1], shape[2], shape[3]
	if patchSize <= 0 || patchSize > height || patchSize > width {
		return nil, fmt.Errorf("%w: patch size %d for %dx%d image", ErrShapeMismatch, patchSize, height, width)
	}
	if stride <= 0 {
		return nil, fmt.Errorf("%w: stride %d", ErrShapeMismatch, stride)
	}

	// Occlusion never differentiates; keep its forward passes off the tape.
	tape := backend.GetTape()
	wasRecording := tape.IsRecording()
	tape.StopRecording()
	defer func() {
		if wasRecording {
			tape.StartRecording()
		}
	}()

	baseline, numClasses, err := classScore(net, backend, image, classID)
	if err != nil {
		return nil, err
	}
	if classID < 0 || classID >= numClasses {
		return nil, fmt.Errorf("%w: class id %d outside [0, %d)", ErrShapeMismatch, classID, numClasses)
	}

	// Patches are filled with the image-wide mean intensity.
	pixels := image.Data()
	sample := make([]float64, len(pixels))
	for i, v := range pixels {
		sample[i] = float64(v)
	}
	fill := float32(floats.Sum(sample) / float64(len(sample)))

	rows := (height-patchSize)/stride + 1
	cols := (width-patchSize)/stride + 1
	scoremap, err := tensor.NewRaw(tensor.Shape{rows, cols}, tensor.Float32, tensor.CPU)
	if err != nil {
		return nil, err
	}
	scores := scoremap.AsFloat32()

	patched := tensor.New[float32, B](image.Raw().DeepClone(), backend)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			top, left := row*stride, col*stride
			copy(patched.Data(), pixels)
			occlude(patched.Data(), channels, height, width, top, left, patchSize, fill)

			score, _, err := classScore(net, backend, patched, classID)
			if err != nil {
				return nil, err
			}
			scores[row*cols+col] = baseline - score
		}
	}

	return scoremap, nil
}

// classScore runs one forward pass and returns the softmax probability of
// the given class for the single sample.
func classScore[B Backend](net *nn.Network[B], backend B, image *tensor.Tensor[float32, B], classID int) (float32, int, error) {
	output := net.Forward(image)
	if len(output.Shape()) != 2 {
		return 0, 0, fmt.Errorf("%w: expected 2D logits, got shape %v", ErrShapeMismatch, output.Shape())
	}
	numClasses := output.Shape()[1]
	if classID < 0 || classID >= numClasses {
		return 0, numClasses, nil
	}
	probs := backend.Softmax(output.Raw(), 1)
	return probs.AsFloat32()[classID], numClasses, nil
}

// occlude overwrites one spatial patch across all channels.
func occlude(data []float32, channels, height, width, top, left, patch int, fill float32) {
	for c := 0; c < channels; c++ {
		base := c * height * width
		for y := top; y < top+patch; y++ {
			row := base + y*width
			for x := left; x < left+patch; x++ {
				data[row+x] = fill
			}
		}
	}
}
