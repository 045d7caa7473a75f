// Package imageio handles the image side of a visualization run: decoding,
// resizing to the engine's fixed input resolution, normalization, and
// stacking into an input batch.
package imageio

import (
	"fmt"
	"image"
	_ "image/jpeg" // jpeg decoding
	_ "image/png"  // png decoding
	"os"
	"path/filepath"
	"sort"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Every input image is resized to this resolution before processing.
const (
	InputWidth  = 128
	InputHeight = 384
)

// ImageNet channel statistics used for input normalization.
var (
	Mean = [3]float32{0.485, 0.456, 0.406}
	Std  = [3]float32{0.229, 0.224, 0.225}
)

// LoadImage decodes a JPEG or PNG file and resizes it to the fixed input
// resolution. The result keeps raw pixel values; normalization happens at
// batch assembly so the original image stays available for compositing.
func LoadImage(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer file.Close()

	src, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	return Resize(src, InputWidth, InputHeight), nil
}

// Resize scales an image to the given dimensions with bilinear filtering.
func Resize(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// ListImages returns the JPEG/PNG files in a directory, sorted by name so
// sample indices are deterministic.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// ToTensor converts an RGBA image to a normalized CHW tensor: pixel values
// are scaled to [0, 1], then shifted and scaled per channel by the ImageNet
// statistics. Shape: [3, height, width].
func ToTensor(img *image.RGBA) (*tensor.RawTensor, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	raw, err := tensor.NewRaw(tensor.Shape{3, height, width}, tensor.Float32, tensor.CPU)
	if err != nil {
		return nil, err
	}

	data := raw.AsFloat32()
	plane := height * width
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			offset := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			for c := 0; c < 3; c++ {
				v := float32(img.Pix[offset+c]) / 255.0
				data[c*plane+y*width+x] = (v - Mean[c]) / Std[c]
			}
		}
	}
	return raw, nil
}

// Stack assembles per-image CHW tensors into one NCHW batch. All images
// must share one shape.
func Stack(images []*tensor.RawTensor) (*tensor.RawTensor, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("cannot stack an empty image list")
	}

	first := images[0].Shape()
	batch, err := tensor.NewRaw(
		tensor.Shape{len(images), first[0], first[1], first[2]},
		tensor.Float32, images[0].Device())
	if err != nil {
		return nil, err
	}

	data := batch.AsFloat32()
	sampleSize := first.NumElements()
	for i, img := range images {
		if !img.Shape().Equal(first) {
			return nil, fmt.Errorf("image %d has shape %v, want %v", i, img.Shape(), first)
		}
		copy(data[i*sampleSize:(i+1)*sampleSize], img.AsFloat32())
	}
	return batch, nil
}
