// Package render turns attribution tensors into images on disk: gradient
// saliency maps, Grad-CAM heatmap overlays, occlusion sensitivity maps and
// channel visualization grids.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// normEpsilon keeps normalization defined for degenerate value ranges.
const normEpsilon = 1e-6

// BlendMode selects how a Grad-CAM heatmap composites with the raw image.
type BlendMode int

const (
	// BlendAverage mixes colormap and raw image 50/50.
	BlendAverage BlendMode = iota
	// BlendPaper weights the colormap by the attribution value itself,
	// as in the Grad-CAM paper.
	BlendPaper
)

// ParseBlendMode maps config strings to blend modes.
func ParseBlendMode(s string) (BlendMode, error) {
	switch s {
	case "", "average":
		return BlendAverage, nil
	case "paper":
		return BlendPaper, nil
	default:
		return 0, fmt.Errorf("unknown blend mode %q", s)
	}
}

// ExtractSample copies sample i out of an NCHW (or N-leading) tensor,
// returning a tensor of the remaining dimensions.
func ExtractSample(t *tensor.RawTensor, i int) (*tensor.RawTensor, error) {
	shape := t.Shape()
	if len(shape) < 2 {
		return nil, fmt.Errorf("render: cannot slice sample from shape %v", shape)
	}
	if i < 0 || i >= shape[0] {
		return nil, fmt.Errorf("render: sample %d out of range [0, %d)", i, shape[0])
	}

	sampleShape := shape[1:].Clone()
	out, err := tensor.NewRaw(sampleShape, t.DType(), t.Device())
	if err != nil {
		return nil, err
	}
	size := sampleShape.NumElements()
	copy(out.AsFloat32(), t.AsFloat32()[i*size:(i+1)*size])
	return out, nil
}

// normalize01 rescales values into [0, 1] in place with an epsilon guard.
func normalize01(data []float32) {
	sample := make([]float64, len(data))
	for i, v := range data {
		sample[i] = float64(v)
	}
	lo, hi := floats.Min(sample), floats.Max(sample)
	scale := float32(1.0 / (hi - lo + normEpsilon))
	for i := range data {
		data[i] = (data[i] - float32(lo)) * scale
	}
}

// SaveGradient writes a gradient map as a PNG. The input is one sample of
// shape [C, H, W]; values are min-max normalized, transposed to HWC and
// scaled to bytes. Three channels render as RGB, one as grayscale.
func SaveGradient(path string, grad *tensor.RawTensor) error {
	shape := grad.Shape()
	if len(shape) != 3 {
		return fmt.Errorf("render: gradient must be [C,H,W], got %v", shape)
	}
	channels, height, width := shape[0], shape[1], shape[2]
	if channels != 1 && channels != 3 {
		return fmt.Errorf("render: gradient must have 1 or 3 channels, got %d", channels)
	}

	data := append([]float32(nil), grad.AsFloat32()...)
	normalize01(data)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	plane := height * width
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var r, g, b uint8
			if channels == 3 {
				r = toByte(data[0*plane+y*width+x])
				g = toByte(data[1*plane+y*width+x])
				b = toByte(data[2*plane+y*width+x])
			} else {
				v := toByte(data[y*width+x])
				r, g, b = v, v, v
			}
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return writePNG(path, img)
}

// SaveGradCAM composites a class activation map over the raw image and
// writes the result. regions is one sample of shape [1, H, W] (or [H, W])
// with values already in [0, 1]; its resolution must match the image.
func SaveGradCAM(path string, raw *image.RGBA, regions *tensor.RawTensor, mode BlendMode) error {
	data := regions.AsFloat32()
	bounds := raw.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if len(data) != width*height {
		return fmt.Errorf("render: regions have %d values for %dx%d image", len(data), width, height)
	}

	cmap := NewJetReversed()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := float64(data[y*width+x])
			heat, err := cmap.At(clamp01(v))
			if err != nil {
				return fmt.Errorf("render: colormap at %f: %w", v, err)
			}
			base := raw.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y)

			alpha := 0.5
			if mode == BlendPaper {
				alpha = clamp01(v)
			}
			img.SetRGBA(x, y, blend(heat, base, alpha))
		}
	}
	return writePNG(path, img)
}

// SaveSensitivity renders an occlusion score map through the diverging
// palette, nearest-neighbor upscaled to the given canvas size.
func SaveSensitivity(path string, scoremap *tensor.RawTensor, width, height int) error {
	shape := scoremap.Shape()
	if len(shape) != 2 {
		return fmt.Errorf("render: sensitivity map must be 2D, got %v", shape)
	}
	rows, cols := shape[0], shape[1]
	data := scoremap.AsFloat32()

	maxAbs := normEpsilon
	for _, v := range data {
		if a := math.Abs(float64(v)); a > maxAbs {
			maxAbs = a
		}
	}
	cmap := SensitivityColorMap(maxAbs)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := y * rows / height
		for x := 0; x < width; x++ {
			col := x * cols / width
			// Negated so score drops land on the warm end.
			c, err := cmap.At(float64(-data[row*cols+col]))
			if err != nil {
				return fmt.Errorf("render: sensitivity colormap: %w", err)
			}
			r, g, b, _ := c.RGBA()
			img.SetRGBA(x, y, color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255})
		}
	}
	return writePNG(path, img)
}

// SaveChannelGrid writes one sample's per-channel activations [K, h, w] as
// a grid of individually min-max normalized grayscale tiles.
func SaveChannelGrid(path string, activations *tensor.RawTensor, tilesPerRow int) error {
	shape := activations.Shape()
	if len(shape) != 3 {
		return fmt.Errorf("render: channel grid expects [K,h,w], got %v", shape)
	}
	channels, tileH, tileW := shape[0], shape[1], shape[2]
	if tilesPerRow <= 0 {
		tilesPerRow = 8
	}
	if tilesPerRow > channels {
		tilesPerRow = channels
	}
	gridRows := (channels + tilesPerRow - 1) / tilesPerRow

	img := image.NewRGBA(image.Rect(0, 0, tilesPerRow*tileW, gridRows*tileH))
	data := activations.AsFloat32()
	plane := tileH * tileW

	for k := 0; k < channels; k++ {
		tile := append([]float32(nil), data[k*plane:(k+1)*plane]...)
		normalize01(tile)

		originX := (k % tilesPerRow) * tileW
		originY := (k / tilesPerRow) * tileH
		for y := 0; y < tileH; y++ {
			for x := 0; x < tileW; x++ {
				v := toByte(tile[y*tileW+x])
				img.SetRGBA(originX+x, originY+y, color.RGBA{R: v, G: v, B: v, A: 255})
			}
		}
	}
	return writePNG(path, img)
}

func blend(heat color.Color, base color.RGBA, alpha float64) color.RGBA {
	hr, hg, hb, _ := heat.RGBA()
	mix := func(h uint32, b uint8) uint8 {
		v := alpha*float64(h>>8) + (1-alpha)*float64(b)
		return uint8(math.Round(v))
	}
	return color.RGBA{
		R: mix(hr, base.R),
		G: mix(hg, base.G),
		B: mix(hb, base.B),
		A: 255,
	}
}

func toByte(v float32) uint8 {
	return uint8(clamp01(float64(v)) * 255)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func writePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}
