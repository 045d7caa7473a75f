package render

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

func rawFrom(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(raw.AsFloat32(), data)
	return raw
}

func TestNormalize01(t *testing.T) {
	data := []float32{2, 4, 6}
	normalize01(data)
	assert.InDelta(t, 0, data[0], 1e-5)
	assert.InDelta(t, 0.5, data[1], 1e-5)
	assert.InDelta(t, 1, data[2], 1e-5)
}

func TestNormalize01DegenerateRange(t *testing.T) {
	// All-equal values must not divide by zero.
	data := []float32{3, 3, 3}
	normalize01(data)
	for _, v := range data {
		assert.False(t, v != v, "NaN in normalized output")
		assert.InDelta(t, 0, v, 1e-5)
	}
}

func TestJetReversedEndpoints(t *testing.T) {
	cmap := NewJetReversed()

	// Value 0 (cold end of the reversed map) is jet's red end.
	c, err := cmap.At(0)
	require.NoError(t, err)
	r, _, b, _ := c.RGBA()
	assert.Greater(t, r, b)

	// Value 1 is jet's blue end.
	c, err = cmap.At(1)
	require.NoError(t, err)
	r, _, b, _ = c.RGBA()
	assert.Greater(t, b, r)

	_, err = cmap.At(2)
	assert.Error(t, err)
}

func TestJetReversedPalette(t *testing.T) {
	p := NewJetReversed().Palette(16)
	assert.Len(t, p.Colors(), 16)
}

func TestExtractSample(t *testing.T) {
	batch := rawFrom(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{2, 1, 2, 2})

	s1, err := ExtractSample(batch, 1)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2, 2}, s1.Shape())
	assert.Equal(t, []float32{5, 6, 7, 8}, s1.AsFloat32())

	_, err = ExtractSample(batch, 2)
	assert.Error(t, err)
}

func TestSaveGradientWritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grad.png")
	grad := rawFrom(t, []float32{
		-1, 0, 1, 2, // R
		0, 0, 0, 0, // G
		1, 1, 1, 1, // B
	}, tensor.Shape{3, 2, 2})

	require.NoError(t, SaveGradient(path, grad))

	img := decodePNG(t, path)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
}

func TestSaveGradientRejectsBadShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grad.png")
	grad := rawFrom(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	assert.Error(t, SaveGradient(path, grad))
}

func TestSaveGradCAMBlends(t *testing.T) {
	dir := t.TempDir()
	raw := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			raw.SetRGBA(x, y, color.RGBA{R: 100, G: 100, B: 100, A: 255})
		}
	}
	regions := rawFrom(t, []float32{0, 0.5, 0.5, 1}, tensor.Shape{1, 2, 2})

	for _, mode := range []BlendMode{BlendAverage, BlendPaper} {
		path := filepath.Join(dir, "cam.png")
		require.NoError(t, SaveGradCAM(path, raw, regions, mode))
		img := decodePNG(t, path)
		assert.Equal(t, 2, img.Bounds().Dx())
	}

	// Paper mode with zero attribution leaves the raw pixel untouched.
	path := filepath.Join(dir, "paper.png")
	require.NoError(t, SaveGradCAM(path, raw, regions, BlendPaper))
	img := decodePNG(t, path)
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(100), r>>8)
	assert.Equal(t, uint32(100), g>>8)
	assert.Equal(t, uint32(100), b>>8)
}

func TestSaveSensitivityUpscales(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sens.png")
	scoremap := rawFrom(t, []float32{0.5, -0.5, 0, 0.25}, tensor.Shape{2, 2})

	require.NoError(t, SaveSensitivity(path, scoremap, 8, 8))
	img := decodePNG(t, path)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestSaveChannelGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.png")
	activations := rawFrom(t, []float32{
		1, 2, 3, 4,
		-1, -2, -3, -4,
		0, 0, 0, 0,
	}, tensor.Shape{3, 2, 2})

	require.NoError(t, SaveChannelGrid(path, activations, 2))
	img := decodePNG(t, path)
	assert.Equal(t, 4, img.Bounds().Dx()) // 2 tiles per row, 2px wide
	assert.Equal(t, 4, img.Bounds().Dy()) // 2 grid rows
}

func TestParseBlendMode(t *testing.T) {
	m, err := ParseBlendMode("")
	require.NoError(t, err)
	assert.Equal(t, BlendAverage, m)

	m, err = ParseBlendMode("paper")
	require.NoError(t, err)
	assert.Equal(t, BlendPaper, m)

	_, err = ParseBlendMode("nope")
	assert.Error(t, err)
}

func TestOutputNames(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "0-simplecnn-vanilla-3.png"),
		GradientName("out", 0, "simplecnn", "vanilla", 3))
	assert.Equal(t, filepath.Join("out", "1-simplecnn-gradcam-conv3-7.png"),
		GradCAMName("out", 1, "simplecnn", "conv3", 7))
	assert.Equal(t, filepath.Join("out", "1-simplecnn-guided_gradcam-conv3-7.png"),
		GuidedGradCAMName("out", 1, "simplecnn", "conv3", 7))
	assert.Equal(t, filepath.Join("out", "2-simplecnn-sensitivity-5.png"),
		SensitivityName("out", 2, "simplecnn", 5))
	assert.Equal(t, filepath.Join("out", "2-channelmap-conv3.png"),
		ChannelMapName("out", 2, "conv3"))
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	img, _, err := image.Decode(file)
	require.NoError(t, err)
	return img
}
