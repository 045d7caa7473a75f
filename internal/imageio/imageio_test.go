package imageio

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestLoadImageResizesToInputResolution(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.png")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, solidImage(10, 20, color.RGBA{R: 255, A: 255})))
	require.NoError(t, file.Close())

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, InputWidth, img.Bounds().Dx())
	assert.Equal(t, InputHeight, img.Bounds().Dy())
}

func TestToTensorNormalizes(t *testing.T) {
	img := solidImage(2, 2, color.RGBA{R: 255, G: 0, B: 0, A: 255})

	raw, err := ToTensor(img)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2, 2}, raw.Shape())

	data := raw.AsFloat32()
	// Red channel: (1.0 - mean) / std; green and blue: (0 - mean) / std.
	assert.InDelta(t, (1.0-Mean[0])/Std[0], data[0], 1e-6)
	assert.InDelta(t, (0.0-Mean[1])/Std[1], data[4], 1e-6)
	assert.InDelta(t, (0.0-Mean[2])/Std[2], data[8], 1e-6)
}

func TestStack(t *testing.T) {
	a, err := tensor.NewRaw(tensor.Shape{3, 2, 2}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	b, err := tensor.NewRaw(tensor.Shape{3, 2, 2}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	a.AsFloat32()[0] = 1
	b.AsFloat32()[0] = 2

	batch, err := Stack([]*tensor.RawTensor{a, b})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3, 2, 2}, batch.Shape())
	assert.Equal(t, float32(1), batch.AsFloat32()[0])
	assert.Equal(t, float32(2), batch.AsFloat32()[12])
}

func TestStackRejectsMixedShapes(t *testing.T) {
	a, err := tensor.NewRaw(tensor.Shape{3, 2, 2}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	b, err := tensor.NewRaw(tensor.Shape{3, 4, 4}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)

	_, err = Stack([]*tensor.RawTensor{a, b})
	assert.Error(t, err)

	_, err = Stack(nil)
	assert.Error(t, err)
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	paths, err := ListImages(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "a.jpg"), paths[0])
	assert.Equal(t, filepath.Join(dir, "b.png"), paths[1])
}
