package zoo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradviz-ml/gradviz/internal/backend/cpu"
	"github.com/gradviz-ml/gradviz/internal/serialization"
	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Forward-shape checks run on a reduced input: the architectures only care
// about channel arithmetic until the classifier head, which is where the
// spatial dimensions must line up exactly.
func TestBuildForwardShapes(t *testing.T) {
	backend := cpu.New()

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			if testing.Short() {
				t.Skip("full-resolution forward pass")
			}
			net, err := Build(name, 4, backend)
			require.NoError(t, err)

			input := tensor.Zeros[float32](tensor.Shape{1, 3, 384, 128}, backend)
			output := net.Forward(input)
			assert.Equal(t, tensor.Shape{1, 4}, output.Shape())
		})
	}
}

func TestBuildUnknownArch(t *testing.T) {
	_, err := Build("resnet900", 10, cpu.New())
	assert.Error(t, err)
}

func TestBuildRejectsTooFewClasses(t *testing.T) {
	_, err := Build("simplecnn", 1, cpu.New())
	assert.Error(t, err)
}

func TestDefaultTargetLayerExists(t *testing.T) {
	backend := cpu.New()
	for _, name := range Names() {
		net, err := Build(name, 2, backend)
		require.NoError(t, err)
		_, ok := net.Layer(DefaultTargetLayer(name))
		assert.True(t, ok, "default target layer missing in %s", name)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "model.gvz")

	src, err := Build("simplecnn", 3, backend)
	require.NoError(t, err)
	require.NoError(t, serialization.Save(path, src.StateDict(), serialization.Header{
		Architecture: "simplecnn",
		NumClasses:   3,
	}))

	loaded, header, err := Load(path, backend)
	require.NoError(t, err)
	assert.Equal(t, "simplecnn", header.Architecture)

	srcDict, loadedDict := src.StateDict(), loaded.StateDict()
	require.Equal(t, len(srcDict), len(loadedDict))
	for name, want := range srcDict {
		got, ok := loadedDict[name]
		require.True(t, ok, "missing %s", name)
		assert.Equal(t, want.AsFloat32(), got.AsFloat32(), "mismatch in %s", name)
	}
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("# header\ntabby cat\n\ngolden retriever\n"), 0o644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	require.Equal(t, []string{"tabby cat", "golden retriever"}, labels)

	assert.Equal(t, "tabby cat", Label(labels, 0))
	assert.Equal(t, "class 9", Label(labels, 9))
}
