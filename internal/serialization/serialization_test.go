package serialization

import (
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

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gvz")

	stateDict := map[string]*tensor.RawTensor{
		"conv1.weight": rawFrom(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{2, 1, 2, 2}),
		"conv1.bias":   rawFrom(t, []float32{0.5, -0.5}, tensor.Shape{2}),
		"fc.weight":    rawFrom(t, []float32{1, 0, 0, 1}, tensor.Shape{2, 2}),
	}

	header := Header{
		Architecture: "simplecnn",
		NumClasses:   2,
		Metadata:     map[string]string{"source": "test"},
	}
	require.NoError(t, Save(path, stateDict, header))

	loaded, loadedHeader, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "simplecnn", loadedHeader.Architecture)
	assert.Equal(t, 2, loadedHeader.NumClasses)
	assert.Equal(t, FormatVersion, loadedHeader.FormatVersion)
	assert.Len(t, loaded, 3)

	for name, want := range stateDict {
		got, ok := loaded[name]
		require.True(t, ok, "missing tensor %q", name)
		assert.Equal(t, want.Shape(), got.Shape())
		assert.Equal(t, want.AsFloat32(), got.AsFloat32())
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.gvz")
	require.NoError(t, os.WriteFile(path, []byte("NOPE0000000000000000"), 0o644))

	_, _, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestLoadRejectsTruncatedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gvz")

	stateDict := map[string]*tensor.RawTensor{
		"w": rawFrom(t, []float32{1, 2, 3, 4}, tensor.Shape{4}),
	}
	require.NoError(t, Save(path, stateDict, Header{}))

	// Chop off the last half of the data section.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-8], 0o644))

	_, _, err = Load(path)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestSaveIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	stateDict := map[string]*tensor.RawTensor{
		"b": rawFrom(t, []float32{1}, tensor.Shape{1}),
		"a": rawFrom(t, []float32{2}, tensor.Shape{1}),
	}

	header := Header{Architecture: "x"}
	p1 := filepath.Join(dir, "1.gvz")
	p2 := filepath.Join(dir, "2.gvz")
	require.NoError(t, Save(p1, stateDict, header))
	require.NoError(t, Save(p2, stateDict, header))

	_, h1, err := Load(p1)
	require.NoError(t, err)
	_, h2, err := Load(p2)
	require.NoError(t, err)

	// Sorted layout: "a" before "b" in both files.
	assert.Equal(t, h1.Tensors[0].Name, h2.Tensors[0].Name)
	assert.Equal(t, "a", h1.Tensors[0].Name)
}
