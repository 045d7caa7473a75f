package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
image_dir = "input_images"
model_path = "weights/simplecnn.gvz"
arch = "lenet5"
target_layer = "conv3"
topk = 3
device = "gpu"
blend = "paper"

[occlusion]
patch_size = 16
stride = 8
`)

	run, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "lenet5", run.Arch)
	assert.Equal(t, "conv3", run.TargetLayer)
	assert.Equal(t, 3, run.TopK)
	assert.Equal(t, "gpu", run.Device)
	assert.Equal(t, "paper", run.Blend)
	assert.Equal(t, 16, run.Occlusion.PatchSize)
	assert.Equal(t, 8, run.Occlusion.Stride)
	// Untouched fields keep their defaults.
	assert.Equal(t, "results", run.OutputDir)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for _, body := range []string{
		`topk = 0`,
		`device = "tpu"`,
		`blend = "multiply"`,
	} {
		_, err := Load(writeConfig(t, body))
		assert.Error(t, err, "config %q should fail", body)
	}
}

func TestOcclusionStrideDefaultsToPatch(t *testing.T) {
	run, err := Load(writeConfig(t, "[occlusion]\npatch_size = 10\n"))
	require.NoError(t, err)
	assert.Equal(t, 10, run.Occlusion.Stride)
}
