package render

import (
	"fmt"
	"path/filepath"
)

// Output file names follow a fixed pattern so result viewers can locate
// maps by sample index, architecture, technique, target layer and class.

// GradientName names a saliency output: {i}-{arch}-{technique}-{classID}.png.
// Techniques: "vanilla", "deconvnet", "guided".
func GradientName(dir string, sample int, arch, technique string, classID int) string {
	return filepath.Join(dir, fmt.Sprintf("%d-%s-%s-%d.png", sample, arch, technique, classID))
}

// GradCAMName names a Grad-CAM output:
// {i}-{arch}-gradcam-{layer}-{classID}.png.
func GradCAMName(dir string, sample int, arch, layer string, classID int) string {
	return filepath.Join(dir, fmt.Sprintf("%d-%s-gradcam-%s-%d.png", sample, arch, layer, classID))
}

// GuidedGradCAMName names a Guided Grad-CAM output:
// {i}-{arch}-guided_gradcam-{layer}-{classID}.png.
func GuidedGradCAMName(dir string, sample int, arch, layer string, classID int) string {
	return filepath.Join(dir, fmt.Sprintf("%d-%s-guided_gradcam-%s-%d.png", sample, arch, layer, classID))
}

// SensitivityName names an occlusion sensitivity output:
// {i}-{arch}-sensitivity-{classID}.png.
func SensitivityName(dir string, sample int, arch string, classID int) string {
	return filepath.Join(dir, fmt.Sprintf("%d-%s-sensitivity-%d.png", sample, arch, classID))
}

// ChannelMapName names a channel visualization grid:
// {i}-channelmap-{layer}.png.
func ChannelMapName(dir string, sample int, layer string) string {
	return filepath.Join(dir, fmt.Sprintf("%d-channelmap-%s.png", sample, layer))
}
