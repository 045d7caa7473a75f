// Package config loads TOML run configurations so visualization jobs are
// reproducible without retyping flags.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Run describes one visualization job. Zero values defer to CLI flags or
// built-in defaults.
type Run struct {
	ImageDir    string `toml:"image_dir"`
	ModelPath   string `toml:"model_path"`
	Arch        string `toml:"arch"`
	TargetLayer string `toml:"target_layer"`
	TopK        int    `toml:"topk"`
	OutputDir   string `toml:"output_dir"`
	Device      string `toml:"device"` // "cpu" or "gpu"
	Blend       string `toml:"blend"`  // "average" or "paper"
	LabelsPath  string `toml:"labels"`

	Occlusion Occlusion `toml:"occlusion"`
}

// Occlusion configures the occlusion sensitivity pass. A zero PatchSize
// disables it.
type Occlusion struct {
	PatchSize int `toml:"patch_size"`
	Stride    int `toml:"stride"`
}

// Default returns the built-in run configuration.
func Default() Run {
	return Run{
		Arch:      "simplecnn",
		TopK:      1,
		OutputDir: "results",
		Device:    "cpu",
		Blend:     "average",
	}
}

// Load reads a TOML run file over the defaults.
func Load(path string) (Run, error) {
	run := Default()
	if _, err := toml.DecodeFile(path, &run); err != nil {
		return run, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := run.Validate(); err != nil {
		return run, err
	}
	return run, nil
}

// Validate rejects values no run could use.
func (r *Run) Validate() error {
	if r.TopK < 1 {
		return fmt.Errorf("topk must be at least 1, got %d", r.TopK)
	}
	switch r.Device {
	case "cpu", "gpu":
	default:
		return fmt.Errorf("device must be cpu or gpu, got %q", r.Device)
	}
	switch r.Blend {
	case "", "average", "paper":
	default:
		return fmt.Errorf("blend must be average or paper, got %q", r.Blend)
	}
	if r.Occlusion.PatchSize < 0 || r.Occlusion.Stride < 0 {
		return fmt.Errorf("occlusion patch_size and stride must be non-negative")
	}
	if r.Occlusion.PatchSize > 0 && r.Occlusion.Stride == 0 {
		r.Occlusion.Stride = r.Occlusion.PatchSize
	}
	return nil
}
