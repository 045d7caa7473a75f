package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/gradviz-ml/gradviz/internal/attribution"
	"github.com/gradviz-ml/gradviz/internal/autodiff"
	"github.com/gradviz-ml/gradviz/internal/backend/cpu"
	"github.com/gradviz-ml/gradviz/internal/backend/webgpu"
	"github.com/gradviz-ml/gradviz/internal/config"
	"github.com/gradviz-ml/gradviz/internal/imageio"
	"github.com/gradviz-ml/gradviz/internal/nn"
	"github.com/gradviz-ml/gradviz/internal/render"
	"github.com/gradviz-ml/gradviz/internal/tensor"
	"github.com/gradviz-ml/gradviz/internal/zoo"
)

func runVisualization(args []string) error {
	fs := flag.NewFlagSet("visualization", flag.ContinueOnError)
	configPath := fs.String("config", "", "TOML run configuration (flags override it)")
	imageDir := fs.String("images", "", "directory of input images (jpg/png)")
	modelPath := fs.String("model", "", "path to a .gvz weight file (overrides -arch)")
	arch := fs.String("arch", "", "architecture name when no model file is given")
	layer := fs.String("layer", "", "Grad-CAM target layer (defaults per architecture)")
	topK := fs.Int("topk", 0, "visualize the top K predicted classes per image")
	outDir := fs.String("out", "", "output directory for rendered maps")
	useGPU := fs.Bool("gpu", false, "run on the WebGPU backend")
	labelsPath := fs.String("labels", "", "optional class labels file, one per line")
	numClasses := fs.Int("classes", 10, "number of classes for randomly initialized models")
	blend := fs.String("blend", "", "Grad-CAM blend mode: average or paper")
	occPatch := fs.Int("occlusion-patch", 0, "occlusion patch size in pixels (0 disables)")
	occStride := fs.Int("occlusion-stride", 0, "occlusion stride (defaults to patch size)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	run := config.Default()
	if *configPath != "" {
		var err error
		if run, err = config.Load(*configPath); err != nil {
			return err
		}
	}

	// Flags override the config file.
	if *imageDir != "" {
		run.ImageDir = *imageDir
	}
	if *modelPath != "" {
		run.ModelPath = *modelPath
	}
	if *arch != "" {
		run.Arch = *arch
	}
	if *layer != "" {
		run.TargetLayer = *layer
	}
	if *topK > 0 {
		run.TopK = *topK
	}
	if *outDir != "" {
		run.OutputDir = *outDir
	}
	if *useGPU {
		run.Device = "gpu"
	}
	if *labelsPath != "" {
		run.LabelsPath = *labelsPath
	}
	if *blend != "" {
		run.Blend = *blend
	}
	if *occPatch > 0 {
		run.Occlusion.PatchSize = *occPatch
	}
	if *occStride > 0 {
		run.Occlusion.Stride = *occStride
	}
	if err := run.Validate(); err != nil {
		return err
	}
	if run.ImageDir == "" {
		return fmt.Errorf("no image directory: pass -images or set image_dir in the config")
	}

	if run.Device == "gpu" {
		gpu, err := webgpu.New()
		if err != nil {
			return fmt.Errorf("gpu requested but unavailable: %w", err)
		}
		defer gpu.Release()
		return visualize(run, *numClasses, autodiff.New(gpu))
	}
	return visualize(run, *numClasses, autodiff.New(cpu.New()))
}

// technique is the lifecycle every saliency method shares.
type technique[B attribution.Backend] interface {
	Forward(*tensor.Tensor[float32, B]) (attribution.Ranking, error)
	Backward([]int) error
	Generate() (*tensor.RawTensor, error)
	Cleanup()
}

func visualize[B attribution.Backend](run config.Run, numClasses int, backend B) error {
	net, archName, err := buildNetwork(run, numClasses, backend)
	if err != nil {
		return err
	}
	targetLayer := run.TargetLayer
	if targetLayer == "" {
		targetLayer = zoo.DefaultTargetLayer(archName)
	}

	var labels []string
	if run.LabelsPath != "" {
		if labels, err = zoo.LoadLabels(run.LabelsPath); err != nil {
			return err
		}
	}

	mode, err := render.ParseBlendMode(run.Blend)
	if err != nil {
		return err
	}

	paths, err := imageio.ListImages(run.ImageDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no images found in %s", run.ImageDir)
	}

	raws := make([]*image.RGBA, len(paths))
	chw := make([]*tensor.RawTensor, len(paths))
	for i, path := range paths {
		img, err := imageio.LoadImage(path)
		if err != nil {
			return err
		}
		raws[i] = img
		if chw[i], err = imageio.ToTensor(img); err != nil {
			return err
		}
	}
	batchRaw, err := imageio.Stack(chw)
	if err != nil {
		return err
	}
	batch := tensor.New[float32, B](batchRaw.ToDevice(backend.Device()), backend)

	if err := os.MkdirAll(run.OutputDir, 0o755); err != nil {
		return err
	}

	fmt.Printf("Device: %s\n", backend.Name())
	fmt.Printf("Architecture: %s\n", archName)
	fmt.Printf("Target layer: %s\n", targetLayer)
	fmt.Printf("Images: %d\n", len(paths))
	for i, path := range paths {
		fmt.Printf("\t#%d: %s\n", i, filepath.Base(path))
	}

	topK := run.TopK

	// Vanilla backpropagation prints the prediction ranking; the other
	// techniques see the same weights and reproduce it.
	fmt.Println("Technique: vanilla")
	vanilla := attribution.NewBackPropagation(net, backend)
	ranking, err := runSaliency(vanilla, batch, topK, func(k int, targets []int, grads *tensor.RawTensor) error {
		return saveGradients(run.OutputDir, archName, "vanilla", targets, grads)
	})
	if err != nil {
		return err
	}
	for i, row := range ranking {
		for k := 0; k < topK && k < len(row); k++ {
			fmt.Printf("\t#%d: %s (%.4f)\n", i, zoo.Label(labels, row[k].ClassID), row[k].Probability)
		}
	}
	if topK > len(ranking[0]) {
		topK = len(ranking[0])
		fmt.Printf("topk clamped to %d classes\n", topK)
	}

	fmt.Println("Technique: deconvnet")
	deconv := attribution.NewDeconvnet(net, backend)
	if _, err := runSaliency(deconv, batch, topK, func(k int, targets []int, grads *tensor.RawTensor) error {
		return saveGradients(run.OutputDir, archName, "deconvnet", targets, grads)
	}); err != nil {
		return err
	}

	// Guided gradients are kept per class rank for the Guided Grad-CAM
	// composition below.
	fmt.Println("Technique: guided")
	guided := attribution.NewGuidedBackPropagation(net, backend)
	guidedGrads := make([]*tensor.RawTensor, 0, topK)
	if _, err := runSaliency(guided, batch, topK, func(k int, targets []int, grads *tensor.RawTensor) error {
		guidedGrads = append(guidedGrads, grads)
		return saveGradients(run.OutputDir, archName, "guided", targets, grads)
	}); err != nil {
		return err
	}

	fmt.Println("Technique: gradcam")
	if err := runGradCAM(run, archName, targetLayer, net, backend, batch, raws, topK, mode, guidedGrads); err != nil {
		return err
	}

	if run.Occlusion.PatchSize > 0 {
		fmt.Println("Technique: occlusion sensitivity")
		if err := runOcclusion(run, archName, net, backend, batch.Raw(), ranking); err != nil {
			return err
		}
	}

	fmt.Printf("Done. Results in %s\n", run.OutputDir)
	return nil
}

func buildNetwork[B attribution.Backend](run config.Run, numClasses int, backend B) (*nn.Network[B], string, error) {
	if run.ModelPath != "" {
		net, header, err := zoo.Load(run.ModelPath, backend)
		if err != nil {
			return nil, "", err
		}
		return net, header.Architecture, nil
	}
	net, err := zoo.Build(run.Arch, numClasses, backend)
	if err != nil {
		return nil, "", err
	}
	return net, run.Arch, nil
}

// runSaliency drives one technique over every top-k class: forward once,
// then one backward and generate per class rank.
func runSaliency[B attribution.Backend](
	t technique[B],
	batch *tensor.Tensor[float32, B],
	topK int,
	save func(k int, targets []int, grads *tensor.RawTensor) error,
) (attribution.Ranking, error) {
	defer t.Cleanup()

	ranking, err := t.Forward(batch)
	if err != nil {
		return nil, err
	}
	for k := 0; k < topK && k < len(ranking[0]); k++ {
		targets := make([]int, len(ranking))
		for i := range ranking {
			targets[i] = ranking[i][k].ClassID
		}
		if err := t.Backward(targets); err != nil {
			return nil, err
		}
		grads, err := t.Generate()
		if err != nil {
			return nil, err
		}
		if err := save(k, targets, grads); err != nil {
			return nil, err
		}
	}
	return ranking, nil
}

func saveGradients(dir, arch, techniqueName string, targets []int, grads *tensor.RawTensor) error {
	for i := range targets {
		sample, err := render.ExtractSample(grads, i)
		if err != nil {
			return err
		}
		name := render.GradientName(dir, i, arch, techniqueName, targets[i])
		if err := render.SaveGradient(name, sample); err != nil {
			return err
		}
	}
	return nil
}

func runGradCAM[B attribution.Backend](
	run config.Run,
	archName, targetLayer string,
	net *nn.Network[B],
	backend B,
	batch *tensor.Tensor[float32, B],
	raws []*image.RGBA,
	topK int,
	mode render.BlendMode,
	guidedGrads []*tensor.RawTensor,
) error {
	cam, err := attribution.NewGradCAM(net, backend, targetLayer)
	if err != nil {
		return err
	}
	defer cam.Cleanup()

	ranking, err := cam.Forward(batch)
	if err != nil {
		return err
	}
	for k := 0; k < topK && k < len(ranking[0]); k++ {
		targets := make([]int, len(ranking))
		for i := range ranking {
			targets[i] = ranking[i][k].ClassID
		}
		if err := cam.Backward(targets); err != nil {
			return err
		}
		regions, err := cam.Generate()
		if err != nil {
			return err
		}
		for i := range targets {
			sample, err := render.ExtractSample(regions, i)
			if err != nil {
				return err
			}
			name := render.GradCAMName(run.OutputDir, i, archName, targetLayer, targets[i])
			if err := render.SaveGradCAM(name, raws[i], sample, mode); err != nil {
				return err
			}
		}

		// Guided Grad-CAM: regions gate the guided gradients, broadcast
		// [N,1,H,W] over [N,C,H,W].
		if k < len(guidedGrads) {
			product := backend.Mul(guidedGrads[k], regions)
			for i := range targets {
				sample, err := render.ExtractSample(product, i)
				if err != nil {
					return err
				}
				name := render.GuidedGradCAMName(run.OutputDir, i, archName, targetLayer, targets[i])
				if err := render.SaveGradient(name, sample); err != nil {
					return err
				}
			}
		}
	}

	acts, err := cam.ChannelVisualization()
	if err != nil {
		return err
	}
	for i := 0; i < len(raws); i++ {
		sample, err := render.ExtractSample(acts, i)
		if err != nil {
			return err
		}
		name := render.ChannelMapName(run.OutputDir, i, targetLayer)
		if err := render.SaveChannelGrid(name, sample, 0); err != nil {
			return err
		}
	}
	return nil
}

func runOcclusion[B attribution.Backend](
	run config.Run,
	archName string,
	net *nn.Network[B],
	backend B,
	batchRaw *tensor.RawTensor,
	ranking attribution.Ranking,
) error {
	shape := batchRaw.Shape()
	channels, height, width := shape[1], shape[2], shape[3]

	for i := range ranking {
		sample, err := render.ExtractSample(batchRaw, i)
		if err != nil {
			return err
		}
		single := backend.Reshape(sample, tensor.Shape{1, channels, height, width})
		img := tensor.New[float32, B](single, backend)

		classID := ranking[i][0].ClassID
		scoremap, err := attribution.OcclusionSensitivity(
			net, backend, img, classID, run.Occlusion.PatchSize, run.Occlusion.Stride)
		if err != nil {
			return err
		}
		name := render.SensitivityName(run.OutputDir, i, archName, classID)
		if err := render.SaveSensitivity(name, scoremap, width, height); err != nil {
			return err
		}
	}
	return nil
}
