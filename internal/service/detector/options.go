package detector

import (
	"path/filepath"
	"time"

	"github.com/oshokin/home-security/internal/config"
)

// Options configures the worker invocation.
type Options struct {
	// Interpreter runs Script; when empty Script is executed directly.
	Interpreter string
	// Script is the detection program.
	Script string
	// ModelDir holds the model assets.
	ModelDir string
	// ConfidenceThreshold is passed to the worker verbatim.
	ConfidenceThreshold string
	// NMSThreshold is the non-maxima-suppression threshold passed verbatim.
	NMSThreshold string
	// CaptureDir receives the per-attempt input images.
	CaptureDir string
	// CaptureBaseName prefixes the input image names.
	CaptureBaseName string
	// OutputDir receives the annotated image.
	OutputDir string
	// OutputBaseName is the annotated image name without extension.
	OutputBaseName string
	// MaxWorkers bounds concurrent workers; values below 1 mean 1.
	MaxWorkers int64
	// WorkerTimeout kills workers that run longer; zero waits indefinitely.
	WorkerTimeout time.Duration
}

// imageExtension is appended to every artifact exchanged with the worker.
const imageExtension = ".jpeg"

// OptionsFromConfig maps validated settings onto Options.
func OptionsFromConfig(cfg config.DetectorConfig) Options {
	return Options{
		Interpreter:         cfg.Interpreter,
		Script:              cfg.Script,
		ModelDir:            cfg.ModelDir,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		NMSThreshold:        cfg.NMSThreshold,
		CaptureDir:          cfg.CaptureDir,
		CaptureBaseName:     cfg.CaptureBaseName,
		OutputDir:           cfg.OutputDir,
		OutputBaseName:      cfg.OutputBaseName,
		MaxWorkers:          cfg.MaxWorkers,
		WorkerTimeout:       cfg.WorkerTimeout,
	}
}

// command returns the executable and its arguments for the given input image.
// The worker argv order is fixed:
// script, input image, model dir, confidence, nms, output dir, output base name.
func (o *Options) command(inputPath string) (string, []string) {
	args := []string{
		inputPath,
		o.ModelDir,
		o.ConfidenceThreshold,
		o.NMSThreshold,
		o.OutputDir,
		o.OutputBaseName,
	}

	if o.Interpreter == "" {
		return o.Script, args
	}

	return o.Interpreter, append([]string{o.Script}, args...)
}

// annotatedImagePath is where the worker writes its annotated output.
func (o *Options) annotatedImagePath() string {
	return filepath.Join(o.OutputDir, o.OutputBaseName+imageExtension)
}
