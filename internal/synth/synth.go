// Package synth defines the contract for the external media synthesis
// capability the worker delegates to. The real capability wraps pretrained
// SDXL and text-to-video pipelines on a GPU host; this package only owns the
// request/response shapes and a deterministic stand-in implementation.
package synth

import (
	"context"
	"image"
)

// TextToImageSpec describes the two-stage base+refine call. The base stage
// renders to latents up to DenoiseSplit, the refiner finishes from there.
type TextToImageSpec struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Steps          int
	RefinerSteps   int
	GuidanceScale  float64
	DenoiseSplit   *float64 // nil lets the capability pick its own split
	Strength       float64
	Scheduler      string
	NumImages      int
	Seed           int
}

// ImageToImageSpec describes a single refine-stage call over a source image.
type ImageToImageSpec struct {
	Prompt       string
	Source       image.Image
	Strength     float64
	RefinerSteps int
	Scheduler    string
	NumImages    int
	Seed         int
}

// InpaintSpec describes a single inpaint-stage call over a source and mask.
type InpaintSpec struct {
	Prompt         string
	NegativePrompt string
	Source         image.Image
	Mask           image.Image
	Width          int
	Height         int
	Steps          int
	GuidanceScale  float64
	Scheduler      string
	NumImages      int
	Seed           int
}

// TextToVideoSpec describes a single video synthesis call. Width and Height
// are expected to already be a supported pair.
type TextToVideoSpec struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	NumFrames      int
	GuidanceScale  float64
	Seed           int
}

// Synthesizer is the opaque media synthesis capability. Implementations may
// hold a process-wide singleton of loaded models; access is not serialized
// here. Calls block until generation finishes or ctx is done. Failures are
// reported as domain.OutOfResourcesError or domain.SynthesisError.
type Synthesizer interface {
	TextToImage(ctx context.Context, spec TextToImageSpec) ([]image.Image, error)
	ImageToImage(ctx context.Context, spec ImageToImageSpec) ([]image.Image, error)
	Inpaint(ctx context.Context, spec InpaintSpec) ([]image.Image, error)
	TextToVideo(ctx context.Context, spec TextToVideoSpec) ([]image.Image, error)
}
