// Package dispatch routes a validated request to the synthesis capability.
package dispatch

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog"

	"worker/internal/domain"
	"worker/internal/schema"
	"worker/internal/synth"
)

// defaultVideoNegativePrompt is substituted when a video request carries no
// negative prompt. The fixed wording discourages the artifacts the video
// model is most prone to.
const defaultVideoNegativePrompt = "Bright tones, overexposed, static, blurred details, subtitles, style, works, " +
	"paintings, images, static, overall gray, worst quality, low quality, JPEG compression residue, ugly, " +
	"incomplete, extra fingers, poorly drawn hands, poorly drawn faces, deformed, disfigured, misshapen limbs, " +
	"fused fingers, still picture, messy background, three legs, many people in the background, walking backwards"

// ImageFetcher resolves a source image URL into a decoded raster.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

// Dispatcher maps a validated request onto one of the four synthesis
// operations and normalizes its parameters. It holds no mutable state; the
// synthesis capability it wraps is injected at construction.
type Dispatcher struct {
	synth   synth.Synthesizer
	fetcher ImageFetcher
	logger  zerolog.Logger
}

// New builds a Dispatcher around the given capability and fetcher.
func New(s synth.Synthesizer, fetcher ImageFetcher, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{synth: s, fetcher: fetcher, logger: logger}
}

// Dispatch invokes the synthesis operation for the request's task type and
// returns the raster output. Synthesis failures propagate typed; nothing is
// swallowed here.
func (d *Dispatcher) Dispatch(ctx context.Context, req *schema.ValidatedRequest) (*domain.GenerationOutput, error) {
	seed := resolveSeed(req.Seed)

	switch req.Task {
	case domain.TaskTextToVideo:
		return d.textToVideo(ctx, req, seed)
	case domain.TaskInpaint:
		return d.inpaint(ctx, req, seed)
	case domain.TaskImageToImage:
		return d.imageToImage(ctx, req, seed)
	default:
		return d.textToImage(ctx, req, seed)
	}
}

func (d *Dispatcher) textToImage(ctx context.Context, req *schema.ValidatedRequest, seed int) (*domain.GenerationOutput, error) {
	spec := synth.TextToImageSpec{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          req.Width,
		Height:         req.Height,
		Steps:          req.NumInferenceSteps,
		RefinerSteps:   req.RefinerInferenceSteps,
		GuidanceScale:  req.GuidanceScale,
		DenoiseSplit:   req.HighNoiseFrac,
		Strength:       req.Strength,
		Scheduler:      req.Scheduler,
		NumImages:      req.NumImages,
		Seed:           seed,
	}
	d.logger.Debug().Int("seed", seed).Int("steps", spec.Steps).Msg("dispatch: text2img base+refine")
	frames, err := d.synth.TextToImage(ctx, spec)
	if err != nil {
		return nil, typed("text2img", err)
	}
	return &domain.GenerationOutput{
		Frames: frames,
		Seed:   seed,
		Width:  req.Width,
		Height: req.Height,
	}, nil
}

func (d *Dispatcher) imageToImage(ctx context.Context, req *schema.ValidatedRequest, seed int) (*domain.GenerationOutput, error) {
	source, err := d.fetchSource(ctx, req.ImageURL)
	if err != nil {
		return nil, err
	}
	spec := synth.ImageToImageSpec{
		Prompt:       req.Prompt,
		Source:       source,
		Strength:     req.Strength,
		RefinerSteps: req.RefinerInferenceSteps,
		Scheduler:    req.Scheduler,
		NumImages:    req.NumImages,
		Seed:         seed,
	}
	d.logger.Debug().Int("seed", seed).Float64("strength", spec.Strength).Msg("dispatch: img2img refine")
	frames, err := d.synth.ImageToImage(ctx, spec)
	if err != nil {
		return nil, typed("img2img", err)
	}
	bounds := source.Bounds()
	return &domain.GenerationOutput{
		Frames:        frames,
		Seed:          seed,
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		RefreshWorker: true,
	}, nil
}

func (d *Dispatcher) inpaint(ctx context.Context, req *schema.ValidatedRequest, seed int) (*domain.GenerationOutput, error) {
	source, err := d.fetchSource(ctx, req.ImageURL)
	if err != nil {
		return nil, err
	}
	mask, err := d.fetchSource(ctx, req.MaskURL)
	if err != nil {
		return nil, err
	}
	spec := synth.InpaintSpec{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Source:         source,
		Mask:           mask,
		Width:          req.Width,
		Height:         req.Height,
		Steps:          req.NumInferenceSteps,
		GuidanceScale:  req.GuidanceScale,
		Scheduler:      req.Scheduler,
		NumImages:      req.NumImages,
		Seed:           seed,
	}
	d.logger.Debug().Int("seed", seed).Msg("dispatch: inpaint")
	frames, err := d.synth.Inpaint(ctx, spec)
	if err != nil {
		return nil, typed("inpaint", err)
	}
	return &domain.GenerationOutput{
		Frames:        frames,
		Seed:          seed,
		Width:         req.Width,
		Height:        req.Height,
		RefreshWorker: true,
	}, nil
}

func (d *Dispatcher) textToVideo(ctx context.Context, req *schema.ValidatedRequest, seed int) (*domain.GenerationOutput, error) {
	height, width := PairVideoResolution(req.VideoHeight, req.VideoWidth)
	if width != req.VideoWidth || height != req.VideoHeight {
		d.logger.Warn().
			Int("requested_width", req.VideoWidth).
			Int("requested_height", req.VideoHeight).
			Int("width", width).
			Int("height", height).
			Msg("dispatch: corrected unsupported video resolution pair")
	}
	negative := req.NegativePrompt
	if negative == "" {
		negative = defaultVideoNegativePrompt
	}
	spec := synth.TextToVideoSpec{
		Prompt:         req.Prompt,
		NegativePrompt: negative,
		Width:          width,
		Height:         height,
		NumFrames:      req.NumFrames,
		GuidanceScale:  req.VideoGuidanceScale,
		Seed:           seed,
	}
	d.logger.Debug().Int("seed", seed).Int("num_frames", spec.NumFrames).Msg("dispatch: text2video")
	frames, err := d.synth.TextToVideo(ctx, spec)
	if err != nil {
		return nil, typed("text2video", err)
	}
	return &domain.GenerationOutput{
		Frames:     frames,
		Seed:       seed,
		Width:      width,
		Height:     height,
		FrameCount: req.NumFrames,
		FPS:        req.FPS,
	}, nil
}

func (d *Dispatcher) fetchSource(ctx context.Context, url string) (image.Image, error) {
	if d.fetcher == nil {
		return nil, &domain.SynthesisError{Stage: "fetch", Cause: errors.New("no image fetcher configured")}
	}
	img, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, &domain.SynthesisError{Stage: "fetch", Cause: fmt.Errorf("load %s: %w", url, err)}
	}
	return img, nil
}

// PairVideoResolution enforces the supported height/width combinations:
// width follows height, 480p pairs with 832 and 720p with 1280. Violating
// combinations are corrected, not rejected.
func PairVideoResolution(height, width int) (int, int) {
	switch height {
	case 720:
		return 720, 1280
	default:
		return 480, 832
	}
}

// resolveSeed keeps the caller's seed when given and otherwise draws one
// from two random bytes, echoing the original worker's range of 0..65535.
func resolveSeed(seed *int) int {
	if seed != nil {
		return *seed
	}
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return int(binary.BigEndian.Uint16(buf[:]))
}

// typed keeps already-typed synthesis failures intact and wraps everything
// else as a generic SynthesisError for the given stage.
func typed(stage string, err error) error {
	var (
		oom *domain.OutOfResourcesError
		gen *domain.SynthesisError
	)
	if errors.As(err, &oom) || errors.As(err, &gen) {
		return err
	}
	return &domain.SynthesisError{Stage: stage, Cause: err}
}
