package synth

import (
	"context"
	"hash/fnv"
	"image"
	"image/color"
)

// Stub renders deterministic synthetic rasters in place of real model
// inference. Output depends only on the spec, so tests and local runs are
// reproducible without the GPU host.
type Stub struct{}

// NewStub returns a Synthesizer that fabricates output deterministically.
func NewStub() *Stub {
	return &Stub{}
}

func (s *Stub) TextToImage(ctx context.Context, spec TextToImageSpec) ([]image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return renderBatch(spec.Prompt, spec.Seed, spec.Width, spec.Height, spec.NumImages), nil
}

func (s *Stub) ImageToImage(ctx context.Context, spec ImageToImageSpec) ([]image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := spec.Source.Bounds()
	return renderBatch(spec.Prompt, spec.Seed, bounds.Dx(), bounds.Dy(), spec.NumImages), nil
}

func (s *Stub) Inpaint(ctx context.Context, spec InpaintSpec) ([]image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return renderBatch(spec.Prompt, spec.Seed, spec.Width, spec.Height, spec.NumImages), nil
}

func (s *Stub) TextToVideo(ctx context.Context, spec TextToVideoSpec) ([]image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frames := make([]image.Image, spec.NumFrames)
	for i := range frames {
		frames[i] = renderRaster(spec.Prompt, spec.Seed+i, spec.Width, spec.Height)
	}
	return frames, nil
}

func renderBatch(prompt string, seed, width, height, count int) []image.Image {
	if count <= 0 {
		count = 1
	}
	out := make([]image.Image, count)
	for i := range out {
		out[i] = renderRaster(prompt, seed+i, width, height)
	}
	return out
}

// renderRaster fills a gradient whose palette is derived from the prompt and
// seed. Small rasters keep stub runs cheap; callers only inspect dimensions
// and bytes, never pixels.
func renderRaster(prompt string, seed, width, height int) image.Image {
	if width <= 0 {
		width = 64
	}
	if height <= 0 {
		height = 64
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	base := h.Sum32() ^ uint32(seed)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	r := uint8(base)
	g := uint8(base >> 8)
	b := uint8(base >> 16)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: r + uint8(x%17),
				G: g + uint8(y%23),
				B: b + uint8((x+y)%29),
				A: 0xff,
			})
		}
	}
	return img
}

var _ Synthesizer = (*Stub)(nil)
