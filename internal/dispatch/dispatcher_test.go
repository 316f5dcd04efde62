package dispatch

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worker/internal/domain"
	"worker/internal/schema"
	"worker/internal/synth"
)

// recordingSynth captures the spec of the last call per operation so tests
// can assert parameter normalization.
type recordingSynth struct {
	t2i  *synth.TextToImageSpec
	i2i  *synth.ImageToImageSpec
	inp  *synth.InpaintSpec
	t2v  *synth.TextToVideoSpec
	fail error
	stub synth.Stub
}

func (r *recordingSynth) TextToImage(ctx context.Context, spec synth.TextToImageSpec) ([]image.Image, error) {
	r.t2i = &spec
	if r.fail != nil {
		return nil, r.fail
	}
	return r.stub.TextToImage(ctx, spec)
}

func (r *recordingSynth) ImageToImage(ctx context.Context, spec synth.ImageToImageSpec) ([]image.Image, error) {
	r.i2i = &spec
	if r.fail != nil {
		return nil, r.fail
	}
	return r.stub.ImageToImage(ctx, spec)
}

func (r *recordingSynth) Inpaint(ctx context.Context, spec synth.InpaintSpec) ([]image.Image, error) {
	r.inp = &spec
	if r.fail != nil {
		return nil, r.fail
	}
	return r.stub.Inpaint(ctx, spec)
}

func (r *recordingSynth) TextToVideo(ctx context.Context, spec synth.TextToVideoSpec) ([]image.Image, error) {
	r.t2v = &spec
	if r.fail != nil {
		return nil, r.fail
	}
	return r.stub.TextToVideo(ctx, spec)
}

type staticFetcher struct{}

func (staticFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 64, 48)), nil
}

func validated(t *testing.T, raw map[string]any) *schema.ValidatedRequest {
	t.Helper()
	task := domain.Classify(raw)
	req, err := schema.Validate(raw, task)
	require.NoError(t, err)
	return req
}

func TestDispatchTextToImageTwoStageSpec(t *testing.T) {
	rec := &recordingSynth{}
	d := New(rec, staticFetcher{}, zerolog.Nop())

	req := validated(t, map[string]any{
		"prompt": "a red car",
		"width":  512,
		"height": 512,
		"seed":   7,
	})
	out, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, rec.t2i)

	assert.Equal(t, 25, rec.t2i.Steps)
	assert.Equal(t, 50, rec.t2i.RefinerSteps)
	assert.Equal(t, 7.5, rec.t2i.GuidanceScale)
	assert.Equal(t, "DDIM", rec.t2i.Scheduler)
	assert.Nil(t, rec.t2i.DenoiseSplit)
	assert.Equal(t, 7, rec.t2i.Seed)

	assert.Len(t, out.Frames, 1)
	assert.Equal(t, 7, out.Seed)
	assert.False(t, out.RefreshWorker)
}

func TestDispatchResolvesRandomSeedInRange(t *testing.T) {
	rec := &recordingSynth{}
	d := New(rec, staticFetcher{}, zerolog.Nop())

	req := validated(t, map[string]any{"prompt": "a red car"})
	out, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.Seed, 0)
	assert.LessOrEqual(t, out.Seed, 65535)
	assert.Equal(t, out.Seed, rec.t2i.Seed)
}

func TestDispatchImageToImageSetsRefreshWorker(t *testing.T) {
	rec := &recordingSynth{}
	d := New(rec, staticFetcher{}, zerolog.Nop())

	req := validated(t, map[string]any{
		"prompt":    "make it watercolor",
		"image_url": "https://example.com/a.png",
		"strength":  0.5,
	})
	out, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, rec.i2i)
	assert.Equal(t, 0.5, rec.i2i.Strength)
	assert.NotNil(t, rec.i2i.Source)
	assert.True(t, out.RefreshWorker)
}

func TestDispatchInpaintFetchesSourceAndMask(t *testing.T) {
	rec := &recordingSynth{}
	d := New(rec, staticFetcher{}, zerolog.Nop())

	req := validated(t, map[string]any{
		"prompt":    "restore the sky",
		"image_url": "https://example.com/a.png",
		"mask_url":  "https://example.com/m.png",
	})
	out, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, rec.inp)
	assert.NotNil(t, rec.inp.Source)
	assert.NotNil(t, rec.inp.Mask)
	assert.True(t, out.RefreshWorker)
}

func TestDispatchVideoResolutionPairing(t *testing.T) {
	tests := []struct {
		name       string
		height     int
		width      int
		wantWidth  int
		wantHeight int
	}{
		{name: "720 pairs with 1280", height: 720, width: 832, wantWidth: 1280, wantHeight: 720},
		{name: "480 pairs with 832", height: 480, width: 1280, wantWidth: 832, wantHeight: 480},
		{name: "matched pair untouched", height: 720, width: 1280, wantWidth: 1280, wantHeight: 720},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingSynth{}
			d := New(rec, staticFetcher{}, zerolog.Nop())
			req := validated(t, map[string]any{
				"prompt":       "a cat walking",
				"num_frames":   49,
				"video_height": tt.height,
				"video_width":  tt.width,
			})
			out, err := d.Dispatch(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWidth, rec.t2v.Width)
			assert.Equal(t, tt.wantHeight, rec.t2v.Height)
			assert.Equal(t, tt.wantWidth, out.Width)
		})
	}
}

func TestDispatchVideoDefaultNegativePrompt(t *testing.T) {
	rec := &recordingSynth{}
	d := New(rec, staticFetcher{}, zerolog.Nop())

	req := validated(t, map[string]any{"prompt": "a cat walking", "num_frames": 49})
	out, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, defaultVideoNegativePrompt, rec.t2v.NegativePrompt)
	assert.Len(t, out.Frames, 49)
	assert.Equal(t, 15, out.FPS)
	assert.InDelta(t, 3.27, out.DurationSeconds(), 0.01)
}

func TestDispatchVideoKeepsCallerNegativePrompt(t *testing.T) {
	rec := &recordingSynth{}
	d := New(rec, staticFetcher{}, zerolog.Nop())

	req := validated(t, map[string]any{
		"prompt":          "a cat walking",
		"negative_prompt": "blurry",
		"num_frames":      16,
	})
	_, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "blurry", rec.t2v.NegativePrompt)
}

func TestDispatchPropagatesTypedErrors(t *testing.T) {
	oom := &domain.OutOfResourcesError{Cause: errors.New("CUDA out of memory")}
	rec := &recordingSynth{fail: oom}
	d := New(rec, staticFetcher{}, zerolog.Nop())

	req := validated(t, map[string]any{"prompt": "a red car"})
	_, err := d.Dispatch(context.Background(), req)
	require.Error(t, err)

	var got *domain.OutOfResourcesError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, "OutOfResourcesError", domain.ErrorKind(err))
}

func TestDispatchWrapsUntypedErrors(t *testing.T) {
	rec := &recordingSynth{fail: errors.New("weights corrupted")}
	d := New(rec, staticFetcher{}, zerolog.Nop())

	req := validated(t, map[string]any{"prompt": "a red car"})
	_, err := d.Dispatch(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, "SynthesisError", domain.ErrorKind(err))
}
