package domain

import "image"

// GenerationOutput carries synthesized media back to the lifecycle. For image
// tasks Frames holds one raster per generated image; for video tasks it holds
// one raster per frame in playback order.
type GenerationOutput struct {
	Frames []image.Image
	Seed   int
	Width  int
	Height int

	// Video metadata; zero for image tasks.
	FrameCount int
	FPS        int

	// RefreshWorker signals that the run consumed a source image and the
	// worker should be recycled, mirroring the upstream response contract.
	RefreshWorker bool
}

// DurationSeconds reports the playback length for video outputs.
func (o *GenerationOutput) DurationSeconds() float64 {
	if o == nil || o.FPS <= 0 || o.FrameCount <= 0 {
		return 0
	}
	return float64(o.FrameCount) / float64(o.FPS)
}
