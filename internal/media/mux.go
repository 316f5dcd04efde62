package media

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// VideoMuxer packs raster frames into a single video container at a given
// frame rate. Container writing itself is delegated; the worker only hands
// frames over.
type VideoMuxer interface {
	Mux(ctx context.Context, frames []image.Image, fps int) ([]byte, error)
}

// FFmpegMuxer shells out to ffmpeg to mux PNG frames into an H.264 mp4.
type FFmpegMuxer struct {
	// Binary overrides the ffmpeg executable; empty means "ffmpeg" on PATH.
	Binary string
}

// NewFFmpegMuxer returns a muxer using ffmpeg from PATH.
func NewFFmpegMuxer() *FFmpegMuxer {
	return &FFmpegMuxer{}
}

func (m *FFmpegMuxer) Mux(ctx context.Context, frames []image.Image, fps int) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("mux: no frames")
	}
	if fps <= 0 {
		fps = 15
	}
	binary := m.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("mux: ffmpeg not found: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "mux-frames")
	if err != nil {
		return nil, fmt.Errorf("mux: temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	for i, frame := range frames {
		framePath := filepath.Join(tempDir, fmt.Sprintf("frame_%05d.png", i))
		if err := imaging.Save(frame, framePath); err != nil {
			return nil, fmt.Errorf("mux: write frame %d: %w", i, err)
		}
	}

	outPath := filepath.Join(tempDir, "out.mp4")
	cmd := exec.CommandContext(ctx, binary,
		"-y",
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", filepath.Join(tempDir, "frame_%05d.png"),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		outPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("mux: ffmpeg: %w: %s", err, truncate(output, 512))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("mux: read output: %w", err)
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ VideoMuxer = (*FFmpegMuxer)(nil)
