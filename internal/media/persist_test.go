package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worker/internal/domain"
	"worker/internal/storage"
	"worker/internal/store"
)

type fakeObjects struct {
	uploads  []string
	failUIDs map[string]bool
	failAll  bool
}

func (f *fakeObjects) Upload(ctx context.Context, data []byte, contentType, userID, fileUID string) (string, error) {
	if f.failAll || f.failUIDs[fileUID] {
		return "", errors.New("bucket unreachable")
	}
	locator := "https://cdn.example.com/" + storage.BlobPath(userID, fileUID, contentType)
	f.uploads = append(f.uploads, locator)
	return locator, nil
}

type fakeMuxer struct {
	fail bool
}

func (f fakeMuxer) Mux(ctx context.Context, frames []image.Image, fps int) ([]byte, error) {
	if f.fail {
		return nil, errors.New("ffmpeg exploded")
	}
	return []byte(fmt.Sprintf("mp4:%d@%d", len(frames), fps)), nil
}

func frames(n int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		out[i] = image.NewRGBA(image.Rect(0, 0, 8, 8))
	}
	return out
}

func imageJob() domain.Job {
	return domain.Job{ID: "job-1", UserID: "u1", FileUID: "f1", Type: domain.TaskTextToImage}
}

func videoJob() domain.Job {
	return domain.Job{ID: "job-2", UserID: "u1", FileUID: "f2", Type: domain.TaskTextToVideo}
}

func TestPersistImagesSingle(t *testing.T) {
	objects := &fakeObjects{}
	status := store.NewMemoryStore()
	p := NewPersister(objects, status, fakeMuxer{}, zerolog.Nop())

	locators, err := p.PersistImages(context.Background(), imageJob(), &domain.GenerationOutput{Frames: frames(1)})
	require.NoError(t, err)
	require.Len(t, locators, 1)
	assert.Equal(t, "https://cdn.example.com/generating/u1/image/f1.png", locators[0])

	doc, ok := status.Get(context.Background(), "u1", "f1", domain.MediaTypeImages)
	require.True(t, ok)
	assert.Equal(t, true, doc["generated"])
}

func TestPersistImagesIndexSuffixForMultiImage(t *testing.T) {
	objects := &fakeObjects{}
	p := NewPersister(objects, store.NewMemoryStore(), fakeMuxer{}, zerolog.Nop())

	locators, err := p.PersistImages(context.Background(), imageJob(), &domain.GenerationOutput{Frames: frames(3)})
	require.NoError(t, err)
	require.Len(t, locators, 3)
	assert.Contains(t, locators[0], "f1_0.png")
	assert.Contains(t, locators[1], "f1_1.png")
	assert.Contains(t, locators[2], "f1_2.png")
}

func TestPersistImagesPerItemFallback(t *testing.T) {
	objects := &fakeObjects{failUIDs: map[string]bool{"f1_1": true}}
	status := store.NewMemoryStore()
	p := NewPersister(objects, status, fakeMuxer{}, zerolog.Nop())

	locators, err := p.PersistImages(context.Background(), imageJob(), &domain.GenerationOutput{Frames: frames(3)})
	require.NoError(t, err)
	require.Len(t, locators, 3)

	assert.Contains(t, locators[0], "f1_0.png")
	assert.True(t, strings.HasPrefix(locators[1], "data:image/png;base64,"))
	assert.Greater(t, len(locators[1]), len("data:image/png;base64,"))
	assert.Contains(t, locators[2], "f1_2.png")

	// the failed item carries its own failed record while the job continues
	doc, ok := status.Get(context.Background(), "u1", "f1_1", domain.MediaTypeImages)
	require.True(t, ok)
	assert.Equal(t, string(domain.JobStatusFailed), doc["status"])
	assert.Equal(t, "PersistenceError", doc["error_type"])
}

func TestPersistImagesInlineWhenNoObjectStore(t *testing.T) {
	status := store.NewMemoryStore()
	p := NewPersister(nil, status, fakeMuxer{}, zerolog.Nop())

	locators, err := p.PersistImages(context.Background(), imageJob(), &domain.GenerationOutput{Frames: frames(1)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(locators[0], "data:image/png;base64,"))

	// no failed record: inline is the expected mode without a bucket
	_, ok := status.Get(context.Background(), "u1", "f1", domain.MediaTypeImages)
	assert.False(t, ok)
}

func TestPersistVideoSingleBlob(t *testing.T) {
	objects := &fakeObjects{}
	status := store.NewMemoryStore()
	p := NewPersister(objects, status, fakeMuxer{}, zerolog.Nop())

	out := &domain.GenerationOutput{Frames: frames(49), FrameCount: 49, FPS: 15}
	locator, err := p.PersistVideo(context.Background(), videoJob(), out)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/generating/u1/video/f2.mp4", locator)

	doc, ok := status.Get(context.Background(), "u1", "f2", domain.MediaTypeVideos)
	require.True(t, ok)
	assert.Equal(t, true, doc["generated"])
}

func TestPersistVideoUploadFallback(t *testing.T) {
	objects := &fakeObjects{failAll: true}
	status := store.NewMemoryStore()
	p := NewPersister(objects, status, fakeMuxer{}, zerolog.Nop())

	out := &domain.GenerationOutput{Frames: frames(16), FrameCount: 16, FPS: 15}
	locator, err := p.PersistVideo(context.Background(), videoJob(), out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(locator, "data:video/mp4;base64,"))

	doc, ok := status.Get(context.Background(), "u1", "f2", domain.MediaTypeVideos)
	require.True(t, ok)
	assert.Equal(t, "PersistenceError", doc["error_type"])
}

func TestPersistVideoMuxFailureEscalates(t *testing.T) {
	p := NewPersister(&fakeObjects{}, store.NewMemoryStore(), fakeMuxer{fail: true}, zerolog.Nop())

	out := &domain.GenerationOutput{Frames: frames(16), FrameCount: 16, FPS: 15}
	_, err := p.PersistVideo(context.Background(), videoJob(), out)
	require.Error(t, err)

	var perr *domain.PersistenceError
	require.True(t, errors.As(err, &perr))
}
