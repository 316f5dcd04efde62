// Package media turns synthesis output into stored blobs and locators.
package media

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"worker/internal/domain"
	"worker/internal/storage"
	"worker/internal/store"
)

const (
	contentTypePNG = "image/png"
	contentTypeMP4 = "video/mp4"
)

// Persister stores generation output. Uploads that fail degrade to inline
// base64 data URIs rather than failing the job; only a failure with no bytes
// to fall back on escalates.
type Persister struct {
	objects storage.ObjectStore
	status  store.StatusStore
	muxer   VideoMuxer
	logger  zerolog.Logger
}

// NewPersister wires a persister. objects may be nil, in which case every
// locator is inline. status must not be nil; use a MemoryStore when no
// external store is configured.
func NewPersister(objects storage.ObjectStore, status store.StatusStore, muxer VideoMuxer, logger zerolog.Logger) *Persister {
	return &Persister{objects: objects, status: status, muxer: muxer, logger: logger}
}

// PersistImages encodes and stores every frame individually. Multi-image
// outputs get an index suffix on the file identifier. A per-item upload
// failure records a failed status for that item and substitutes a data URI;
// the remaining items keep processing.
func (p *Persister) PersistImages(ctx context.Context, job domain.Job, out *domain.GenerationOutput) ([]string, error) {
	locators := make([]string, 0, len(out.Frames))
	for idx, frame := range out.Frames {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, frame, imaging.PNG); err != nil {
			return nil, &domain.PersistenceError{Cause: fmt.Errorf("encode image %d: %w", idx, err)}
		}
		data := buf.Bytes()

		fileUID := job.FileUID
		if len(out.Frames) > 1 {
			fileUID = fmt.Sprintf("%s_%d", job.FileUID, idx)
		}

		if p.objects == nil {
			locators = append(locators, storage.DataURI(data, contentTypePNG))
			continue
		}

		locator, err := p.objects.Upload(ctx, data, contentTypePNG, job.UserID, fileUID)
		if err != nil {
			p.logger.Warn().Err(err).
				Str("job_id", job.ID).
				Str("file_uid", fileUID).
				Msg("media: image upload failed, falling back to inline encoding")
			p.status.UpdateStatus(ctx, job.UserID, fileUID, domain.MediaTypeImages, store.Fields{
				"status":        string(domain.JobStatusFailed),
				"generated":     false,
				"error":         true,
				"error_message": err.Error(),
				"error_type":    "PersistenceError",
				"failed_at":     time.Now().UTC(),
			})
			locators = append(locators, storage.DataURI(data, contentTypePNG))
			continue
		}
		p.status.MarkReady(ctx, job.UserID, fileUID, domain.MediaTypeImages)
		locators = append(locators, locator)
	}
	return locators, nil
}

// PersistVideo muxes all frames into one container at the requested frame
// rate and stores it as a single blob. A mux failure leaves nothing to fall
// back on and escalates as a PersistenceError.
func (p *Persister) PersistVideo(ctx context.Context, job domain.Job, out *domain.GenerationOutput) (string, error) {
	if p.muxer == nil {
		return "", &domain.PersistenceError{Cause: fmt.Errorf("no video muxer configured")}
	}
	data, err := p.muxer.Mux(ctx, out.Frames, out.FPS)
	if err != nil {
		return "", &domain.PersistenceError{Cause: fmt.Errorf("mux %d frames: %w", len(out.Frames), err)}
	}

	if p.objects == nil {
		return storage.DataURI(data, contentTypeMP4), nil
	}

	locator, err := p.objects.Upload(ctx, data, contentTypeMP4, job.UserID, job.FileUID)
	if err != nil {
		p.logger.Warn().Err(err).
			Str("job_id", job.ID).
			Str("file_uid", job.FileUID).
			Msg("media: video upload failed, falling back to inline encoding")
		p.status.UpdateStatus(ctx, job.UserID, job.FileUID, domain.MediaTypeVideos, store.Fields{
			"status":        string(domain.JobStatusFailed),
			"generated":     false,
			"error":         true,
			"error_message": err.Error(),
			"error_type":    "PersistenceError",
			"failed_at":     time.Now().UTC(),
		})
		return storage.DataURI(data, contentTypeMP4), nil
	}
	p.status.MarkReady(ctx, job.UserID, job.FileUID, domain.MediaTypeVideos)
	return locator, nil
}
