package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// BucketStore uploads blobs to an S3-compatible bucket endpoint with plain
// HTTP PUTs. The endpoint is expected to handle auth itself (presigned
// gateway or sidecar); this worker only moves bytes.
type BucketStore struct {
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

// NewBucketStore builds a store targeting the given endpoint URL.
func NewBucketStore(endpoint string, client *http.Client, logger zerolog.Logger) (*BucketStore, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("storage: bucket endpoint is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &BucketStore{endpoint: endpoint, client: client, logger: logger}, nil
}

// Upload PUTs the blob under its canonical path and returns the resulting URL.
func (s *BucketStore) Upload(ctx context.Context, data []byte, contentType, userID, fileUID string) (string, error) {
	target := s.endpoint + "/" + BlobPath(userID, fileUID, contentType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("storage: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: upload: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("storage: upload: unexpected status %d", resp.StatusCode)
	}

	s.logger.Debug().Str("target", target).Int("bytes", len(data)).Msg("storage: uploaded blob")
	return target, nil
}

var _ ObjectStore = (*BucketStore)(nil)
