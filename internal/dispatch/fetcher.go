package dispatch

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
)

// HTTPImageFetcher downloads and decodes source images and masks referenced
// by URL in img2img and inpaint requests.
type HTTPImageFetcher struct {
	client *http.Client
}

// NewHTTPImageFetcher builds a fetcher; a nil client gets a 60s-timeout default.
func NewHTTPImageFetcher(client *http.Client) *HTTPImageFetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPImageFetcher{client: client}
}

func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image: unexpected status %d", resp.StatusCode)
	}
	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

var _ ImageFetcher = (*HTTPImageFetcher)(nil)
