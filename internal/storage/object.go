// Package storage persists generated media blobs and hands back locators.
package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// ObjectStore uploads a finished media blob and returns a public locator.
// Callers fall back to inline data URIs when an upload fails; that fallback
// is a degrade-gracefully policy, not an error path.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, contentType, userID, fileUID string) (string, error)
}

// DataURI renders bytes as an inline base64 locator with the given content type.
func DataURI(data []byte, contentType string) string {
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
}

// BlobPath renders the canonical upload path for one media blob:
// generating/{user_id}/{image|video}/{file_uid}.{png|mp4}.
func BlobPath(userID, fileUID, contentType string) string {
	kind, ext := "image", ".png"
	if strings.HasPrefix(contentType, "video/") {
		kind, ext = "video", ".mp4"
	}
	return fmt.Sprintf("generating/%s/%s/%s%s", userID, kind, fileUID, ext)
}
