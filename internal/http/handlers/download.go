package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"worker/internal/storage"
	"worker/internal/store"
	"worker/pkg/zip"
)

// GenerationDownload streams every asset of a completed generation as a zip
// archive. Inline data URIs are decoded in place; stored blobs are read back
// through the object store by their deterministic keys.
func (a *App) GenerationDownload(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	mediaType := chi.URLParam(r, "media_type")
	fileUID := chi.URLParam(r, "file_uid")
	if !validMediaType(mediaType) {
		a.error(w, http.StatusBadRequest, "bad_request", "media_type must be images or videos")
		return
	}
	if a.Reader == nil {
		a.error(w, http.StatusNotImplemented, "no_store", "no status store configured")
		return
	}

	doc, ok := a.Reader.Get(r.Context(), userID, fileUID, mediaType)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "generation not found")
		return
	}
	locators := collectLocators(doc)
	if len(locators) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "generation has no assets")
		return
	}

	var assets []zip.Asset
	for i, locator := range locators {
		name, payload := a.loadAsset(r, userID, fileUID, mediaType, locator, i, len(locators))
		if payload == nil {
			continue
		}
		assets = append(assets, zip.Asset{Filename: name, Data: payload})
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "assets are no longer available")
		return
	}

	archive := zip.ArchiveAssets(assets)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.zip", fileUID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// collectLocators pulls asset locators out of generation_data, tolerating the
// []any and map[string]any shapes JSON-backed stores return.
func collectLocators(doc store.Fields) []string {
	var data map[string]any
	switch t := doc["generation_data"].(type) {
	case store.Fields:
		data = t
	case map[string]any:
		data = t
	default:
		return nil
	}
	if v, ok := data["video_url"].(string); ok && v != "" {
		return []string{v}
	}
	switch urls := data["image_urls"].(type) {
	case []string:
		return urls
	case []any:
		out := make([]string, 0, len(urls))
		for _, u := range urls {
			if s, ok := u.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (a *App) loadAsset(r *http.Request, userID, fileUID, mediaType, locator string, index, total int) (string, []byte) {
	ext, contentType := ".png", "image/png"
	if mediaType == "videos" {
		ext, contentType = ".mp4", "video/mp4"
	}
	name := fileUID + ext
	if total > 1 {
		name = fmt.Sprintf("%s_%d%s", fileUID, index, ext)
	}

	if strings.HasPrefix(locator, "data:") {
		if _, b64, found := strings.Cut(locator, ","); found {
			payload, err := base64.StdEncoding.DecodeString(b64)
			if err == nil {
				return name, payload
			}
		}
		return name, nil
	}

	if a.Blobs == nil {
		return name, nil
	}
	uid := fileUID
	if total > 1 {
		uid = fmt.Sprintf("%s_%d", fileUID, index)
	}
	key := storage.BlobPath(userID, uid, contentType)
	payload, err := a.Blobs.Read(r.Context(), key)
	if err != nil {
		a.Logger.Warn().Err(err).Str("key", key).Msg("http: blob read failed")
		return name, nil
	}
	return name, payload
}
