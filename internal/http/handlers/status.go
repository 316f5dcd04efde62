package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func validMediaType(mt string) bool {
	return mt == "images" || mt == "videos"
}

// GenerationStatus returns the status document for one generation.
func (a *App) GenerationStatus(w http.ResponseWriter, r *http.Request) {
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
	a.json(w, http.StatusOK, doc)
}
