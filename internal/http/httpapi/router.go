package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"worker/internal/http/handlers"
	"worker/internal/middleware"
)

// NewRouter builds the chi router. staticDir, when non-empty, is served under
// /static/ so locally stored media locators resolve.
func NewRouter(app *handlers.App, staticDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
	)

	r.Get("/healthz", app.Health)
	r.Get("/v1/healthz", app.Health)

	r.Post("/run", app.Run)

	r.Route("/generations", func(r chi.Router) {
		r.Get("/{user_id}/{media_type}/{file_uid}", app.GenerationStatus)
		r.Get("/{user_id}/{media_type}/{file_uid}/download", app.GenerationDownload)
	})

	if staticDir != "" {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir)))
		r.Get("/static/*", fileServer.ServeHTTP)
	}

	return r
}
