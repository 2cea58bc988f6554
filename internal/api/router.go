package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			r.Get("/self", apiHandler.SelfHandler)
			r.Get("/load-niceties", apiHandler.LoadNicetiesHandler)
			r.Get("/show-niceties", apiHandler.ShowNicetiesHandler)
			r.Post("/post-niceties", apiHandler.PostNicetiesHandler)
			r.Get("/faculty", apiHandler.FacultyHandler)
			r.Get("/people2", apiHandler.DisplayPeopleHandler)
			r.Get("/people/{personID}", apiHandler.PersonHandler)

			// Admin-only review routes
			r.Get("/all-niceties", apiHandler.AllNicetiesHandler)
			r.Post("/all-niceties", apiHandler.OverwriteNicetyHandler)

			// Faculty-only settings routes
			r.Get("/site_settings", apiHandler.GetSiteSettingsHandler)
			r.Post("/site_settings", apiHandler.SetSiteSettingsHandler)
		})
	})

	return r
}
