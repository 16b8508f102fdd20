package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/settingskit/settingskit/internal/api/handlers"
	"github.com/settingskit/settingskit/internal/config"
	"github.com/settingskit/settingskit/internal/settings"
)

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(svc *settings.Service, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(RequestLogger)
	r.Use(Recovery)
	r.Use(CORS)

	// API sub-router. Static segments win over the {key} wildcard, so the
	// categories and flush-cache routes cannot be shadowed by setting keys.
	r.Route("/api/settings", func(api chi.Router) {
		api.Use(TokenAuth(cfg.Server.APIToken, cfg.Server.DisableAuth))

		api.Get("/", handlers.ListSettings(svc))
		api.Get("/categories", handlers.ListCategories(svc))
		api.Post("/flush-cache", handlers.FlushCache(svc))

		api.Get("/{key}", handlers.GetSetting(svc))
		api.Put("/{key}", handlers.PutSetting(svc))
		api.Delete("/{key}", handlers.DeleteSetting(svc))
		api.Post("/{key}/translations", handlers.AddTranslations(svc))
	})

	return r
}
