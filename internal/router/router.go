package router

import (
	"net/http"

	"openkits-api/internal/handler"
	"openkits-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler         *handler.Handler
	KitHandler      *handler.KitHandler
	CooldownHandler *handler.CooldownHandler
	AuthMiddleware  func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// AUTHENTICATED routes (use Group to apply auth middleware only to these)
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		// API v1 routes
		r.Route("/api/v1", func(r chi.Router) {
			// Health check endpoints
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			// Kit endpoints
			if cfg.KitHandler != nil {
				r.Route("/kits", func(r chi.Router) {
					r.Post("/", cfg.KitHandler.CreateKit)
					r.Get("/", cfg.KitHandler.ListKits)
					r.Get("/find", cfg.KitHandler.FindKitByName)

					r.Route("/{kit_id}", func(r chi.Router) {
						r.Get("/", cfg.KitHandler.GetKit)
						r.Delete("/", cfg.KitHandler.DeleteKit)
						r.Patch("/name", cfg.KitHandler.UpdateKitName)
						r.Patch("/permission", cfg.KitHandler.UpdateKitPermission)
						r.Patch("/items", cfg.KitHandler.UpdateKitItems)
						r.Patch("/price", cfg.KitHandler.UpdateKitPrice)
						r.Patch("/cooldown", cfg.KitHandler.UpdateKitCooldown)
						r.Patch("/enable", cfg.KitHandler.UpdateKitEnabled)
						r.Patch("/icon", cfg.KitHandler.UpdateKitIcon)
						r.Patch("/one-time", cfg.KitHandler.UpdateKitOneTime)
						r.Post("/claim", cfg.KitHandler.ClaimKit)

						if cfg.CooldownHandler != nil {
							r.Delete("/cooldowns", cfg.CooldownHandler.DeleteKitCooldowns)
						}
					})
				})
			}

			// Cooldown ledger endpoints
			if cfg.CooldownHandler != nil {
				r.Route("/players/{player_id}/cooldowns", func(r chi.Router) {
					r.Get("/", cfg.CooldownHandler.ListCooldowns)
					r.Post("/", cfg.CooldownHandler.AddCooldown)
					r.Delete("/", cfg.CooldownHandler.DeleteCooldowns)

					r.Route("/{kit_id}", func(r chi.Router) {
						r.Get("/", cfg.CooldownHandler.GetCooldown)
						r.Put("/", cfg.CooldownHandler.UpdateCooldown)
						r.Delete("/", cfg.CooldownHandler.DeleteCooldown)
					})
				})
			}
		})
	})

	return r
}
