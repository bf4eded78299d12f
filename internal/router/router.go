package router

import (
	"net/http"

	"victor-smm-api/internal/handler"
	"victor-smm-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler             *handler.Handler
	AuthHandler         *handler.AuthHandler
	MarketplaceHandler  *handler.MarketplaceHandler
	AccountHandler      *handler.AccountHandler
	AdminHandler        *handler.AdminHandler
	NotificationHandler *handler.NotificationHandler
	SessionMiddleware   func(http.Handler) http.Handler
	Logger              *zap.Logger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Session-Token"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.SessionMiddleware != nil {
		r.Use(cfg.SessionMiddleware)
	}

	// Unified status endpoint for uptime monitors
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		// PUBLIC routes (no session required)
		if cfg.AuthHandler != nil {
			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", cfg.AuthHandler.Login)
				r.Post("/signup", cfg.AuthHandler.SignUp)
				r.Get("/me", cfg.AuthHandler.Me)
				r.Post("/admin/login", cfg.AuthHandler.AdminLogin)
				r.Post("/admin/logout", cfg.AuthHandler.AdminLogout)
				r.Post("/logout", cfg.AuthHandler.Logout)
			})
		}

		if cfg.MarketplaceHandler != nil {
			r.Route("/marketplace", func(r chi.Router) {
				r.Get("/", cfg.MarketplaceHandler.List)
				r.Get("/filters", cfg.MarketplaceHandler.Filters)

				// Purchasing needs a logged-in session
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSession)
					r.Post("/listings/{id}/purchase", cfg.MarketplaceHandler.Purchase)
				})
			})
		}

		if cfg.AccountHandler != nil {
			r.Get("/settings", cfg.AccountHandler.Settings)
		}

		if cfg.NotificationHandler != nil {
			r.Get("/notifications", cfg.NotificationHandler.List)
		}

		// AUTHENTICATED routes
		if cfg.AccountHandler != nil {
			r.Route("/account", func(r chi.Router) {
				r.Use(middleware.RequireSession)
				r.Get("/profile", cfg.AccountHandler.Profile)
				r.Get("/orders", cfg.AccountHandler.Orders)
				r.Get("/deposits", cfg.AccountHandler.Deposits)
				r.Post("/deposits", cfg.AccountHandler.SubmitDeposit)
			})
		}

		// ADMIN routes
		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/stats", cfg.AdminHandler.Stats)
				r.Get("/users", cfg.AdminHandler.Users)
				r.Put("/users/{id}/balance", cfg.AdminHandler.UpdateBalance)
				r.Get("/orders", cfg.AdminHandler.Orders)
				r.Get("/deposits", cfg.AdminHandler.Deposits)
				r.Post("/deposits/{id}/process", cfg.AdminHandler.ProcessDeposit)
				r.Post("/listings", cfg.AdminHandler.AddListing)
				r.Put("/listings/{id}", cfg.AdminHandler.UpdateListing)
				r.Delete("/listings/{id}", cfg.AdminHandler.DeleteListing)
				r.Get("/settings", cfg.AdminHandler.Settings)
				r.Put("/settings", cfg.AdminHandler.UpdateSettings)
			})
		}
	})

	return r
}
