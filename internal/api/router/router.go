package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clayhaus/bookingbot/internal/channels/instagram"
	"github.com/clayhaus/bookingbot/internal/http/handlers"
	httpmiddleware "github.com/clayhaus/bookingbot/internal/http/middleware"
	"github.com/clayhaus/bookingbot/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	Instagram       *instagram.Adapter
	TelegramWebhook *handlers.TelegramWebhookHandler
	Admin           *handlers.AdminHandler
	AdminToken      string
	MetricsHandler  http.Handler
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Instagram != nil {
		r.Get("/webhooks/instagram", cfg.Instagram.HandleVerification)
		r.Post("/webhooks/instagram", cfg.Instagram.HandleWebhook)
	}
	if cfg.TelegramWebhook != nil {
		r.Post("/webhooks/telegram", cfg.TelegramWebhook.HandleUpdate)
	}

	if cfg.Admin != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminToken(cfg.AdminToken))
			admin.Delete("/sessions/{customerID}", cfg.Admin.ClearSession)
			admin.Get("/transcripts/{customerID}", cfg.Admin.GetTranscript)
			admin.Get("/reservations/{reservationID}", cfg.Admin.GetReservation)
		})
	}

	return r
}
