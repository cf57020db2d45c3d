package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/storefront-core/internal/middleware"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
)

// RouterConfig holds the settings the router needs.
type RouterConfig struct {
	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Handlers groups the endpoint handlers.
type Handlers struct {
	Health  *HealthHandler
	Cart    *CartHandler
	Chat    *ChatHandler
	Catalog *CatalogHandler
	Widget  *WidgetHandler
}

// NewRouter builds the HTTP routes.
func NewRouter(cfg RouterConfig, h Handlers, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		// Cart
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.Get)
			r.Delete("/", h.Cart.Clear)
			r.Post("/checkout", h.Cart.Checkout)
			r.Post("/items", h.Cart.AddItem)
			r.Route("/items/{id}", func(r chi.Router) {
				r.Delete("/", h.Cart.RemoveItem)
				r.Post("/increase", h.Cart.Increase)
				r.Post("/decrease", h.Cart.Decrease)
			})
		})

		// Catalog
		r.Get("/products", h.Catalog.Products)
		r.Get("/search-suggestions", h.Catalog.Suggestions)

		// Chat sessions
		r.Route("/chat/sessions", func(r chi.Router) {
			r.Post("/", h.Chat.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Chat.Get)
				r.Delete("/", h.Chat.Delete)
				r.Post("/open", h.Chat.Open)
				r.Post("/close", h.Chat.Close)
				r.Post("/messages", h.Chat.SendMessage)
				r.Post("/categories/{category}", h.Chat.SelectCategory)
				r.Post("/cart-clicks", h.Chat.CartClick)
				r.Post("/notification/dismiss", h.Chat.DismissNotification)
			})
		})

		// Widget channel
		r.Get("/ws", h.Widget.Serve)
	})

	return r
}
