package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"honeypot-lab/internal/api/handlers"
	apimiddleware "honeypot-lab/internal/api/middleware"
	"honeypot-lab/internal/config"
	"honeypot-lab/pkg/logger"
)

// requestTimeout covers the persona completion and the oracle call
const requestTimeout = 60 * time.Second

// Router holds dependencies for the API router
type Router struct {
	config   config.Config
	handlers *handlers.Handlers
	limiter  apimiddleware.Limiter
	logger   *logger.Logger
}

// NewRouter creates a new Router instance. limiter may be nil, which
// disables rate limiting regardless of configuration.
func NewRouter(cfg config.Config, h *handlers.Handlers, limiter apimiddleware.Limiter, log *logger.Logger) *Router {
	return &Router{
		config:   cfg,
		handlers: h,
		limiter:  limiter,
		logger:   log.WithComponent("router"),
	}
}

// Setup sets up the Chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Core middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(requestTimeout))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	// Public routes
	router.Group(func(pub chi.Router) {
		pub.Get("/", r.handlers.Health.Root)
		pub.Get("/health", r.handlers.Health.Check)
		pub.Get("/ready", r.handlers.Health.Ready)
	})

	// Chat platform routes
	router.Group(func(chat chi.Router) {
		chat.Use(apimiddleware.APIKeyAuth(r.config.Auth.Header, r.config.Auth.APIKey))
		if r.config.RateLimit.Enabled && r.limiter != nil {
			chat.Use(apimiddleware.RateLimiter(r.limiter, r.config.RateLimit, r.logger))
		}

		chat.Post("/analyze", r.handlers.Honeypot.Analyze)
		chat.Post("/api/chat", r.handlers.Honeypot.Analyze)
		chat.Post("/api/hackathon/chat", r.handlers.Honeypot.Analyze)
	})

	return router
}
