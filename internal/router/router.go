package router

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiForms/internal/auth"
	"github.com/parisxmas/OxiDB/OxiForms/internal/handler"
	"github.com/parisxmas/OxiDB/OxiForms/internal/metrics"
	mw "github.com/parisxmas/OxiDB/OxiForms/internal/middleware"
)

type Options struct {
	JWTSecret     string
	AllowedOrigin string
	Log           *zap.Logger
	Metrics       *metrics.Registry
	// Limiter guards the public token routes. Nil disables rate limiting.
	Limiter *mw.RateLimiterRegistry
}

func New(
	opts Options,
	authH *handler.AuthHandler,
	formH *handler.FormHandler,
	subH *handler.SubmissionHandler,
	healthH *handler.HealthHandler,
) *chi.Mux {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger(log.Named("http")))
	r.Use(mw.Metrics(opts.Metrics))
	r.Use(mw.Recovery(log))
	r.Use(mw.SecureHeaders)
	r.Use(mw.CORS(opts.AllowedOrigin))

	r.Get("/health", healthH.Health)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// Auth
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/verify", authH.Verify)

		// Public, token-addressed routes
		r.Group(func(r chi.Router) {
			if opts.Limiter != nil {
				r.Use(mw.RateLimit(opts.Limiter))
			}
			r.Get("/forms/token/{token}", formH.GetByToken)
			r.Post("/submissions/{token}", subH.Submit)
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(opts.JWTSecret))

			r.Get("/forms", formH.List)
			r.Post("/forms", formH.Create)
			r.Get("/submissions/form/{formId}", subH.ListByForm)
		})
	})

	return r
}
