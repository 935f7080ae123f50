package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/recircle/account-service/internal/auth"
	"github.com/recircle/account-service/internal/domain"
	"github.com/recircle/account-service/internal/service"
	"github.com/recircle/account-service/pkg/health"
	"github.com/recircle/account-service/pkg/middleware"
)

// NewRouter creates a chi router with all account service routes registered.
func NewRouter(
	accountService *service.AccountService,
	tokens *auth.TokenService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("account"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	secureCookies := corsConfig.Environment != "development"
	authHandler := NewAuthHandler(accountService, logger, secureCookies)
	accountHandler := NewAccountHandler(accountService, logger)

	gate := Authenticate(tokens, accountService.GetAccount)

	// Auth endpoints (public)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)
		r.Get("/logout", authHandler.Logout)

		// Session introspection (auth required)
		r.With(gate).Get("/me", authHandler.Me)
	})

	// Self-service profile endpoints (auth required)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(gate)

		r.Get("/me", authHandler.Me)
		r.Put("/me", accountHandler.UpdateProfile)
		r.Put("/me/password", accountHandler.ChangePassword)
		r.Put("/me/deactivate", accountHandler.Deactivate)
	})

	// Admin endpoints (admin role required)
	r.Route("/api/v1/admin/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(gate)
		r.Use(RequireRole(domain.RoleAdmin))

		r.Get("/", accountHandler.List)
		r.Get("/{id}", accountHandler.Get)
		r.Put("/{id}/role", accountHandler.SetRole)
	})

	return r
}
