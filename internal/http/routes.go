package httpx

import (
	"log/slog"
	"net/http"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth     AuthServiceInterface     // Required
	Recovery RecoveryServiceInterface // Required
	Runtimes RuntimeSource            // Required
	Cookie   CookieConfig
	// SignInPath is where RequireAuth sends unauthenticated clients.
	SignInPath     string
	AllowedOrigins []string
	// Optional: per-IP limit on credential endpoints.
	RateLimiter *RateLimiter
	// Optional: readiness dependencies pinged by /healthz.
	Health map[string]Pinger
	// Optional: served at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
	Logger      *slog.Logger
}

// middleware wraps a handler.
type middleware func(http.Handler) http.Handler

func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	signInPath := services.SignInPath
	if signInPath == "" {
		signInPath = "/login"
	}

	mux := http.NewServeMux()
	authHandlers := &AuthHandlers{
		Svc:       services.Auth,
		Recovery:  services.Recovery,
		Validator: NewRequestValidator(),
		Logger:    logger,
	}

	withClient := middleware(ClientRuntime(services.Runtimes, services.Cookie))
	limited := func(h http.HandlerFunc) http.Handler {
		if services.RateLimiter == nil {
			return chain(h, withClient)
		}
		return chain(h, services.RateLimiter.Middleware(), withClient)
	}

	registerAuthRoutes(mux, authHandlers, authRouteConfig{
		withClient: withClient,
		limited:    limited,
		events:     NewStateStreamHandler(services.AllowedOrigins, logger),
	})

	mux.Handle("GET /api/me", chain(http.HandlerFunc(authHandlers.Me), withClient, RequireAuth(signInPath)))

	health := &HealthHandler{Checks: services.Health, Logger: logger}
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)

	if services.Metrics != nil {
		path := services.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, services.Metrics)
	}

	return chain(mux, Recover(logger), Logging(logger))
}

type authRouteConfig struct {
	withClient middleware
	limited    func(http.HandlerFunc) http.Handler
	events     http.Handler
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, cfg authRouteConfig) {
	mux.Handle("POST /auth/login", cfg.limited(h.Login))
	mux.Handle("POST /auth/reset-password", cfg.limited(h.ResetPassword))
	mux.Handle("POST /auth/set-password", cfg.limited(h.SetPassword))
	mux.Handle("POST /auth/logout", cfg.withClient(http.HandlerFunc(h.Logout)))
	mux.Handle("GET /auth/status", cfg.withClient(http.HandlerFunc(h.Status)))
	mux.Handle("POST /auth/recovery/capture", http.HandlerFunc(h.CaptureRecovery))
	mux.Handle("GET /auth/events", cfg.withClient(cfg.events))
}
