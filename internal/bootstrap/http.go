package bootstrap

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/snr-automations/teamdash/config"
	httpx "github.com/snr-automations/teamdash/internal/http"
	"github.com/snr-automations/teamdash/internal/service"
)

// HTTPHandlerConfig contains the dependencies of the HTTP handler.
type HTTPHandlerConfig struct {
	Config      *config.AppConfig
	Services    *ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	RateLimiter *httpx.RateLimiter
	Logger      *slog.Logger
}

// BuildHTTPHandler builds the router with health checks and, when enabled, metrics.
func BuildHTTPHandler(cfg HTTPHandlerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	health := map[string]httpx.Pinger{}
	if cfg.DB != nil {
		health["postgres"] = httpx.PingFunc(cfg.DB.PingContext)
	}
	if cfg.RedisClient != nil {
		rdb := cfg.RedisClient
		health["redis"] = httpx.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	services := httpx.RouterServices{
		Auth:     cfg.Services.Auth,
		Recovery: cfg.Services.Recovery,
		Runtimes: cfg.Services.Runtimes,
		Cookie: httpx.CookieConfig{
			Domain: appCfg.HTTP.CookieDomain,
			Secure: appCfg.HTTP.CookieSecure,
		},
		SignInPath:     appCfg.Auth.SignInPath,
		AllowedOrigins: appCfg.HTTP.AllowedOrigins,
		RateLimiter:    cfg.RateLimiter,
		Health:         health,
		Logger:         logger,
	}
	if appCfg.Observability.Metrics.IsEnabled() && cfg.Services.Registry != nil {
		services.Metrics = promhttp.HandlerFor(cfg.Services.Registry, promhttp.HandlerOpts{})
		services.MetricsPath = appCfg.Observability.Metrics.Path
	}

	return httpx.NewRouter(services)
}

func newServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	// No WriteTimeout: /auth/events holds long-lived WebSocket connections.
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context  context.Context
	Server   *http.Server
	Timeout  time.Duration
	Runtimes *service.RuntimeRegistry
	Logger   *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server and closes client runtimes.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := cfg.Server.Shutdown(shutdownCtx)
	// Runtimes are closed even when draining timed out.
	if cfg.Runtimes != nil {
		cfg.Runtimes.Close()
	}
	if err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
