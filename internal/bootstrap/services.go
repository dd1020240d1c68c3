package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/snr-automations/teamdash/config"
	redisadapter "github.com/snr-automations/teamdash/internal/adapters/redis"
	"github.com/snr-automations/teamdash/internal/data"
	httpx "github.com/snr-automations/teamdash/internal/http"
	"github.com/snr-automations/teamdash/internal/observability/metrics"
	"github.com/snr-automations/teamdash/internal/ports"
	"github.com/snr-automations/teamdash/internal/service"
)

const rateLimiterSweepInterval = time.Minute

// ServiceDeps contains the infrastructure the services are built on.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	// Provider overrides the identity provider selected by Config.Auth.Mode.
	Provider ports.IdentityProvider
	Logger   *slog.Logger
}

// ServiceContainer holds the wired application services.
type ServiceContainer struct {
	Auth     *service.AuthService
	Recovery *service.RecoveryService
	Runtimes *service.RuntimeRegistry
	Metrics  *metrics.Auth
	Registry *prometheus.Registry
}

// NewServices wires repositories, stores and the identity provider into services.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil || deps.RedisClient == nil {
		return nil, errors.New("config, database and redis are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config.Auth

	provider := deps.Provider
	if provider == nil {
		var err error
		provider, err = BuildIdentityProvider(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	authMetrics := metrics.NewAuth(reg)

	profiles := service.NewProfileLoader(service.ProfileLoaderOptions{
		Repo:    data.NewProfileRepo(deps.DB),
		Timeout: cfg.ProviderTimeout,
		Logger:  logger,
	})
	gate := service.NewAllowlistGate(service.AllowlistGateOptions{
		Repo:    data.NewAllowlistRepo(deps.DB),
		Timeout: cfg.AllowlistTimeout,
		Logger:  logger,
		Metrics: authMetrics,
	})

	return &ServiceContainer{
		Auth: service.NewAuthService(service.AuthServiceOptions{
			Gate:             gate,
			Profiles:         profiles,
			ResetRedirectURL: cfg.SetPasswordURL,
			Logger:           logger,
			Metrics:          authMetrics,
		}),
		Recovery: service.NewRecoveryService(service.RecoveryServiceOptions{
			Store:             redisadapter.NewRecoveryStore(deps.RedisClient),
			MinPasswordLength: cfg.MinPasswordLength,
			TokenTTL:          cfg.RecoveryTokenTTL,
			SignInPath:        cfg.SignInPath,
			RedirectDelay:     cfg.RedirectDelay,
			Logger:            logger,
			Metrics:           authMetrics,
		}),
		Runtimes: service.NewRuntimeRegistry(service.RuntimeRegistryOptions{
			Provider:       provider,
			Sessions:       redisadapter.NewSessionStore(deps.RedisClient),
			Profiles:       profiles,
			Size:           cfg.RuntimeCacheSize,
			IdleTTL:        cfg.RuntimeIdleTTL,
			SessionTTL:     cfg.SessionTTL,
			RequestTimeout: cfg.ProviderTimeout,
			Logger:         logger,
			Metrics:        authMetrics,
		}),
		Metrics:  authMetrics,
		Registry: reg,
	}, nil
}

// ServiceOrchestrationConfig contains dependencies for running the server.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    *ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// RunServicesWithShutdown serves HTTP until SIGINT/SIGTERM or a server failure,
// then drains in-flight requests and closes every client runtime.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	proxies, err := httpx.ParseTrustedProxies(cfg.Config.HTTP.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse HTTP_TRUSTED_PROXIES: %w", err)
	}
	limiter := httpx.NewRateLimiter(rate.Limit(cfg.Config.HTTP.AuthRateLimit), cfg.Config.HTTP.AuthRateBurst).
		TrustProxies(proxies)
	handler := BuildHTTPHandler(HTTPHandlerConfig{
		Config:      cfg.Config,
		Services:    cfg.Services,
		DB:          cfg.DB,
		RedisClient: cfg.RedisClient,
		RateLimiter: limiter,
		Logger:      logger,
	})
	server := newServer(cfg.Config.HTTP, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		limiter.Run(gctx, rateLimiterSweepInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down services...")
		return ShutdownHTTPServer(ShutdownConfig{
			Context:  context.WithoutCancel(gctx),
			Server:   server,
			Timeout:  cfg.Config.HTTP.ShutdownTimeout,
			Runtimes: cfg.Services.Runtimes,
			Logger:   logger,
		})
	})

	return g.Wait()
}
