package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/snr-automations/teamdash/config"
	"github.com/snr-automations/teamdash/internal/adapters/devauth"
	"github.com/snr-automations/teamdash/internal/adapters/gotrue"
	"github.com/snr-automations/teamdash/internal/ports"
)

// BuildIdentityProvider returns the identity provider for the configured auth mode.
//
//nolint:ireturn // the mode decides the concrete provider.
func BuildIdentityProvider(cfg config.AuthConfig, logger *slog.Logger) (ports.IdentityProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Mode {
	case config.AuthModeMock:
		users := make([]devauth.User, 0, len(cfg.DevAuth.Users))
		for _, u := range cfg.DevAuth.Users {
			users = append(users, devauth.User{
				ID:        u.UserID(),
				Email:     u.Email,
				Password:  u.Password,
				Confirmed: true,
			})
		}
		prov, err := devauth.NewProvider(devauth.Config{
			Users:       users,
			SigningKey:  cfg.DevAuth.SigningKey,
			AccessTTL:   cfg.SessionTTL,
			RecoveryTTL: cfg.RecoveryTokenTTL,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build dev identity provider: %w", err)
		}
		logger.Warn("using development identity provider", "users", len(users))
		return prov, nil

	case config.AuthModeSupabase:
		client, err := gotrue.NewClient(gotrue.Config{
			BaseURL: cfg.Supabase.URL,
			AnonKey: cfg.Supabase.AnonKey,
			Timeout: cfg.ProviderTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("build supabase identity provider: %w", err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}
