package service

import (
	"context"
	"log/slog"
	"time"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	"github.com/snr-automations/teamdash/internal/ports"
	"golang.org/x/sync/singleflight"
)

// ProfileLoaderOptions groups dependencies for ProfileLoader.
type ProfileLoaderOptions struct {
	Repo    ports.ProfileRepository // Required
	Timeout time.Duration           // Optional: bound for one shared lookup, default 10s
	Logger  *slog.Logger            // Optional
}

// ProfileLoader maps a provider identity id to its application profile.
// Concurrent loads of the same id (direct sign-in racing the SignedIn event) share one query.
type ProfileLoader struct {
	repo    ports.ProfileRepository
	timeout time.Duration
	logger  *slog.Logger
	group   singleflight.Group
}

// NewProfileLoader creates a new ProfileLoader.
func NewProfileLoader(opts ProfileLoaderOptions) *ProfileLoader {
	if opts.Repo == nil {
		panic("ProfileRepository is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileLoader{repo: opts.Repo, timeout: timeout, logger: logger.With("component", "profile_loader")}
}

// Load returns the profile for id. A missing row is profile_missing; any other
// failure is provider_unavailable.
func (l *ProfileLoader) Load(ctx context.Context, id string) (*domainauth.UserProfile, error) {
	if id == "" {
		return nil, apperrors.ProfileMissing(nil)
	}

	ch := l.group.DoChan(id, func() (any, error) {
		// Shared by every waiter, so it must not die with the first caller's context.
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		return l.repo.GetByID(lookupCtx, id)
	})

	select {
	case <-ctx.Done():
		return nil, apperrors.ProviderUnavailable(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			if apperrors.IsNotFound(res.Err) {
				return nil, apperrors.ProfileMissing(res.Err)
			}
			l.logger.WarnContext(ctx, "profile lookup failed", "user_id", id, "error", res.Err)
			return nil, apperrors.ProviderUnavailable(res.Err)
		}
		p := *res.Val.(*domainauth.UserProfile)
		p.Normalize()
		return &p, nil
	}
}
