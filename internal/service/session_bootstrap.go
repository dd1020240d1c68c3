package service

import (
	"context"
	"log/slog"
	"sync"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
)

// SessionBootstrapper resolves the initial auth state of a client runtime exactly once.
type SessionBootstrapper struct {
	identity *IdentityClient
	profiles *ProfileLoader
	state    *StateCell
	logger   *slog.Logger

	once   sync.Once
	result domainauth.State
}

// NewSessionBootstrapper wires a bootstrapper to one runtime's client and state.
func NewSessionBootstrapper(identity *IdentityClient, profiles *ProfileLoader, state *StateCell, logger *slog.Logger) *SessionBootstrapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionBootstrapper{
		identity: identity,
		profiles: profiles,
		state:    state,
		logger:   logger.With("component", "session_bootstrap"),
	}
}

// Bootstrap publishes Loading, then exactly one terminal state. Later calls return
// the current state without doing any work.
func (b *SessionBootstrapper) Bootstrap(ctx context.Context) domainauth.State {
	ran := false
	b.once.Do(func() {
		ran = true
		b.result = b.run(ctx)
	})
	if !ran {
		s, _ := b.state.Current()
		return s
	}
	return b.result
}

func (b *SessionBootstrapper) run(ctx context.Context) domainauth.State {
	epoch := b.state.Epoch()
	b.state.PublishLoading()

	sess, err := b.identity.GetSession(ctx)
	if err != nil || sess == nil {
		if err != nil {
			b.logger.WarnContext(ctx, "session lookup failed during bootstrap", "error", err)
		}
		b.state.PublishUnauthenticated()
		return domainauth.Unauthenticated()
	}

	profile, err := b.profiles.Load(ctx, sess.User.ID)
	if err != nil {
		b.logger.WarnContext(ctx, "profile unavailable during bootstrap", "user_id", sess.User.ID, "error", err)
		b.state.PublishUnauthenticated()
		return domainauth.Unauthenticated()
	}

	if !b.state.PublishAuthenticated(epoch, *profile) {
		// A sign-out raced the bootstrap and won.
		s, _ := b.state.Current()
		if s.Kind == domainauth.StateLoading {
			b.state.PublishUnauthenticated()
		}
		return domainauth.Unauthenticated()
	}
	return domainauth.Authenticated(*profile)
}
